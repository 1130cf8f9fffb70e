// Package persistence saves the state of a simulated secure element to a
// JSON file: its command policy, table change rights and the key slots
// written so far. A restarted simulator loads the file and answers like
// the device it replaces, with spent change rights still spent.
package persistence
