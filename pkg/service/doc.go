// Package service orchestrates a complete provisioning run against one
// secure element.
//
// A run walks through a fixed sequence of states:
//
//	INIT -> DEVICE_READY -> QUERIED_BEFORE -> APPLIED_AC ->
//	APPLIED_ENCRYPTION -> QUERIED_AFTER -> SLOTS_PROVISIONED -> DONE
//
// Any transport, protocol or decode error in the table steps moves the run
// to FAILED. Partial progress is never rolled back: a device whose access
// conditions were written before the encryption put failed keeps them.
// Key slot outcomes are reported per slot and never fail the run.
//
// Example usage:
//
//	p, _ := profile.Builtin(profile.DefaultName)
//	cfg, _ := service.ConfigFromProfile(p)
//	cfg.Reporter = report.NewTextReporter(os.Stdout, report.Options{Names: p.Names()})
//
//	prov, _ := service.NewProvisioner(cfg)
//	result, err := prov.Run(ctx, connector, handlerConfig)
//
// Each transition is written to the protocol trace as a state change event
// and to the operational log.
package service
