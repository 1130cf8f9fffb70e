// Package changeright packs and unpacks the 4-bit change-rights groups
// used in device personalization words.
//
// A word holds up to 16 groups, most-significant group first. Group i
// describes the change right of the i-th command in table order; only the
// first count groups of a word are meaningful.
package changeright

import (
	"errors"
	"fmt"
)

const (
	// MaxGroups is the number of 4-bit groups a 64-bit word holds.
	MaxGroups = 16

	// MaxLevel is the largest value a group can hold.
	MaxLevel = 0x0F

	groupBits = 4
)

// Change-rights codec errors.
var (
	// ErrTooManyLevels is returned for more than MaxGroups levels.
	ErrTooManyLevels = errors.New("changeright: too many levels")

	// ErrLevelOutOfRange is returned for a level above MaxLevel.
	ErrLevelOutOfRange = errors.New("changeright: level out of range")
)

// Pack places level i in group i, most-significant group first. Groups
// past len(levels) are zero.
func Pack(levels []uint8) (uint64, error) {
	if len(levels) > MaxGroups {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyLevels, len(levels), MaxGroups)
	}
	var word uint64
	for i, level := range levels {
		if level > MaxLevel {
			return 0, fmt.Errorf("%w: level %d at group %d", ErrLevelOutOfRange, level, i)
		}
		word |= uint64(level) << shift(i)
	}
	return word, nil
}

// Unpack returns the first count groups of word, most-significant first.
func Unpack(word uint64, count int) ([]uint8, error) {
	if count < 0 || count > MaxGroups {
		return nil, fmt.Errorf("%w: %d groups requested", ErrTooManyLevels, count)
	}
	levels := make([]uint8, count)
	for i := range levels {
		levels[i] = uint8(word>>shift(i)) & MaxLevel
	}
	return levels, nil
}

func shift(group int) uint {
	return uint((MaxGroups - 1 - group) * groupBits)
}
