package types

import (
	"math"
	"testing"

	"pkg.world.dev/atlas/assert"
)

func TestNewerThan(t *testing.T) {
	testCases := []struct {
		name    string
		stamp   Tick
		last    Tick
		current Tick
		want    bool
	}{
		{"stamp after last is newer", 5, 3, 10, true},
		{"stamp equal to last is not newer", 3, 3, 10, false},
		{"stamp before last is not newer", 2, 3, 10, false},
		{"stamp at current is newer", 10, 3, 10, true},
		{"zero stamp against zero last is not newer", 0, 0, 10, false},
		{"stamp just after wraparound", 1, math.MaxUint32 - 1, 2, true},
		{"stamp just before wraparound", math.MaxUint32, math.MaxUint32 - 2, 1, true},
		{"old stamp across wraparound", math.MaxUint32 - 5, math.MaxUint32 - 2, 1, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.stamp.NewerThan(tc.last, tc.current))
		})
	}
}
