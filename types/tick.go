package types

// Tick is the world's logical clock. Every component write is stamped with
// the tick active at the time of the write, and change-detection filters
// compare those stamps against the tick a system last ran at.
//
// The counter wraps around at the uint32 boundary. All comparisons therefore
// go through NewerThan, which measures wrap-safe distances rather than
// comparing raw values.
type Tick uint32

// NewerThan reports whether t happened after last, as observed at current.
// The comparison is performed with unsigned distance arithmetic so it stays
// correct across one wraparound of the counter: a stamp is newer than last
// iff it is closer to current than last is.
func (t Tick) NewerThan(last, current Tick) bool {
	return uint32(current-t) < uint32(current-last)
}

// TickPair carries the two stamps recorded per component slot: the tick the
// component was inserted at and the tick it was last written at.
type TickPair struct {
	Added   Tick
	Changed Tick
}
