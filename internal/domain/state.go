package domain

import "sync/atomic"

// StateStore holds the last dispatched mute flag and volume. The two cells
// are independent; each compare-and-update is a single atomic swap so two
// concurrent deliveries of the same transition report it only once.
//
// The zero value is ready to use and reads (false, 0).
type StateStore struct {
	muted  atomic.Bool
	volume atomic.Int32
}

// NewStateStore returns a store seeded with the given state.
func NewStateStore(muted bool, volume int32) *StateStore {
	s := &StateStore{}
	s.muted.Store(muted)
	s.volume.Store(volume)
	return s
}

// Read returns the current values.
func (s *StateStore) Read() Snapshot {
	return Snapshot{Muted: s.muted.Load(), Volume: s.volume.Load()}
}

// CompareAndUpdateMute stores v and reports whether it differed from the stored flag.
func (s *StateStore) CompareAndUpdateMute(v bool) bool {
	return s.muted.Swap(v) != v
}

// CompareAndUpdateVolume stores v and reports whether it differed from the stored volume.
func (s *StateStore) CompareAndUpdateVolume(v int32) bool {
	return s.volume.Swap(v) != v
}
