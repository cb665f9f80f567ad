package rsssync

// guidSet is a bounded set of processed release GUIDs. When capacity is
// exceeded the oldest entries by insertion order are evicted; re-seeing
// a GUID does not refresh its position.
type guidSet struct {
	capacity int
	seen     map[string]struct{}
	order    []string
}

func newGuidSet(capacity int) *guidSet {
	return &guidSet{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Contains reports whether the GUID was already processed.
func (s *guidSet) Contains(guid string) bool {
	_, ok := s.seen[guid]
	return ok
}

// Add marks a GUID processed, evicting the oldest entries when the set
// exceeds capacity.
func (s *guidSet) Add(guid string) {
	if s.Contains(guid) {
		return
	}
	s.seen[guid] = struct{}{}
	s.order = append(s.order, guid)

	for len(s.seen) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
}

// Len returns the current number of tracked GUIDs.
func (s *guidSet) Len() int {
	return len(s.seen)
}
