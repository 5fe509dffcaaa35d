package snipe

import (
	"sync"

	"giftsniper/logger"
)

// SeenSet remembers listing ids that were already evaluated and acted on, so
// a listing is never bought twice and never re-evaluated after a failed buy.
// Growth is bounded coarsely: once the set passes its limit it is cleared
// wholesale, accepting that recently seen listings may briefly be evaluated
// again.
type SeenSet struct {
	mu    sync.Mutex
	limit int
	ids   map[string]struct{}
	log   *logger.Log
}

// NewSeenSet creates a set that clears itself past limit entries.
func NewSeenSet(limit int) *SeenSet {
	return &SeenSet{
		limit: limit,
		ids:   make(map[string]struct{}),
		log:   logger.GetLogger(),
	}
}

// Seen reports whether the id was already marked.
func (s *SeenSet) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// MarkSeen records the id.
func (s *SeenSet) MarkSeen(id string) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

// MaybeReset clears the whole set once it has grown past the limit.
func (s *SeenSet) MaybeReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) <= s.limit {
		return
	}
	s.log.WithComponent("seen_set").WithFields(logger.Fields{"size": len(s.ids)}).Info("seen set limit exceeded, clearing")
	s.ids = make(map[string]struct{})
}

// Len returns the current cardinality.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
