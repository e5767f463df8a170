// Package rotation drives the timed walk over the loaded background images.
package rotation

import (
	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/random"
)

// State is the rotation state machine. It is not safe for concurrent use;
// the Rotator owns it exclusively.
type State struct {
	rng     random.Rand
	images  []domain.ImageRecord
	mode    domain.OrderMode
	index   int
	shuffle []int
	cursor  int
}

// NewState creates an idle state in the given order mode
func NewState(rng random.Rand, mode domain.OrderMode) *State {
	return &State{rng: rng, mode: mode}
}

// Replace swaps in a new image list and restarts the walk at index 0
func (s *State) Replace(images []domain.ImageRecord) {
	s.images = images
	s.index = 0
	s.regenerate()
}

// SetOrderMode switches the walk order without touching the image list.
// The current index is kept; the shuffle is rebuilt or cleared.
func (s *State) SetOrderMode(mode domain.OrderMode) {
	s.mode = mode
	s.regenerate()
}

func (s *State) regenerate() {
	s.cursor = 0
	if s.mode == domain.OrderRandom && len(s.images) > 0 {
		s.shuffle = random.Permutation(len(s.images), s.rng)
		return
	}
	s.shuffle = nil
}

// Tick advances to the next image and reports whether the index moved.
// With one image or none it is a no-op.
func (s *State) Tick() bool {
	n := len(s.images)
	if n <= 1 {
		return false
	}

	if s.mode != domain.OrderRandom {
		s.index = (s.index + 1) % n
		return true
	}

	s.cursor = (s.cursor + 1) % len(s.shuffle)
	s.index = s.shuffle[s.cursor]
	if s.cursor == 0 {
		// the next pass gets a fresh permutation; its first entry may repeat this one
		s.shuffle = random.Permutation(n, s.rng)
	}
	return true
}

// Prev steps back one image. In random mode it walks the current permutation
// backwards without reshuffling.
func (s *State) Prev() bool {
	n := len(s.images)
	if n <= 1 {
		return false
	}

	if s.mode != domain.OrderRandom {
		s.index = (s.index - 1 + n) % n
		return true
	}

	s.cursor = (s.cursor - 1 + len(s.shuffle)) % len(s.shuffle)
	s.index = s.shuffle[s.cursor]
	return true
}

// Current returns the image at the current index
func (s *State) Current() (domain.ImageRecord, bool) {
	if len(s.images) == 0 {
		return domain.ImageRecord{}, false
	}
	return s.images[s.index], true
}

// Len returns the number of loaded images
func (s *State) Len() int { return len(s.images) }

// Index returns the current index into the image list
func (s *State) Index() int { return s.index }

// Mode returns the active order mode
func (s *State) Mode() domain.OrderMode { return s.mode }

// Images returns the loaded image list. Callers must not modify it.
func (s *State) Images() []domain.ImageRecord { return s.images }

// Cursor returns the position within the shuffle order
func (s *State) Cursor() int { return s.cursor }

// ShuffleOrder returns a copy of the current permutation, nil in sequential mode
func (s *State) ShuffleOrder() []int {
	if s.shuffle == nil {
		return nil
	}
	out := make([]int, len(s.shuffle))
	copy(out, s.shuffle)
	return out
}
