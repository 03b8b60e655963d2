package player

import (
	"sort"

	"DevAmp/model"
)

// Store holds the playlist, the current index and the favorites set.
// It is owned by the session loop and not safe for concurrent use.
type Store struct {
	tracks    []*model.Track
	index     int
	favorites map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{favorites: make(map[string]struct{})}
}

// Append adds tracks in order. Same-named tracks are allowed.
func (s *Store) Append(tracks ...*model.Track) {
	s.tracks = append(s.tracks, tracks...)
}

func (s *Store) Len() int { return len(s.tracks) }

// At returns the track at i, or false when i is out of range.
func (s *Store) At(i int) (*model.Track, bool) {
	if i < 0 || i >= len(s.tracks) {
		return nil, false
	}
	return s.tracks[i], true
}

// Index is the current index. It is meaningful only while Len() > 0.
func (s *Store) Index() int { return s.index }

// SetIndex moves the current index. Out-of-range values are ignored.
func (s *Store) SetIndex(i int) bool {
	if i < 0 || i >= len(s.tracks) {
		return false
	}
	s.index = i
	return true
}

// Current returns the track at the current index, nil when empty.
func (s *Store) Current() *model.Track {
	t, _ := s.At(s.index)
	return t
}

// Remove drops the track at i. The current index keeps pointing at the same
// track when an earlier one is removed; removing the current track leaves the
// index on its successor, wrapping to 0 past the end.
func (s *Store) Remove(i int) (*model.Track, bool) {
	t, ok := s.At(i)
	if !ok {
		return nil, false
	}
	s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
	switch {
	case len(s.tracks) == 0:
		s.index = 0
	case i < s.index:
		s.index--
	case s.index >= len(s.tracks):
		s.index = 0
	}
	return t, true
}

// Tracks returns a copy of the playlist.
func (s *Store) Tracks() []*model.Track {
	out := make([]*model.Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// ToggleFavorite flips name's membership and reports the new state.
func (s *Store) ToggleFavorite(name string) bool {
	if _, ok := s.favorites[name]; ok {
		delete(s.favorites, name)
		return false
	}
	s.favorites[name] = struct{}{}
	return true
}

func (s *Store) IsFavorite(name string) bool {
	_, ok := s.favorites[name]
	return ok
}

// Favorites lists favorite names in sorted order.
func (s *Store) Favorites() []string {
	out := make([]string, 0, len(s.favorites))
	for name := range s.favorites {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
