package session

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/tinymines/internal/mines"
)

var (
	Log = logrus.New()

	ErrNotFound = errors.New("session not found")
)

// Session wraps one game. Every command on it runs under its own lock so
// that status transitions see a consistent board.
type Session struct {
	Id string

	mu        sync.Mutex
	params    mines.GameParams
	game      *mines.Game
	startedAt time.Time
	updatedAt time.Time
	endedAt   *time.Time
	maxCells  int
	now       func() time.Time
}

// View is a point-in-time copy of a session safe to hand to renderers.
// Mines is only filled in once the game is over.
type View struct {
	SessionId string
	Params    mines.GameParams
	Status    mines.Status
	Grid      mines.Grid
	Revealed  []int
	Mines     []int
	StartedAt time.Time
	EndedAt   *time.Time
}

func (s *Session) snapshot() View {
	v := View{
		SessionId: s.Id,
		Params:    s.params,
		Status:    s.game.Status(),
		Grid:      s.game.PlayerGrid(),
		Revealed:  s.game.Revealed(),
		StartedAt: s.startedAt,
	}
	if v.Status.Over() {
		v.Mines = s.game.Mines()
	}
	if s.endedAt != nil {
		e := *s.endedAt
		v.EndedAt = &e
	}
	return v
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Touch marks the session as in use without changing the game and returns
// its current view.
func (s *Session) Touch() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = s.now()
	return s.snapshot()
}

func (s *Session) Reveal(index int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal(index)
}

// RevealPoint reveals the cell at column x, row y of the current game.
func (s *Session) RevealPoint(x, y int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.params.ValidatePoint(x, y) {
		return s.snapshot(), mines.ErrInvalidIndex
	}
	return s.reveal(s.params.Index(x, y))
}

// reveal must be called with s.mu held.
func (s *Session) reveal(index int) (View, error) {
	wasOver := s.game.Status().Over()
	status, err := s.game.Reveal(index)
	if err != nil {
		return s.snapshot(), err
	}

	now := s.now()
	s.updatedAt = now
	if status.Over() && !wasOver {
		s.endedAt = &now
		Log.WithFields(logrus.Fields{
			"session": s.Id,
			"status":  status,
		}).Debug("game over")
	}
	return s.snapshot(), nil
}

// Reset starts a fresh game with params. A failed reset keeps the
// current game.
func (s *Session) Reset(params mines.GameParams) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := params.ValidateWithin(s.maxCells); err != nil {
		return s.snapshot(), err
	}
	if err := s.game.Reset(params.Size(), params.MineCount); err != nil {
		return s.snapshot(), err
	}

	now := s.now()
	s.params = params
	s.startedAt = now
	s.updatedAt = now
	s.endedAt = nil
	return s.snapshot(), nil
}

// Params returns the parameters of the current game.
func (s *Session) Params() mines.GameParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Bytes encodes the session's game, see [mines.Game.Bytes].
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Bytes()
}
