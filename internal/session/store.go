package session

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/tinymines/internal/mines"
)

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextId   int64
	rnd      *rand.Rand
	ttl      time.Duration
	maxCells int
	now      func() time.Time
}

// NewStore creates an in-memory session store. Sessions idle for longer
// than ttl are dropped by [Store.Sweep]; a non-positive ttl keeps them
// forever. No game may have more than maxCells cells, see
// [mines.GameParams.ValidateWithin].
func NewStore(r *rand.Rand, ttl time.Duration, maxCells int) *Store {
	if r == nil {
		r = mines.NewRand()
	}
	if maxCells <= 0 {
		maxCells = mines.MaxCells
	}
	return &Store{
		sessions: make(map[string]*Session),
		rnd:      r,
		ttl:      ttl,
		maxCells: maxCells,
		now:      time.Now,
	}
}

// Create starts a new session playing a game with params.
func (st *Store) Create(params mines.GameParams) (*Session, error) {
	if err := params.ValidateWithin(st.maxCells); err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// each game gets its own generator so sessions never contend on st.rnd
	game := mines.NewGame(rand.New(rand.NewPCG(st.rnd.Uint64(), st.rnd.Uint64())))
	if err := game.Reset(params.Size(), params.MineCount); err != nil {
		return nil, err
	}

	st.nextId++
	now := st.now()
	s := &Session{
		Id:        strconv.FormatInt(st.nextId, 10),
		params:    params,
		game:      game,
		startedAt: now,
		updatedAt: now,
		maxCells:  st.maxCells,
		now:       st.now,
	}
	st.sessions[s.Id] = s

	Log.WithFields(logrus.Fields{
		"session": s.Id,
		"params":  params.Seed(),
	}).Debug("session created")

	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle since before now - ttl and returns how many
// were dropped.
func (st *Store) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.ttl {
			delete(st.sessions, id)
			n++
		}
	}
	if n > 0 {
		Log.WithFields(logrus.Fields{
			"dropped": n,
			"left":    len(st.sessions),
		}).Info("swept idle sessions")
	}
	return n
}

// RunJanitor sweeps the store every interval until ctx is done.
func (st *Store) RunJanitor(ctx context.Context, every time.Duration) error {
	if st.ttl <= 0 || every <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			st.Sweep(t)
		}
	}
}
