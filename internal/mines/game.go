package mines

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/maphash"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

type Status int8

const (
	Playing Status = iota
	Lost
	Won
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Lost:
		return "lost"
	case Won:
		return "won"
	default:
		return fmt.Sprintf("Status(%d)", int8(s))
	}
}

// Over reports whether s is terminal.
func (s Status) Over() bool {
	return s == Lost || s == Won
}

// [Status] implements [encoding.TextMarshaler]
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case Playing, Lost, Won:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid status %d", int8(s))
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "playing":
		*s = Playing
	case "lost":
		*s = Lost
	case "won":
		*s = Won
	default:
		return fmt.Errorf("invalid status %q", text)
	}
	return nil
}

// NewRand returns a generator seeded from the runtime's hash seed.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

// Game holds the state of a single play session. The zero value has no
// cells; call Reset before revealing anything. A Game is not safe for
// concurrent use.
type Game struct {
	size      int
	mines     []bool
	revealed  []bool
	nmines    int
	nrevealed int
	status    Status
	rnd       *rand.Rand
}

func NewGame(r *rand.Rand) *Game {
	if r == nil {
		r = NewRand()
	}
	return &Game{rnd: r}
}

// placeMines draws m distinct indices from [0, n) with a partial
// Fisher-Yates shuffle.
func placeMines(r *rand.Rand, n, m int) []int {
	cells := make([]int, n)
	for i := range cells {
		cells[i] = i
	}
	for i := range m {
		j := i + r.IntN(n-i)
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells[:m]
}

// Reset starts a new game on gridSize cells with mineCount randomly placed
// mines. On error the previous state is left untouched.
func (g *Game) Reset(gridSize, mineCount int) error {
	if mineCount <= 0 || mineCount >= gridSize {
		return fmt.Errorf(
			"%w (grid size = %d, mine count = %d)",
			ErrInvalidConfiguration, gridSize, mineCount,
		)
	}
	if g.rnd == nil {
		g.rnd = NewRand()
	}
	g.install(gridSize, placeMines(g.rnd, gridSize, mineCount))
	return nil
}

// ResetWithMines starts a new game with a known mine layout.
func (g *Game) ResetWithMines(gridSize int, mines []int) error {
	if err := validateLayout(gridSize, mines); err != nil {
		return err
	}
	g.install(gridSize, mines)
	return nil
}

func validateLayout(gridSize int, mines []int) error {
	if len(mines) <= 0 || len(mines) >= gridSize {
		return fmt.Errorf(
			"%w (grid size = %d, mine count = %d)",
			ErrInvalidConfiguration, gridSize, len(mines),
		)
	}
	seen := make([]bool, gridSize)
	for _, i := range mines {
		if i < 0 || i >= gridSize {
			return fmt.Errorf("%w: mine at %d", ErrInvalidConfiguration, i)
		}
		if seen[i] {
			return fmt.Errorf("%w: duplicate mine at %d", ErrInvalidConfiguration, i)
		}
		seen[i] = true
	}
	return nil
}

func (g *Game) install(gridSize int, mines []int) {
	g.size = gridSize
	g.mines = make([]bool, gridSize)
	g.revealed = make([]bool, gridSize)
	for _, i := range mines {
		g.mines[i] = true
	}
	g.nmines = len(mines)
	g.nrevealed = 0
	g.status = Playing

	Log.WithFields(logrus.Fields{
		"size":  gridSize,
		"mines": g.nmines,
	}).Debug("new game")
}

// Reveal exposes the cell at index and returns the resulting status.
// Reveals after the game has ended and repeated reveals of the same cell
// are ignored.
func (g *Game) Reveal(index int) (Status, error) {
	if index < 0 || index >= g.size {
		return g.status, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, index, g.size)
	}
	if g.status != Playing || g.revealed[index] {
		return g.status, nil
	}

	g.revealed[index] = true
	g.nrevealed++

	if g.mines[index] {
		g.status = Lost
		Log.WithField("index", index).Debug("stepped on a mine")
	} else if g.nrevealed == g.size-g.nmines {
		g.status = Won
		Log.WithField("index", index).Debug("all safe cells revealed")
	}

	return g.status, nil
}

func (g *Game) Status() Status {
	return g.status
}

func (g *Game) Size() int {
	return g.size
}

func (g *Game) MineCount() int {
	return g.nmines
}

func (g *Game) IsRevealed(i int) bool {
	return 0 <= i && i < g.size && g.revealed[i]
}

func (g *Game) IsMine(i int) bool {
	return 0 <= i && i < g.size && g.mines[i]
}

// Revealed returns the revealed cell indices in ascending order.
func (g *Game) Revealed() []int {
	return indices(g.revealed)
}

// Mines returns the mine indices in ascending order. Callers rendering a
// game in progress must not display them.
func (g *Game) Mines() []int {
	return indices(g.mines)
}

func indices(mask []bool) []int {
	res := make([]int, 0, len(mask))
	for i, set := range mask {
		if set {
			res = append(res, i)
		}
	}
	return res
}

type gameState struct {
	Size     int
	Mines    []int
	Revealed []int
	Status   Status
}

func (g *Game) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gameState{
		Size:     g.size,
		Mines:    g.Mines(),
		Revealed: g.Revealed(),
		Status:   g.status,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGame restores a game produced by [Game.Bytes]. Future resets draw
// from r.
func DecodeGame(b []byte, r *rand.Rand) (*Game, error) {
	var state gameState
	if err := gob.NewDecoder(bytes.NewBuffer(b)).Decode(&state); err != nil {
		return nil, err
	}
	if err := validateLayout(state.Size, state.Mines); err != nil {
		return nil, err
	}

	g := NewGame(r)
	g.install(state.Size, state.Mines)
	exploded := 0
	for _, i := range state.Revealed {
		if i < 0 || i >= g.size || g.revealed[i] {
			return nil, AssertionError{fmt.Sprintf("bad revealed cell %d", i)}
		}
		g.revealed[i] = true
		g.nrevealed++
		if g.mines[i] {
			exploded++
		}
	}

	switch {
	case exploded > 1:
		return nil, AssertionError{"more than one revealed mine"}
	case exploded == 1:
		g.status = Lost
	case g.nrevealed == g.size-g.nmines:
		g.status = Won
	}
	if g.status != state.Status {
		return nil, AssertionError{fmt.Sprintf(
			"status %s does not match cells (%s)", state.Status, g.status,
		)}
	}
	return g, nil
}
