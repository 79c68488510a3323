package mines

import (
	"fmt"
	"strings"
)

type GameParams struct {
	Width, Height, MineCount int
}

var DefaultParams = GameParams{Width: 3, Height: 3, MineCount: 2}

// MaxCells bounds Width*Height unless a caller picks its own limit with
// [GameParams.ValidateWithin].
const MaxCells = 1 << 16

func (p GameParams) Size() int {
	return p.Width * p.Height
}

func (p GameParams) Validate() error {
	return p.ValidateWithin(MaxCells)
}

// ValidateWithin is [GameParams.Validate] with a grid of at most maxCells
// cells. A non-positive maxCells means [MaxCells].
func (p GameParams) ValidateWithin(maxCells int) error {
	if maxCells <= 0 {
		maxCells = MaxCells
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: grid must be at least 1x1", ErrInvalidConfiguration)
	}
	// compared by division so Width*Height is never computed when it overflows
	if p.Width > maxCells/p.Height {
		return fmt.Errorf("%w: grid larger than %d cells", ErrInvalidConfiguration, maxCells)
	}
	if p.MineCount <= 0 || p.MineCount >= p.Size() {
		return ErrInvalidConfiguration
	}
	return nil
}

func (p GameParams) Seed() string {
	return fmt.Sprintf("%d:%d:%d", p.Width, p.Height, p.MineCount)
}

func ParseSeed(seed string) (*GameParams, error) {
	p := &GameParams{}
	sseed := strings.ReplaceAll(seed, ":", " ")
	n, err := fmt.Sscanf(sseed, "%d %d %d", &p.Width, &p.Height, &p.MineCount)
	if n != 3 || err != nil {
		return nil, fmt.Errorf(
			`invalid game params seed (sseed = "%s", n = %d, err = %w)`,
			sseed, n, err,
		)
	}
	return p, nil
}

func (p GameParams) ValidatePoint(x, y int) bool {
	return 0 <= x && x < p.Width && 0 <= y && y < p.Height
}

// Index maps a column/row pair to a cell index.
func (p GameParams) Index(x, y int) int {
	return y*p.Width + x
}

// Point is the inverse of [GameParams.Index].
func (p GameParams) Point(i int) (x, y int) {
	return i % p.Width, i / p.Width
}
