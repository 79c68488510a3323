package mines

import (
	"fmt"
	"strings"
)

type CellState int8

const (
	Unknown CellState = iota
	Safe
	ExplodedMine
	UnrevealedMine
	/*
	 * Unknown covers both covered safe cells and, while the game is still
	 * being played, covered mines. UnrevealedMine only shows up once the
	 * game is over. ExplodedMine is the mine that ended it.
	 */
)

func (s CellState) String() string {
	switch s {
	case Unknown:
		return "."
	case Safe:
		return "o"
	case ExplodedMine:
		return "X"
	case UnrevealedMine:
		return "*"
	default:
		return "!"
	}
}

var cellStateNames = [...]string{
	Unknown:        "unknown",
	Safe:           "safe",
	ExplodedMine:   "exploded",
	UnrevealedMine: "mine",
}

// [CellState] implements [encoding.TextMarshaler]
func (s CellState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(cellStateNames) {
		return nil, fmt.Errorf("invalid cell state %d", int8(s))
	}
	return []byte(cellStateNames[s]), nil
}

func (s *CellState) UnmarshalText(text []byte) error {
	for i, name := range cellStateNames {
		if name == string(text) {
			*s = CellState(i)
			return nil
		}
	}
	return fmt.Errorf("invalid cell state %q", text)
}

type Grid []CellState

// PlayerGrid returns what a player may see of the board.
func (g *Game) PlayerGrid() Grid {
	grid := make(Grid, g.size)
	for i := range grid {
		switch {
		case g.revealed[i] && g.mines[i]:
			grid[i] = ExplodedMine
		case g.revealed[i]:
			grid[i] = Safe
		case g.mines[i] && g.status.Over():
			grid[i] = UnrevealedMine
		}
	}
	return grid
}

func (g Grid) ToString(width int) string {
	var b strings.Builder
	for y := range (len(g) + width - 1) / width {
		for x := range width {
			i := y*width + x
			if i >= len(g) {
				break
			}
			fmt.Fprint(&b, g[i].String()+" ")
		}
		fmt.Fprint(&b, "\n")
	}
	return b.String()
}
