package handlers

import (
	"net/url"

	"github.com/gorilla/schema"

	"github.com/vancomm/tinymines/internal/mines"
	"github.com/vancomm/tinymines/internal/session"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

type GameParamsDTO struct {
	Width     int `schema:"width"`
	Height    int `schema:"height"`
	MineCount int `schema:"mine_count"`
}

// ParseGameParams reads width, height and mine_count from src; missing
// keys keep the values in defaults.
func ParseGameParams(src url.Values, defaults mines.GameParams) (mines.GameParams, error) {
	dto := GameParamsDTO(defaults)
	if err := decoder.Decode(&dto, src); err != nil {
		return defaults, err
	}
	return mines.GameParams(dto), nil
}

type IndexDTO struct {
	Index int `schema:"index,required"`
}

type PositionDTO struct {
	X int `schema:"x,required"`
	Y int `schema:"y,required"`
}

type GameSessionDTO struct {
	SessionId string       `json:"session_id"`
	Token     string       `json:"token,omitempty"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	MineCount int          `json:"mine_count"`
	Status    mines.Status `json:"status"`
	Grid      mines.Grid   `json:"grid"`
	Revealed  []int        `json:"revealed"`
	Mines     []int        `json:"mines,omitempty"`
	StartedAt int64        `json:"started_at"`
	EndedAt   *int64       `json:"ended_at,omitempty"`
}

func NewGameSessionDTO(v session.View) *GameSessionDTO {
	var endedAt *int64
	if v.EndedAt != nil {
		e := v.EndedAt.UnixMilli()
		endedAt = &e
	}
	return &GameSessionDTO{
		SessionId: v.SessionId,
		Width:     v.Params.Width,
		Height:    v.Params.Height,
		MineCount: v.Params.MineCount,
		Status:    v.Status,
		Grid:      v.Grid,
		Revealed:  v.Revealed,
		Mines:     v.Mines,
		StartedAt: v.StartedAt.UnixMilli(),
		EndedAt:   endedAt,
	}
}
