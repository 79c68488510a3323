package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/tinymines/internal/config"
	"github.com/vancomm/tinymines/internal/middleware"
	"github.com/vancomm/tinymines/internal/mines"
	"github.com/vancomm/tinymines/internal/session"
)

var (
	ErrNoToken      = errors.New("session token required")
	ErrMissingCell  = errors.New("either index or x and y must be given")
	ErrUnknownBoard = errors.New("unknown game session")
)

type GameHandler struct {
	log      *logrus.Logger
	store    *session.Store
	jwt      *config.JWT
	ws       *config.WebSocket
	defaults mines.GameParams
}

func NewGameHandler(
	log *logrus.Logger,
	store *session.Store,
	jwt *config.JWT,
	ws *config.WebSocket,
	defaults mines.GameParams,
) *GameHandler {
	return &GameHandler{
		log:      log,
		store:    store,
		jwt:      jwt,
		ws:       ws,
		defaults: defaults,
	}
}

// statusFor maps engine and store errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mines.ErrInvalidConfiguration),
		errors.Is(err, mines.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, config.ErrTokenSession):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (g GameHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		g.log.WithError(err).Error("request failed")
		w.WriteHeader(status)
		return
	}
	if errors.Is(err, session.ErrNotFound) {
		err = ErrUnknownBoard
	}
	sendErrorOrLog(w, g.log, status, err)
}

// session looks up the session named in the path and checks that the
// request carries a token for it.
func (g GameHandler) session(r *http.Request) (*session.Session, error) {
	s, err := g.store.Get(r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	claims, ok := middleware.SessionClaims(r.Context())
	if !ok {
		return nil, ErrNoToken
	}
	if err := claims.Authorize(s.Id); err != nil {
		return nil, err
	}
	return s, nil
}

func (g GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	params, err := ParseGameParams(r.URL.Query(), g.defaults)
	if err != nil {
		sendErrorOrLog(w, g.log, http.StatusBadRequest, err)
		return
	}

	s, err := g.store.Create(params)
	if err != nil {
		g.fail(w, err)
		return
	}

	token, err := g.jwt.Sign(s.Id)
	if err != nil {
		g.log.WithError(err).Error("unable to sign session token")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	g.log.WithFields(logrus.Fields{
		"session": s.Id,
		"params":  params.Seed(),
	}).Debug("created session")

	dto := NewGameSessionDTO(s.Snapshot())
	dto.Token = token
	sendStatusJSONOrLog(w, g.log, http.StatusCreated, dto)
}

func (g GameHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	s, err := g.session(r)
	if err != nil {
		g.fail(w, err)
		return
	}
	sendJSONOrLog(w, g.log, NewGameSessionDTO(s.Snapshot()))
}

func (g GameHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	s, err := g.session(r)
	if err != nil {
		g.fail(w, err)
		return
	}

	query := r.URL.Query()
	var view session.View
	switch {
	case query.Has("index"):
		var dto IndexDTO
		if err := decoder.Decode(&dto, query); err != nil {
			sendErrorOrLog(w, g.log, http.StatusBadRequest, err)
			return
		}
		view, err = s.Reveal(dto.Index)
	case query.Has("x") || query.Has("y"):
		var dto PositionDTO
		if err := decoder.Decode(&dto, query); err != nil {
			sendErrorOrLog(w, g.log, http.StatusBadRequest, err)
			return
		}
		view, err = s.RevealPoint(dto.X, dto.Y)
	default:
		sendErrorOrLog(w, g.log, http.StatusBadRequest, ErrMissingCell)
		return
	}
	if err != nil {
		g.fail(w, err)
		return
	}

	sendJSONOrLog(w, g.log, NewGameSessionDTO(view))
}

func (g GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, err := g.session(r)
	if err != nil {
		g.fail(w, err)
		return
	}

	params, err := ParseGameParams(r.URL.Query(), s.Params())
	if err != nil {
		sendErrorOrLog(w, g.log, http.StatusBadRequest, err)
		return
	}

	view, err := s.Reset(params)
	if err != nil {
		g.fail(w, err)
		return
	}

	sendJSONOrLog(w, g.log, NewGameSessionDTO(view))
}

func (g GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, err := g.session(r)
	if err != nil {
		g.fail(w, err)
		return
	}
	if err := g.store.Delete(s.Id); err != nil {
		g.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type StatusDTO struct {
	Ok       bool `json:"ok"`
	Sessions int  `json:"sessions"`
}

func (g GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	sendJSONOrLog(w, g.log, StatusDTO{Ok: true, Sessions: g.store.Len()})
}
