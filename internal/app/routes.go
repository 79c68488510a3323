package app

import (
	"github.com/vancomm/tinymines/internal/handlers"
)

func (a *App) loadRoutes() {
	game := handlers.NewGameHandler(
		a.log, a.store, a.jwt, a.ws, a.config.Game.Params(),
	)

	a.router.HandleFunc("GET /v1/status", game.Status)

	a.router.HandleFunc("POST /v1/game", game.NewGame)
	a.router.HandleFunc("GET /v1/game/{id}", game.Fetch)
	a.router.HandleFunc("DELETE /v1/game/{id}", game.Delete)
	a.router.HandleFunc("POST /v1/game/{id}/reveal", game.Reveal)
	a.router.HandleFunc("POST /v1/game/{id}/reset", game.Reset)
	a.router.HandleFunc("GET /v1/game/{id}/connect", game.ConnectWS)
}
