package handlers

import (
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vancomm/tinymines/internal/mines"
	"github.com/vancomm/tinymines/internal/session"
)

func iterBySep(s string, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 0
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, sep)
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}

func parseInts(strs []string) ([]int, error) {
	res := make([]int, len(strs))
	for i, s := range strs {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d must be an int", i+1)
		}
		res[i] = n
	}
	return res, nil
}

// Maps known commands to the allowed numbers of arguments
var commandNargs = map[string][]int{
	"g": {0},
	"o": {1, 2},
	"n": {0, 3},
}

var ErrUnknownCommand = errors.New("unknown command")

func executeCommand(s *session.Session, c string) (session.View, error) {
	parts := strings.Fields(c)
	if len(parts) == 0 {
		return s.Snapshot(), ErrUnknownCommand
	}

	nargs, ok := commandNargs[parts[0]]
	if !ok {
		return s.Snapshot(), ErrUnknownCommand
	}
	args, err := parseInts(parts[1:])
	if err != nil {
		return s.Snapshot(), err
	}
	valid := false
	for _, n := range nargs {
		valid = valid || n == len(args)
	}
	if !valid {
		return s.Snapshot(), fmt.Errorf("invalid number of arguments for %q", parts[0])
	}

	switch parts[0] {
	case "o":
		if len(args) == 1 {
			return s.Reveal(args[0])
		}
		return s.RevealPoint(args[0], args[1])
	case "n":
		params := s.Params()
		if len(args) == 3 {
			params = mines.GameParams{Width: args[0], Height: args[1], MineCount: args[2]}
		}
		return s.Reset(params)
	}
	return s.Touch(), nil
}

const closeTimeout = time.Second

type wsError struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

func (g GameHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	s, err := g.session(r)
	if err != nil {
		g.fail(w, err)
		return
	}

	c, err := g.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Error("unable to upgrade connection")
		return
	}
	defer c.Close()

	log := g.log.WithField("session", s.Id)
	log.Debug("websocket connected")

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("unable to read message")
			}
			break
		}
		if mt != websocket.TextMessage {
			break
		}

		// the session may have been deleted or swept since the last message
		if _, err := g.store.Get(s.Id); err != nil {
			log.Debug("session gone, closing websocket")
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
			if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil {
				log.WithError(err).Warn("unable to write close message")
			}
			return
		}

		text := strings.TrimSpace(string(message))
		log.Debug("\t> ", text)

		var view session.View
		for _, cmd := range iterBySep(text, "\n") {
			view, err = executeCommand(s, cmd)
			if err != nil {
				if err := c.WriteJSON(wsError{cmd, err.Error()}); err != nil {
					log.WithError(err).Error("unable to write error")
					return
				}
			}
		}

		if err := c.WriteJSON(NewGameSessionDTO(view)); err != nil {
			log.WithError(err).Error("unable to write session")
			break
		}
		log.Debug("\t< <session data>")
	}
}
