package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/tinymines/internal/config"
	"github.com/vancomm/tinymines/internal/middleware"
	"github.com/vancomm/tinymines/internal/mines"
	"github.com/vancomm/tinymines/internal/session"
)

type testServer struct {
	*httptest.Server
	store *session.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log, _ := test.NewNullLogger()
	j, err := config.NewJWT(config.JwtConfig{Secret: "test"})
	require.NoError(t, err)
	store := session.NewStore(rand.New(rand.NewPCG(1, 2)), 0, mines.MaxCells)

	game := NewGameHandler(log, store, j, config.NewWebSocket(), mines.DefaultParams)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/status", game.Status)
	mux.HandleFunc("POST /v1/game", game.NewGame)
	mux.HandleFunc("GET /v1/game/{id}", game.Fetch)
	mux.HandleFunc("DELETE /v1/game/{id}", game.Delete)
	mux.HandleFunc("POST /v1/game/{id}/reveal", game.Reveal)
	mux.HandleFunc("POST /v1/game/{id}/reset", game.Reset)
	mux.HandleFunc("GET /v1/game/{id}/connect", game.ConnectWS)

	srv := httptest.NewServer(middleware.Wrap(mux, middleware.Auth(log, j)))
	t.Cleanup(srv.Close)
	return &testServer{srv, store}
}

func (s *testServer) do(t *testing.T, method, path, token string, query url.Values) (*http.Response, []byte) {
	t.Helper()
	u := s.URL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, body
}

func decodeSession(t *testing.T, body []byte) GameSessionDTO {
	t.Helper()
	var dto GameSessionDTO
	require.NoError(t, json.Unmarshal(body, &dto), string(body))
	return dto
}

func (s *testServer) newGame(t *testing.T, query url.Values) GameSessionDTO {
	t.Helper()
	res, body := s.do(t, http.MethodPost, "/v1/game", "", query)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	return decodeSession(t, body)
}

func TestNewGameDefaults(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)

	assert.NotEmpty(t, dto.SessionId)
	assert.NotEmpty(t, dto.Token)
	assert.Equal(t, 3, dto.Width)
	assert.Equal(t, 3, dto.Height)
	assert.Equal(t, 2, dto.MineCount)
	assert.Equal(t, mines.Playing, dto.Status)
	assert.Len(t, dto.Grid, 9)
	assert.Empty(t, dto.Revealed)
	assert.Empty(t, dto.Mines)
	assert.Nil(t, dto.EndedAt)
}

func TestNewGameParams(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, url.Values{"width": {"5"}, "height": {"4"}, "mine_count": {"3"}})
	assert.Equal(t, 5, dto.Width)
	assert.Equal(t, 4, dto.Height)
	assert.Equal(t, 3, dto.MineCount)
	assert.Len(t, dto.Grid, 20)

	tests := []url.Values{
		{"mine_count": {"9"}},
		{"mine_count": {"0"}},
		{"width": {"abc"}},
		{"width": {"0"}},
		{"width": {"257"}, "height": {"256"}},
		{"width": {"40000"}, "height": {"40000"}, "mine_count": {"1"}},
		{"width": {"4611686018427387905"}, "height": {"4"}, "mine_count": {"1"}},
	}
	for _, query := range tests {
		res, body := srv.do(t, http.MethodPost, "/v1/game", "", query)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, query.Encode())
		assert.Contains(t, string(body), `"error"`)
	}
}

func TestRevealUntilOver(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	path := "/v1/game/" + dto.SessionId + "/reveal"

	for i := range 9 {
		res, body := srv.do(t, http.MethodPost, path, dto.Token, url.Values{"index": {fmt.Sprint(i)}})
		require.Equal(t, http.StatusOK, res.StatusCode, string(body))
		next := decodeSession(t, body)
		if dto.Status.Over() {
			assert.Equal(t, dto.Status, next.Status)
			assert.Equal(t, dto.Revealed, next.Revealed)
		}
		dto = next
		if dto.Status == mines.Playing {
			assert.Empty(t, dto.Mines)
			for _, c := range dto.Grid {
				assert.NotEqual(t, mines.UnrevealedMine, c)
			}
		}
	}

	require.True(t, dto.Status.Over())
	assert.Len(t, dto.Mines, 2)
	assert.NotNil(t, dto.EndedAt)
	if dto.Status == mines.Lost {
		last := dto.Revealed[len(dto.Revealed)-1]
		assert.Contains(t, dto.Mines, last)
		assert.Equal(t, mines.ExplodedMine, dto.Grid[last])
	} else {
		assert.Len(t, dto.Revealed, 7)
	}
}

func TestRevealTwoCells(t *testing.T) {
	srv := newTestServer(t)
	for range 10 {
		dto := srv.newGame(t, url.Values{"width": {"2"}, "height": {"1"}, "mine_count": {"1"}})
		res, body := srv.do(t, http.MethodPost, "/v1/game/"+dto.SessionId+"/reveal",
			dto.Token, url.Values{"x": {"0"}, "y": {"0"}})
		require.Equal(t, http.StatusOK, res.StatusCode)

		dto = decodeSession(t, body)
		switch dto.Status {
		case mines.Won:
			assert.Equal(t, []int{1}, dto.Mines)
			assert.Equal(t, mines.Grid{mines.Safe, mines.UnrevealedMine}, dto.Grid)
		case mines.Lost:
			assert.Equal(t, []int{0}, dto.Mines)
			assert.Equal(t, mines.Grid{mines.ExplodedMine, mines.Unknown}, dto.Grid)
		default:
			t.Fatalf("game should be over, got %s", dto.Status)
		}
	}
}

func TestRevealErrors(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	other := srv.newGame(t, nil)
	path := "/v1/game/" + dto.SessionId + "/reveal"

	tests := []struct {
		name   string
		path   string
		token  string
		query  url.Values
		status int
	}{
		{"out of range", path, dto.Token, url.Values{"index": {"9"}}, http.StatusBadRequest},
		{"negative", path, dto.Token, url.Values{"index": {"-1"}}, http.StatusBadRequest},
		{"point out of range", path, dto.Token, url.Values{"x": {"3"}, "y": {"0"}}, http.StatusBadRequest},
		{"half a point", path, dto.Token, url.Values{"x": {"1"}}, http.StatusBadRequest},
		{"not a number", path, dto.Token, url.Values{"index": {"one"}}, http.StatusBadRequest},
		{"no cell", path, dto.Token, nil, http.StatusBadRequest},
		{"no token", path, "", url.Values{"index": {"0"}}, http.StatusUnauthorized},
		{"other token", path, other.Token, url.Values{"index": {"0"}}, http.StatusForbidden},
		{"unknown session", "/v1/game/999/reveal", dto.Token, url.Values{"index": {"0"}}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := srv.do(t, http.MethodPost, tt.path, tt.token, tt.query)
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}

	res, body := srv.do(t, http.MethodGet, "/v1/game/"+dto.SessionId, dto.Token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decodeSession(t, body).Revealed)
}

func TestSessionRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	other := srv.newGame(t, nil)
	base := "/v1/game/" + dto.SessionId

	routes := []struct{ method, path string }{
		{http.MethodGet, base},
		{http.MethodPost, base + "/reveal"},
		{http.MethodPost, base + "/reset"},
		{http.MethodDelete, base},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			res, _ := srv.do(t, route.method, route.path, "", url.Values{"index": {"0"}})
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
			res, _ = srv.do(t, route.method, route.path, other.Token, url.Values{"index": {"0"}})
			assert.Equal(t, http.StatusForbidden, res.StatusCode)
		})
	}
	assert.Equal(t, 2, srv.store.Len())
	s, err := srv.store.Get(dto.SessionId)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Revealed)
}

func TestReset(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	base := "/v1/game/" + dto.SessionId

	res, _ := srv.do(t, http.MethodPost, base+"/reveal", dto.Token, url.Values{"index": {"4"}})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = srv.do(t, http.MethodPost, base+"/reset", dto.Token, url.Values{"mine_count": {"9"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res, body := srv.do(t, http.MethodGet, base, dto.Token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []int{4}, decodeSession(t, body).Revealed)

	res, body = srv.do(t, http.MethodPost, base+"/reset", dto.Token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	reset := decodeSession(t, body)
	assert.Equal(t, mines.Playing, reset.Status)
	assert.Empty(t, reset.Revealed)
	assert.Equal(t, 3, reset.Width)

	res, body = srv.do(t, http.MethodPost, base+"/reset", dto.Token, url.Values{"width": {"4"}})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeSession(t, body).Grid, 12)

	res, _ = srv.do(t, http.MethodPost, base+"/reset", dto.Token, url.Values{"width": {"40000"}, "height": {"40000"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res, body = srv.do(t, http.MethodGet, base, dto.Token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeSession(t, body).Grid, 12)
}

func TestDeleteAndStatus(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)

	res, body := srv.do(t, http.MethodGet, "/v1/status", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"ok": true, "sessions": 1}`, string(body))

	res, _ = srv.do(t, http.MethodDelete, "/v1/game/"+dto.SessionId, dto.Token, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res, _ = srv.do(t, http.MethodGet, "/v1/game/"+dto.SessionId, dto.Token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Zero(t, srv.store.Len())
}

func dialWS(t *testing.T, srv *testServer, dto GameSessionDTO) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/v1/game/" + dto.SessionId + "/connect?token=" + url.QueryEscape(dto.Token)
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnectWS(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	c := dialWS(t, srv, dto)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("g")))
	var got GameSessionDTO
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, dto.SessionId, got.SessionId)
	assert.Equal(t, mines.Playing, got.Status)

	// x y form and index form address the same cell
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("o 1 1\no 4")))
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, []int{4}, got.Revealed)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("n 4 4 3")))
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, mines.Playing, got.Status)
	assert.Empty(t, got.Revealed)
	assert.Len(t, got.Grid, 16)
}

func TestConnectWSErrors(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	c := dialWS(t, srv, dto)

	for _, cmd := range []string{"x", "o", "o 1 2 3", "o nine", "o 9", "n 3 3 9", "n 40000 40000 1"} {
		require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(cmd)))

		var e wsError
		require.NoError(t, c.ReadJSON(&e))
		assert.Equal(t, cmd, e.Command)
		assert.NotEmpty(t, e.Error, cmd)

		var got GameSessionDTO
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, mines.Playing, got.Status)
		assert.Len(t, got.Grid, 9)
	}
}

func TestConnectWSClosesDeletedSession(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	c := dialWS(t, srv, dto)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("g")))
	var got GameSessionDTO
	require.NoError(t, c.ReadJSON(&got))

	res, _ := srv.do(t, http.MethodDelete, "/v1/game/"+dto.SessionId, dto.Token, nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("o 0")))
	_, _, err := c.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), err.Error())
	_, err = srv.store.Get(dto.SessionId)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestGetCommandKeepsSessionAlive(t *testing.T) {
	store := session.NewStore(nil, time.Minute, 0)
	s, err := store.Create(mines.DefaultParams)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	touched := time.Now()
	view, err := executeCommand(s, "g")
	require.NoError(t, err)
	assert.Equal(t, mines.Playing, view.Status)

	// without the touch the session would be idle for longer than the ttl
	assert.Zero(t, store.Sweep(touched.Add(time.Minute-time.Millisecond)))
	_, err = store.Get(s.Id)
	assert.NoError(t, err)
}

func TestConnectWSRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	dto := srv.newGame(t, nil)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/game/" + dto.SessionId + "/connect"
	_, res, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestIterBySep(t *testing.T) {
	testCases := []struct {
		input string
		sep   string
		array []string
	}{
		{"a b c", " ", []string{"a", "b", "c"}},
		{"foo\nbar\nbaz\n\nbazz", "\n", []string{"foo", "bar", "baz", "", "bazz"}},
	}
	for _, test := range testCases {
		var got []string
		for i, p := range iterBySep(test.input, test.sep) {
			assert.Equal(t, len(got), i)
			got = append(got, p)
		}
		assert.Equal(t, test.array, got)
	}
}
