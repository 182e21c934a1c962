package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"two-truths/internal/config"
	"two-truths/internal/game"
)

var testNow = time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	ts     *httptest.Server
	srv    *Server
	engine *game.Engine
	store  *game.MemoryStore
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.AuthInsecureInitData = true
	cfg.RateLimitPerMinute = 0
	cfg.PublicURL = "https://t.me/two_truths_bot/play"
	return cfg
}

// newTestAPI serves a MemoryStore-backed engine with a fixed clock,
// sequential room ids from 483920 and no statement shuffling.
func newTestAPI(t *testing.T, mutate ...func(*config.Config)) *testAPI {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := game.NewMemoryStore()
	var mu sync.Mutex
	nextID := 483920
	engine := game.NewEngine(store, game.Options{
		Clock: func() time.Time { return testNow },
		RoomID: func() int {
			mu.Lock()
			defer mu.Unlock()
			id := nextID
			nextID++
			return id
		},
		Shuffle: func([]string) {},
		Logger:  logger,
	})
	srv := New(engine, cfg, logger, WithClock(func() time.Time { return testNow }))
	return &testAPI{
		ts:     newTestServer(t, srv.Handler()),
		srv:    srv,
		engine: engine,
		store:  store,
	}
}

// initData builds an unsigned init data payload, accepted in insecure mode.
func initData(id int64, firstName, startParam string) string {
	user, _ := json.Marshal(map[string]any{
		"id":            id,
		"first_name":    firstName,
		"language_code": "en",
	})
	values := url.Values{}
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(testNow.Add(-time.Minute).Unix(), 10))
	if startParam != "" {
		values.Set("start_param", startParam)
	}
	return values.Encode()
}

func (api *testAPI) login(t *testing.T, id int64, firstName string) string {
	t.Helper()
	resp := doRequest(t, api.ts, http.MethodPost, "/api/auth/telegram", map[string]string{
		"init_data": initData(id, firstName, ""),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	token, ok := body["token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected token, got %#v", body["token"])
	}
	return token
}

// player logs in and registers, returning the bearer token.
func (api *testAPI) player(t *testing.T, id int64, name string) string {
	t.Helper()
	token := api.login(t, id, name)
	resp := doAuthRequest(t, api.ts, token, http.MethodPost, "/api/register", map[string]string{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	return token
}

func (api *testAPI) createRoom(t *testing.T, token, name string) int {
	t.Helper()
	resp := doAuthRequest(t, api.ts, token, http.MethodPost, "/api/rooms", map[string]string{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	room := body["room"].(map[string]any)
	return int(room["id"].(float64))
}

func (api *testAPI) joinRoom(t *testing.T, token string, roomID int) {
	t.Helper()
	resp := doAuthRequest(t, api.ts, token, http.MethodPost, roomPath(roomID, "join"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func (api *testAPI) submitFacts(t *testing.T, token string, roomID int, f1, f2, f3 string) {
	t.Helper()
	resp := doAuthRequest(t, api.ts, token, http.MethodPost, roomPath(roomID, "facts"), map[string]string{
		"fact1": f1,
		"fact2": f2,
		"fact3": f3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
}

func roomPath(roomID int, action string) string {
	path := "/api/rooms/" + strconv.Itoa(roomID)
	if action != "" {
		path += "/" + action
	}
	return path
}
