package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/auth"
	"github.com/dmitrijs2005/onechat/internal/server/metrics"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/server/services"
	"github.com/dmitrijs2005/onechat/internal/server/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterWithSink(t, nil)
}

func newTestRouterWithSink(t *testing.T, sink memory.Sink) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New(nil, sink)
	log := logging.NewNop()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	gw := auth.NewGateway(store, []byte("secret"), 0, nil)

	return NewRouter(Deps{
		Users:    services.NewUserService(store, gw, hasher, log),
		Groups:   services.NewGroupService(store, gw, log),
		Messages: services.NewMessageService(store, gw, log),
		Metrics:  metrics.New(),
		Logger:   log,
		Env:      "dev",
	})
}

type call struct {
	status int
	body   map[string]any
}

func do(t *testing.T, r http.Handler, path string, payload any, header ...string) call {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := call{status: w.Code}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out.body))
	}
	return out
}

func login(t *testing.T, r http.Handler, user string) string {
	t.Helper()
	res := do(t, r, "/signup", map[string]string{"username": user, "password": "pw"})
	require.Equal(t, http.StatusOK, res.status)
	res = do(t, r, "/login", map[string]string{"username": user, "password": "pw"})
	require.Equal(t, http.StatusOK, res.status)
	tok, _ := res.body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupLogin(t *testing.T) {
	r := newTestRouter(t)

	res := do(t, r, "/signup", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["success"])
	assert.Equal(t, "Signup successful!", res.body["message"])

	res = do(t, r, "/signup", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, false, res.body["success"])
	assert.Equal(t, "Username already exists!", res.body["message"])

	res = do(t, r, "/signup", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = do(t, r, "/login", map[string]string{"username": "alice", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid credentials!", res.body["message"])
}

func TestMalformedBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupAndMessageFlow(t *testing.T) {
	r := newTestRouter(t)
	alice := login(t, r, "alice")
	bob := login(t, r, "bob")

	res := do(t, r, "/create_group", map[string]string{"token": alice, "groupName": "Cats", "groupNumber": "100"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Group 'Cats' created successfully!", res.body["message"])

	res = do(t, r, "/create_group", map[string]string{"token": bob, "groupName": "Dup", "groupNumber": "100"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Group number already exists!", res.body["message"])

	res = do(t, r, "/join_group", map[string]string{"token": bob, "groupNumber": "100"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Joined group 'Cats' successfully!", res.body["message"])

	res = do(t, r, "/join_group", map[string]string{"token": bob, "groupNumber": "404"})
	assert.Equal(t, http.StatusNotFound, res.status)

	res = do(t, r, "/send_message", map[string]string{"token": bob, "groupNumber": "100", "message": "meow"})
	require.Equal(t, http.StatusOK, res.status)

	res = do(t, r, "/get_messages/100", map[string]string{"token": alice})
	require.Equal(t, http.StatusOK, res.status)
	msgs, _ := res.body["messages"].([]any)
	require.Len(t, msgs, 1)
	m := msgs[0].(map[string]any)
	assert.Equal(t, "bob", m["sender"])
	assert.Equal(t, "meow", m["message"])
	assert.NotEmpty(t, m["time"])

	res = do(t, r, "/group_info/100", nil, "Authorization", "Bearer "+alice)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, []any{"alice", "bob"}, res.body["members"])

	res = do(t, r, "/get_messages/404", map[string]string{"token": alice})
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Group not found!", res.body["message"])
}

func TestProfile(t *testing.T) {
	r := newTestRouter(t)
	alice := login(t, r, "alice")

	do(t, r, "/create_group", map[string]string{"token": alice, "groupName": "Cats", "groupNumber": "100"})
	res := do(t, r, "/update_profile", map[string]string{"token": alice, "newName": "Alice"})
	require.Equal(t, http.StatusOK, res.status)

	res = do(t, r, "/profile", nil, "Authorization", "Bearer "+alice)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "alice", res.body["username"])
	assert.Equal(t, "Alice", res.body["name"])
	assert.Equal(t, []any{map[string]any{"name": "Cats", "number": "100"}}, res.body["groups"])
}

func TestUnauthorizedAndLogout(t *testing.T) {
	r := newTestRouter(t)
	alice := login(t, r, "alice")

	res := do(t, r, "/profile", map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Unauthorized!", res.body["message"])

	res = do(t, r, "/logout", map[string]string{"token": alice})
	require.Equal(t, http.StatusOK, res.status)

	res = do(t, r, "/logout", map[string]string{"token": alice})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid token!", res.body["message"])

	res = do(t, r, "/send_message", map[string]string{"token": alice, "groupNumber": "1", "message": "x"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProdSameHostOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("prod"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "http://api.local/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "http://api.local/x", nil)
	req.Header.Set("Origin", "http://api.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://api.local", w.Header().Get("Access-Control-Allow-Origin"))
}

type brokenSink struct {
	mu     sync.Mutex
	broken bool
}

func (b *brokenSink) Load(ctx context.Context) (*models.Snapshot, error) { return nil, nil }

func (b *brokenSink) Save(ctx context.Context, snap *models.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		return errors.New("disk full")
	}
	return nil
}

func (b *brokenSink) set(broken bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken = broken
}

func TestSaveFailure_ChangeStaysApplied(t *testing.T) {
	sink := &brokenSink{broken: true}
	r := newTestRouterWithSink(t, sink)
	creds := map[string]string{"username": "alice", "password": "pw"}

	res := do(t, r, "/signup", creds)
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, "Could not save data!", res.body["message"])

	res = do(t, r, "/signup", creds)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Username already exists!", res.body["message"])

	sink.set(false)
	res = do(t, r, "/login", creds)
	assert.Equal(t, http.StatusOK, res.status)
	assert.NotEmpty(t, res.body["token"])
}
