package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/config"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database/dbtest"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/llm"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpenAIKey = "sk-abcdefghijklmnopqrstuvwxyz123456"

type envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbtest.Setup(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	database.RedisClient = client
	t.Cleanup(func() {
		_ = client.Close()
		database.RedisClient = nil
	})

	c, err := crypto.NewCipher([]byte("0123456789abcdef0123456789abcdef"), []byte("abcdef9876543210"))
	require.NoError(t, err)
	services.SetCredentialCipher(c)

	tokens := auth.NewJWTService("router-test-secret", time.Hour, nil)
	services.SetTokenService(tokens)
	t.Cleanup(func() {
		services.SetCredentialCipher(nil)
		services.SetTokenService(nil)
	})

	cfg := &config.Config{
		CORSOrigins:    []string{"http://localhost:5173"},
		LoginRateLimit: 100,
		LoginRateBurst: 100,
	}
	return &testServer{t: t, router: NewRouter(cfg, tokens)}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	code, _ := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusCreated, code)

	code, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type templateItem struct {
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	IsShared  bool     `json:"is_shared"`
	LikeCount int      `json:"like_count"`
	IsLiked   *bool    `json:"is_liked"`
}

type page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice", "secret123")

	code, env := s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "user", me["role"])
	assert.NotContains(t, string(env.Data), "password")

	code, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "al"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request parameters", env.Message)
}

func TestTemplateLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice", "secret123")
	bob := s.login("bob", "secret123")

	code, env := s.do(http.MethodPost, "/api/v1/templates", alice, gin.H{
		"title":   "Code review",
		"content": "Review this code",
		"tags":    []string{"dev", " dev ", "review"},
	})
	require.Equal(t, http.StatusCreated, code)
	created := decode[templateItem](t, env.Data)
	assert.Equal(t, []string{"dev", "review"}, created.Tags)
	path := fmt.Sprintf("/api/v1/templates/%d", created.ID)

	code, _ = s.do(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, code, "private templates are hidden from other users")

	code, _ = s.do(http.MethodPut, path, bob, gin.H{"title": "Hijack"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPut, path, alice, gin.H{"title": "Careful review"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Careful review", decode[templateItem](t, env.Data).Title)

	code, env = s.do(http.MethodGet, "/api/v1/templates?search=careful", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decode[page[templateItem]](t, env.Data).Total)

	code, _ = s.do(http.MethodGet, "/api/v1/templates?sort_by=bogus", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPut, path+"/share", alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/shared-templates", "", nil)
	require.Equal(t, http.StatusOK, code)
	anon := decode[page[templateItem]](t, env.Data)
	require.Len(t, anon.Items, 1)
	assert.Nil(t, anon.Items[0].IsLiked)

	code, env = s.do(http.MethodPost, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, env.Data)["like_count"])

	code, _ = s.do(http.MethodPost, path+"/like", bob, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodGet, "/api/v1/shared-templates", bob, nil)
	require.Equal(t, http.StatusOK, code)
	shared := decode[page[templateItem]](t, env.Data)
	require.Len(t, shared.Items, 1)
	require.NotNil(t, shared.Items[0].IsLiked)
	assert.True(t, *shared.Items[0].IsLiked)
	assert.Equal(t, 1, shared.Items[0].LikeCount)

	code, env = s.do(http.MethodGet, "/api/v1/templates/liked", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decode[page[templateItem]](t, env.Data).Total)

	code, env = s.do(http.MethodDelete, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, env.Data)["like_count"])

	code, _ = s.do(http.MethodDelete, path+"/like", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/v1/templates/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/templates", "/api/v1/histories", "/api/v1/settings/api-keys", "/api/v1/admin/users"} {
		code, env := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, "Authentication required", env.Message, path)
	}

	user := s.login("carol", "secret123")
	code, _ := s.do(http.MethodGet, "/api/v1/admin/users", user, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSettingsAndOptimize(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice", "secret123")

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testOpenAIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"Better prompt"}}]}`))
	}))
	t.Cleanup(provider.Close)
	services.SetLLMClient(llm.NewClient(llm.Options{HTTPClient: provider.Client()}))
	t.Cleanup(func() { services.SetLLMClient(llm.NewClient(llm.Options{})) })

	optimize := gin.H{"provider": "openai", "prompt": "write a poem"}

	code, env := s.do(http.MethodPost, "/api/v1/prompts/optimize", token, optimize)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please configure a valid API key for openai in settings", env.Message)

	code, _ = s.do(http.MethodPut, "/api/v1/settings/api-keys", token, gin.H{"provider": "openai", "api_key": "bad"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPut, "/api/v1/settings/api-keys", token, gin.H{
		"provider": "openai",
		"api_key":  testOpenAIKey,
		"base_url": provider.URL,
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), testOpenAIKey)

	code, env = s.do(http.MethodGet, "/api/v1/settings/api-keys", token, nil)
	require.Equal(t, http.StatusOK, code)
	views := decode[[]services.CredentialView](t, env.Data)
	require.Len(t, views, 1)
	assert.Equal(t, "sk-a****3456", views[0].MaskedKey)
	assert.NotContains(t, string(env.Data), testOpenAIKey)

	code, env = s.do(http.MethodPost, "/api/v1/prompts/optimize", token, optimize)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Better prompt", decode[map[string]interface{}](t, env.Data)["result"])

	code, env = s.do(http.MethodGet, "/api/v1/histories", token, nil)
	require.Equal(t, http.StatusOK, code)
	histories := decode[page[map[string]interface{}]](t, env.Data)
	require.Equal(t, int64(1), histories.Total)
	historyPath := "/api/v1/histories/" + histories.Items[0]["id"].(string)

	code, _ = s.do(http.MethodGet, historyPath, token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, historyPath, token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, historyPath, token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodDelete, "/api/v1/settings/api-keys/openai", token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/api/v1/settings/api-keys/openai", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHistoryCreate(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice", "secret123")

	code, env := s.do(http.MethodPost, "/api/v1/histories", token, gin.H{"prompt": "p", "result": "r"})
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, decode[map[string]interface{}](t, env.Data)["id"], 16)

	code, _ = s.do(http.MethodPost, "/api/v1/histories", token, gin.H{"prompt": "p"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", env.Message)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
