package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/auth/password"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/auth/session/cache"
	"github.com/kochabx/passport/core/auth/session/store"
	"github.com/kochabx/passport/core/auth/token"
	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/store/db"
	"github.com/kochabx/passport/store/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	return newLimitedRouter(t, 0)
}

// newLimitedRouter limit 为 0 时不限流
func newLimitedRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	ctx := context.Background()

	client, err := db.New(&db.SQLiteConfig{FilePath: filepath.Join(t.TempDir(), "passport.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, store.AutoMigrate(ctx, client.DB()))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	tcfg := token.Config{Secret: "0123456789abcdef0123456789abcdef"}
	require.NoError(t, tcfg.ApplyDefaults())
	codec, err := token.New(&tcfg)
	require.NoError(t, err)
	hasher, err := password.New(password.Config{BcryptCost: 4})
	require.NoError(t, err)

	users := store.NewUsers(client.DB())
	mgr, err := session.NewManager(session.Config{MaxPerUser: 3}, tcfg, session.Deps{
		Codec:    codec,
		Sessions: store.NewSessions(client.DB()),
		Users:    users,
		Cache:    cache.New(redis.NewFromUniversal(rdb, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	svc, err := auth.New(users, mgr, codec, hasher)
	require.NoError(t, err)

	rc := RouterConfig{Logger: log.NewWriter(io.Discard)}
	if limit > 0 {
		l, err := rate.NewSlidingWindow(rdb, rate.Config{Limit: limit})
		require.NoError(t, err)
		rc.Limiter = l
	}
	return NewRouter(svc, rc)
}

type call struct {
	method  string
	path    string
	body    any
	bearer  string
	headers map[string]string
}

func (c call) do(t *testing.T, h http.Handler) (int, envelope) {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "passport-test")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

var alice = map[string]any{
	"username":         "alice",
	"email":            "alice@example.com",
	"password":         "Secret123",
	"confirm_password": "Secret123",
	"full_name":        "Alice",
}

func register(t *testing.T, h http.Handler) session.TokenPair {
	t.Helper()
	code, env := call{method: http.MethodPost, path: "/api/v1/auth/register", body: alice}.do(t, h)
	require.Equal(t, http.StatusCreated, code, env.Msg)
	return decode[session.TokenPair](t, env)
}

func TestRegister(t *testing.T) {
	h := newRouter(t)

	pair := register(t, h)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEmpty(t, pair.SessionToken)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Positive(t, pair.ExpiresIn)

	code, env := call{method: http.MethodPost, path: "/api/v1/auth/register", body: alice}.do(t, h)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "username already registered", env.Msg)

	dup := map[string]any{"username": "alice2", "email": "alice@example.com", "password": "Secret123"}
	_, env = call{method: http.MethodPost, path: "/api/v1/auth/register", body: dup}.do(t, h)
	assert.Equal(t, "email already registered", env.Msg)
}

func TestRegisterValidation(t *testing.T) {
	h := newRouter(t)

	bad := map[string]any{"username": "al", "email": "nope", "password": "Secret123", "confirm_password": "Other123"}
	code, env := call{method: http.MethodPost, path: "/api/v1/auth/register", body: bad}.do(t, h)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 400, env.Code)

	fields := decode[map[string]string](t, env)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "confirm_password")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed JSON body")
}

func TestLogin(t *testing.T) {
	h := newRouter(t)
	register(t, h)

	code, env := call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "alice", "password": "Wrong1234"}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "incorrect username or password", env.Msg)

	code, env = call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "bob", "password": "Secret123"}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "incorrect username or password", env.Msg)

	code, env = call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "alice", "password": "Secret123", "remember_me": true}}.do(t, h)
	require.Equal(t, http.StatusOK, code)
	pair := decode[session.TokenPair](t, env)

	code, env = call{method: http.MethodGet, path: "/api/v1/auth/me", bearer: pair.AccessToken}.do(t, h)
	require.Equal(t, http.StatusOK, code)
	me := decode[auth.UserIdentity](t, env)
	assert.Equal(t, "alice", me.Username)
	assert.NotNil(t, me.LastLogin)

	code, env = call{method: http.MethodGet, path: "/api/v1/auth/verify", bearer: pair.AccessToken}.do(t, h)
	require.Equal(t, http.StatusOK, code)
	v := decode[verifyResponse](t, env)
	assert.True(t, v.Valid)
	assert.Equal(t, me.ID, v.UserID)
}

func TestBearerRequired(t *testing.T) {
	h := newRouter(t)

	for _, c := range []call{
		{method: http.MethodGet, path: "/api/v1/auth/me"},
		{method: http.MethodGet, path: "/api/v1/auth/verify", bearer: "garbage"},
		{method: http.MethodPost, path: "/api/v1/auth/logout-all"},
		{method: http.MethodDelete, path: "/api/v1/users/me"},
	} {
		code, env := c.do(t, h)
		assert.Equal(t, http.StatusUnauthorized, code, c.path)
		assert.Equal(t, "invalid token", env.Msg)
	}
}

func TestRefresh(t *testing.T) {
	h := newRouter(t)
	pair := register(t, h)

	code, env := call{method: http.MethodPost, path: "/api/v1/auth/refresh", body: refreshRequest{RefreshToken: pair.RefreshToken}}.do(t, h)
	require.Equal(t, http.StatusOK, code)
	next := decode[session.TokenPair](t, env)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	code, env = call{method: http.MethodPost, path: "/api/v1/auth/refresh", body: refreshRequest{RefreshToken: pair.RefreshToken}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "session not found", env.Msg)

	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/refresh", body: refreshRequest{}}.do(t, h)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = call{method: http.MethodPost, path: "/api/v1/auth/refresh", body: refreshRequest{RefreshToken: pair.AccessToken}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid token", env.Msg)
}

func TestSessionAndLogout(t *testing.T) {
	h := newRouter(t)
	pair := register(t, h)
	withSession := map[string]string{HeaderSessionToken: pair.SessionToken}

	code, env := call{method: http.MethodGet, path: "/api/v1/auth/session", headers: withSession}.do(t, h)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", decode[auth.UserIdentity](t, env).Username)

	code, _ = call{method: http.MethodGet, path: "/api/v1/auth/session"}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/logout", bearer: pair.AccessToken}.do(t, h)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/logout", bearer: pair.AccessToken, headers: withSession}.do(t, h)
	require.Equal(t, http.StatusOK, code)

	code, env = call{method: http.MethodGet, path: "/api/v1/auth/session", headers: withSession}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "session not found", env.Msg)

	// 重复登出依然成功，令牌也可以放在请求体里
	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/logout", bearer: pair.AccessToken, body: logoutRequest{SessionToken: pair.SessionToken}}.do(t, h)
	assert.Equal(t, http.StatusOK, code)

	// 访问令牌在有效期内不受登出影响
	code, _ = call{method: http.MethodGet, path: "/api/v1/auth/verify", bearer: pair.AccessToken}.do(t, h)
	assert.Equal(t, http.StatusOK, code)
}

func TestLogoutAll(t *testing.T) {
	h := newRouter(t)
	first := register(t, h)

	_, env := call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "alice", "password": "Secret123"}}.do(t, h)
	second := decode[session.TokenPair](t, env)

	code, _ := call{method: http.MethodPost, path: "/api/v1/auth/logout-all", bearer: second.AccessToken}.do(t, h)
	require.Equal(t, http.StatusOK, code)

	for _, p := range []session.TokenPair{first, second} {
		code, _ = call{method: http.MethodGet, path: "/api/v1/auth/session", headers: map[string]string{HeaderSessionToken: p.SessionToken}}.do(t, h)
		assert.Equal(t, http.StatusUnauthorized, code)

		code, _ = call{method: http.MethodPost, path: "/api/v1/auth/refresh", body: refreshRequest{RefreshToken: p.RefreshToken}}.do(t, h)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
}

func TestChangePassword(t *testing.T) {
	h := newRouter(t)
	pair := register(t, h)
	path := "/api/v1/users/me/password"

	code, env := call{method: http.MethodPut, path: path, bearer: pair.AccessToken, body: passwordRequest{CurrentPassword: "Secret123", NewPassword: "Better456", ConfirmNewPassword: "Better789"}}.do(t, h)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, decode[map[string]string](t, env), "confirm_new_password")

	code, env = call{method: http.MethodPut, path: path, bearer: pair.AccessToken, body: passwordRequest{CurrentPassword: "Wrong1234", NewPassword: "Better456"}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "incorrect username or password", env.Msg)

	code, _ = call{method: http.MethodPut, path: path, bearer: pair.AccessToken, body: passwordRequest{CurrentPassword: "Secret123", NewPassword: "Better456", ConfirmNewPassword: "Better456"}}.do(t, h)
	require.Equal(t, http.StatusOK, code)

	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "alice", "password": "Secret123"}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "alice", "password": "Better456"}}.do(t, h)
	assert.Equal(t, http.StatusOK, code)

	code, _ = call{method: http.MethodGet, path: "/api/v1/auth/session", headers: map[string]string{HeaderSessionToken: pair.SessionToken}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpdateProfile(t *testing.T) {
	h := newRouter(t)
	pair := register(t, h)

	code, env := call{method: http.MethodPut, path: "/api/v1/users/me", bearer: pair.AccessToken, body: auth.ProfileInput{FullName: "Alice Liddell", Email: "liddell@example.com"}}.do(t, h)
	require.Equal(t, http.StatusOK, code, env.Msg)
	me := decode[auth.UserIdentity](t, env)
	assert.Equal(t, "Alice Liddell", me.FullName)
	assert.Equal(t, "liddell@example.com", me.Email)

	code, env = call{method: http.MethodPut, path: "/api/v1/users/me", bearer: pair.AccessToken, body: auth.ProfileInput{Email: "not-an-email"}}.do(t, h)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, decode[map[string]string](t, env), "email")
}

func TestDeactivate(t *testing.T) {
	h := newRouter(t)
	pair := register(t, h)

	code, _ := call{method: http.MethodDelete, path: "/api/v1/users/me", bearer: pair.AccessToken}.do(t, h)
	require.Equal(t, http.StatusOK, code)

	code, env := call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]any{"username": "alice", "password": "Secret123"}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "account is inactive", env.Msg)

	code, env = call{method: http.MethodGet, path: "/api/v1/auth/me", bearer: pair.AccessToken}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "user not found or inactive", env.Msg)
}

func TestRequestIDHeader(t *testing.T) {
	h := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestLoginRateLimit(t *testing.T) {
	h := newLimitedRouter(t, 2)
	wrong := map[string]any{"username": "alice", "password": "Wrong1234"}

	for i := 0; i < 2; i++ {
		code, _ := call{method: http.MethodPost, path: "/api/v1/auth/login", body: wrong}.do(t, h)
		assert.Equal(t, http.StatusUnauthorized, code)
	}

	code, env := call{method: http.MethodPost, path: "/api/v1/auth/login", body: wrong}.do(t, h)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "too many requests", env.Msg)

	// 不同客户端单独计数
	code, _ = call{method: http.MethodPost, path: "/api/v1/auth/login", body: wrong, headers: map[string]string{"X-Real-IP": "198.51.100.7"}}.do(t, h)
	assert.Equal(t, http.StatusUnauthorized, code)
}
