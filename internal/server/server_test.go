package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/repository"
	apikeyservice "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/service"
	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	authrepository "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/repository"
	authservice "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/service"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/magiclink"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/session"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/clock"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	fluxrepository "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/repository"
	fluxservice "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/service"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/observability"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/providers/captcha"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/ratelimit"
	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type captureMailer struct {
	mu   sync.Mutex
	last string
}

func (m *captureMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = htmlBody
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	marker := "verify?token="
	idx := strings.Index(m.last, marker)
	require.GreaterOrEqual(t, idx, 0, "no verify link in email body")
	rest := m.last[idx+len(marker):]
	if end := strings.IndexAny(rest, "\"'"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

type harness struct {
	engine  *gin.Engine
	mailer  *captureMailer
	conn    *gorm.DB
	node    *snowflake.Node
	authsvc authdomain.Service
	users   authdomain.Repository
	server  *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.Config{
		AppName:              "won-service",
		Environment:          "test",
		SessionSecret:        "session-secret-for-tests-0123456789",
		APIKeySecret:         "apikey-secret-for-tests-0123456789ab",
		SessionTTL:           time.Hour,
		MagicLinkTTL:         15 * time.Minute,
		MagicLinkTokenLength: 24,
		MagicLinkBaseURL:     "http://localhost:8080",
		ConfirmURL:           "http://localhost:8080/login/confirmed",
		TroubleURL:           "http://localhost:8080/login/trouble",
	}

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.RoleGrant{},
		&authdomain.MagicLink{},
		&apikeydomain.APIKey{},
		&fluxdomain.Flux{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.System()

	users, links := authrepository.New(conn, node)
	codec, err := session.NewCodec(cfg.SessionSecret)
	require.NoError(t, err)
	authsvc := authservice.New(log, cfg, users, codec, node)

	mailer := &captureMailer{}
	linksvc, err := magiclink.New(log, cfg, links, mailer, clk, node)
	require.NoError(t, err)

	apikeysvc, err := apikeyservice.New(apikeyservice.Params{
		Cfg:   cfg,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(conn),
		Users: users,
	})
	require.NoError(t, err)

	fluxsvc := fluxservice.New(fluxservice.Params{
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  fluxrepository.Provide(conn),
	})

	metrics := observability.NewMetrics()
	srv := NewServer(Params{
		Cfg:      cfg,
		Log:      log,
		Metrics:  metrics,
		Sessions: session.NewManager(cfg),
		AuthSvc:  authsvc,
		Users:    users,
		Links:    linksvc,
		APIKeys:  apikeysvc,
		Fluxes:   fluxsvc,
		Captcha:  &captcha.NoOpProvider{},
		Limiter:  ratelimit.NewMagicLinkLimiter(cfg, log),
	})

	engine := NewEngine(cfg, log, metrics)
	srv.Register(engine)

	return &harness{
		engine:  engine,
		mailer:  mailer,
		conn:    conn,
		node:    node,
		authsvc: authsvc,
		users:   users,
		server:  srv,
	}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

// login walks the full magic link flow and returns the session cookie.
func (h *harness) login(t *testing.T, email string) *http.Cookie {
	t.Helper()

	body := `{"email":"` + email + `","token":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/login/magiclink", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := h.do(req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	verify := httptest.NewRequest(http.MethodGet,
		"/login/magiclink/verify?token="+h.mailer.lastToken(t), nil)
	vw := h.do(verify)
	require.Equal(t, http.StatusFound, vw.Code)
	require.Equal(t, "http://localhost:8080/login/confirmed", vw.Header().Get("Location"))

	for _, cookie := range vw.Result().Cookies() {
		if cookie.Name == "session_token_test" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie set after verify")
	return nil
}

func (h *harness) grantRole(t *testing.T, email, role string) {
	t.Helper()
	ctx := context.Background()
	user, err := h.users.FindByEmail(ctx, email)
	require.NoError(t, err)
	err = h.users.GrantRole(ctx, user.ID, role, time.Now().UTC())
	if err != nil && !errors.Is(err, authdomain.ErrRoleAlreadyGranted) {
		t.Fatalf("grant role: %v", err)
	}
}

func (h *harness) createBot(t *testing.T, email string) *authdomain.User {
	t.Helper()
	bot := &authdomain.User{
		ID:    h.node.Generate(),
		Email: email,
		Kind:  authdomain.KindSystem,
	}
	require.NoError(t, h.users.Create(context.Background(), bot))
	require.NoError(t, h.users.GrantRole(context.Background(), bot.ID, authdomain.RoleUser, time.Now().UTC()))
	return bot
}

func TestMagicLinkLoginFlow(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "alice@example.com")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "alice@example.com")
	require.Contains(t, w.Body.String(), `"member"`)
}

func TestVerifyUnknownTokenRedirectsToTrouble(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/login/magiclink/verify?token=nope", nil)
	w := h.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "http://localhost:8080/login/trouble", w.Header().Get("Location"))
	for _, cookie := range w.Result().Cookies() {
		require.NotEqual(t, "session_token_test", cookie.Name)
	}
}

func TestMagicLinkTokenIsSingleUse(t *testing.T) {
	h := newHarness(t)
	_ = h.login(t, "bob@example.com")
	token := h.mailer.lastToken(t)

	req := httptest.NewRequest(http.MethodGet, "/login/magiclink/verify?token="+token, nil)
	w := h.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "http://localhost:8080/login/trouble", w.Header().Get("Location"))
}

func TestGuardAnonymousGets401(t *testing.T) {
	h := newHarness(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/fluxes"},
		{http.MethodGet, "/api-keys"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := h.do(req)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestGuardMissingRoleGets403(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "carol@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api-keys?user_id=1", nil)
	req.AddCookie(cookie)
	w := h.do(req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaleCookieDegradesToAnonymous(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/fluxes", nil)
	req.AddCookie(&http.Cookie{Name: "session_token_test", Value: "garbage"})
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	me := httptest.NewRequest(http.MethodGet, "/me", nil)
	me.AddCookie(&http.Cookie{Name: "session_token_test", Value: "garbage"})
	mw := h.do(me)
	require.Equal(t, http.StatusUnauthorized, mw.Code)
}

func TestInvalidCookieFallsThroughToBearer(t *testing.T) {
	h := newHarness(t)
	bot := h.createBot(t, "bot4@example.com")

	resp, err := h.server.apikeys.Generate(context.Background(),
		apikeydomain.CreateRequest{UserID: bot.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_token_test", Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+resp.RawKey)
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "bot4@example.com")
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "dave@example.com")

	req := httptest.NewRequest(http.MethodDelete, "/login", nil)
	req.AddCookie(cookie)
	w := h.do(req)
	require.Equal(t, http.StatusNoContent, w.Code)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_token_test" && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared, "expected the session cookie to be expired")
}

func TestAPIKeyBearerFlow(t *testing.T) {
	h := newHarness(t)
	bot := h.createBot(t, "bot@example.com")

	resp, err := h.server.apikeys.Generate(context.Background(),
		apikeydomain.CreateRequest{UserID: bot.ID, Description: "feed ingester"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.RawKey)
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "bot@example.com")

	tampered := resp.RawKey[:len(resp.RawKey)-2] + "zz"
	bad := httptest.NewRequest(http.MethodGet, "/me", nil)
	bad.Header.Set("Authorization", "Bearer "+tampered)
	bw := h.do(bad)
	require.Equal(t, http.StatusUnauthorized, bw.Code)
}

func TestCookieTakesPrecedenceOverBearer(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "erin@example.com")
	bot := h.createBot(t, "bot2@example.com")

	resp, err := h.server.apikeys.Generate(context.Background(),
		apikeydomain.CreateRequest{UserID: bot.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	req.Header.Set("Authorization", "Bearer "+resp.RawKey)
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "erin@example.com")
	require.NotContains(t, w.Body.String(), "bot2@example.com")
}

func TestAdminAPIKeyEndpoints(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "root@example.com")
	h.grantRole(t, "root@example.com", authdomain.RoleAdmin)
	// Re-login so the new role lands in the signed session.
	cookie = h.login(t, "root@example.com")
	bot := h.createBot(t, "bot3@example.com")

	body := `{"user_id":"` + bot.ID.String() + `","description":"ops"}`
	req := httptest.NewRequest(http.MethodPost, "/api-keys", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := h.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"api_key"`)

	list := httptest.NewRequest(http.MethodGet, "/api-keys?user_id="+bot.ID.String(), nil)
	list.AddCookie(cookie)
	lw := h.do(list)
	require.Equal(t, http.StatusOK, lw.Code)
	require.Contains(t, lw.Body.String(), `"ops"`)
	require.NotContains(t, lw.Body.String(), `"api_key"`)

	keys, err := h.server.apikeys.List(context.Background(), bot.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	revoke := httptest.NewRequest(http.MethodDelete, "/api-keys/"+keys[0].KeyID.String(), nil)
	revoke.AddCookie(cookie)
	rw := h.do(revoke)
	require.Equal(t, http.StatusNoContent, rw.Code)
}

func TestFluxFeedOverHTTP(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "fran@example.com")

	body := `{"body":"first post"}`
	req := httptest.NewRequest(http.MethodPost, "/fluxes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := h.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	list := httptest.NewRequest(http.MethodGet, "/fluxes", nil)
	lw := h.do(list)
	require.Equal(t, http.StatusOK, lw.Code)
	require.Contains(t, lw.Body.String(), "first post")

	empty := `{"body":"   "}`
	bad := httptest.NewRequest(http.MethodPost, "/fluxes", strings.NewReader(empty))
	bad.Header.Set("Content-Type", "application/json")
	bad.AddCookie(cookie)
	bw := h.do(bad)
	require.Equal(t, http.StatusBadRequest, bw.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	mw := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, mw.Code)
	require.Contains(t, mw.Body.String(), "won_http_request_duration_seconds")
}
