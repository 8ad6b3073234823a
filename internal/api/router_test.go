package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	iauth "github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/database"
	"github.com/botsmithhq/botsmith/internal/notify"
	"github.com/botsmithhq/botsmith/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	tokens, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "router-test-secret",
		Issuer: "botsmith-test",
	})
	require.NoError(t, err)

	access, err := services.NewAccessService(db, tokens)
	require.NoError(t, err)
	users, err := services.NewUserService(db, services.WithBotAccess(access))
	require.NoError(t, err)
	seeder, err := services.NewSeeder(db, "hi-hello")
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, access, users, seeder)
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(nil)
	invites, err := services.NewInviteService(access, tokens, dispatcher)
	require.NoError(t, err)
	verification, err := services.NewVerificationService(db, users, tokens, dispatcher)
	require.NoError(t, err)
	feedback, err := services.NewFeedbackService(db)
	require.NoError(t, err)

	authn, err := iauth.NewAuthenticator(users, tokens)
	require.NoError(t, err)

	router, err := NewRouter(Dependencies{
		JWT:          tokens,
		Authn:        authn,
		Access:       access,
		Accounts:     accounts,
		Users:        users,
		Invites:      invites,
		Verification: verification,
		Feedback:     feedback,
	})
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/api/account", "", nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	body := decodeBody(t, recorder)
	require.Equal(t, false, body["success"])
}

func TestUnknownRouteGetsEnvelope(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	body := decodeBody(t, recorder)
	require.Equal(t, false, body["success"])
}

func TestSignupLoginProfileFlow(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodPost, "/api/account/registration", "", gin.H{
		"account":    "acme",
		"email":      "owner@acme.test",
		"first_name": "Ada",
		"last_name":  "Owner",
		"password":   "Secret123!",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	registration := decodeBody(t, recorder)
	data := registration["data"].(map[string]any)
	bot := data["bot"].(map[string]any)
	botID := bot["id"].(string)
	require.NotEmpty(t, botID)
	require.Equal(t, "Hi-Hello", bot["name"])

	// Duplicate registration conflicts.
	recorder = doJSON(t, router, http.MethodPost, "/api/account/registration", "", gin.H{
		"account":    "acme",
		"email":      "other@acme.test",
		"first_name": "Ada",
		"password":   "Secret123!",
	})
	require.Equal(t, http.StatusConflict, recorder.Code)

	// Bad password is rejected.
	recorder = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "owner@acme.test",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "owner@acme.test",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	login := decodeBody(t, recorder)
	token := login["data"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, token)

	recorder = doJSON(t, router, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	profile := decodeBody(t, recorder)
	profileData := profile["data"].(map[string]any)
	bots := profileData["bots"].(map[string]any)
	require.Len(t, bots["account_owned"], 1)

	// The owner holds admin on the starter bot, so invites work.
	recorder = doJSON(t, router, http.MethodPost, "/api/bots/"+botID+"/access/invite", token, gin.H{
		"email": "tester@x.com",
		"role":  "tester",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(t, router, http.MethodGet, "/api/bots/"+botID+"/access", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	collaborators := decodeBody(t, recorder)
	list := collaborators["data"].(map[string]any)["collaborators"].([]any)
	require.Len(t, list, 2)

	// Integration tokens are admin-only and bot-scoped.
	recorder = doJSON(t, router, http.MethodPost, "/api/bots/"+botID+"/token/integration", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	integration := decodeBody(t, recorder)
	integrationToken := integration["data"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, integrationToken)

	// The issued token works against the bot it was scoped to.
	recorder = doJSON(t, router, http.MethodGet, "/api/bots/"+botID, integrationToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	bot = decodeBody(t, recorder)["data"].(map[string]any)
	require.Equal(t, botID, bot["id"])

	// But not against any other bot, even in the same account.
	recorder = doJSON(t, router, http.MethodPost, "/api/account/bot", token, gin.H{"name": "support"})
	require.Equal(t, http.StatusCreated, recorder.Code)
	otherBotID := decodeBody(t, recorder)["data"].(map[string]any)["id"].(string)

	recorder = doJSON(t, router, http.MethodGet, "/api/bots/"+otherBotID, integrationToken, nil)
	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestBotRoleGuard(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodPost, "/api/account/registration", "", gin.H{
		"account":    "acme",
		"email":      "owner@acme.test",
		"first_name": "Ada",
		"password":   "Secret123!",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	registration := decodeBody(t, recorder)
	botID := registration["data"].(map[string]any)["bot"].(map[string]any)["id"].(string)

	recorder = doJSON(t, router, http.MethodPost, "/api/account/registration", "", gin.H{
		"account":    "rival",
		"email":      "rival@x.com",
		"first_name": "Eve",
		"password":   "Secret123!",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "rival@x.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	rivalToken := decodeBody(t, recorder)["data"].(map[string]any)["access_token"].(string)

	// No grant on the other account's bot.
	recorder = doJSON(t, router, http.MethodGet, "/api/bots/"+botID, rivalToken, nil)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = doJSON(t, router, http.MethodPost, "/api/bots/"+botID+"/access/invite", rivalToken, gin.H{
		"email": "friend@x.com",
		"role":  "tester",
	})
	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestSSOProvidersEmptyByDefault(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/api/auth/sso/providers", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	require.Empty(t, body["data"].(map[string]any)["providers"])

	recorder = doJSON(t, router, http.MethodGet, "/api/auth/sso/redirect/google", "", nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}
