package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipcast/api/routes"
	"clipcast/db"
	"clipcast/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orm, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := orm.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(orm))

	manager := db.NewManagerWithORM(orm)

	accounts := services.NewAccountService(manager)
	content := services.NewContentService(manager)
	exclusion := services.NewExclusionService(manager, nil)
	feed := services.NewFeedService(manager, nil, exclusion)
	notify := services.NewNotifyService(manager, services.NewCounterCache(nil), nil, nil)
	engagement := services.NewEngagementService(manager, notify)
	comments := services.NewCommentService(manager, notify)

	router := gin.New()
	routes.PublicApi(router, &routes.Services{
		Accounts:   accounts,
		Content:    content,
		Feed:       feed,
		Engagement: engagement,
		Notify:     notify,
		Comments:   comments,
		WS:         services.NewWSConnManager(),
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerAndLogin(t *testing.T, router *gin.Engine, nickname string) (token, userID string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"nickname": nickname,
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"nickname": nickname,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	return body["token"].(string), body["user_id"].(string)
}

func publishContent(t *testing.T, router *gin.Engine, token, title string) int64 {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/content", token, gin.H{
		"title":      title,
		"media_path": "media/clip.mp3",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decodeBody(t, w)["id"].(float64))
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateNickname(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"nickname": "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Полный путь зрителя: публикация, лента, отметка, уведомление автору,
// проигрывание, комментарий.
func TestViewerFlow(t *testing.T) {
	router := newTestRouter(t)

	authorToken, _ := registerAndLogin(t, router, "author")
	viewerToken, _ := registerAndLogin(t, router, "viewer")

	contentID := publishContent(t, router, authorToken, "First clip")

	// лента отдает опубликованный контент
	w := doJSON(t, router, http.MethodGet, "/api/v1/feed", viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	feedBody := decodeBody(t, w)
	contents := feedBody["contents"].([]any)
	require.Len(t, contents, 1)
	row := contents[0].(map[string]any)
	assert.Equal(t, float64(contentID), row["id"])
	assert.Equal(t, "First clip", row["title"])

	// spotlight on
	on := true
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/content/%d/spotlight", contentID), viewerToken, gin.H{"on": on})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/content/%d", contentID), viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeBody(t, w)
	assert.Equal(t, float64(1), detail["spotlight_num"])
	assert.Equal(t, true, detail["spotlight_flag"])

	// автор видит непрочитанное уведомление
	w = doJSON(t, router, http.MethodGet, "/api/v1/notifications/unread", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/notifications", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notifications := decodeBody(t, w)["notifications"].([]any)
	require.Len(t, notifications, 1)
	notificationID := int64(notifications[0].(map[string]any)["id"].(float64))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", notificationID), authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/notifications/unread", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])

	// play двигает счетчик и пишет историю: контент уходит из ленты
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/content/%d/play", contentID), viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/content/%d", contentID), viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["play_num"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["contents"])

	// комментарий
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/content/%d/comments", contentID), viewerToken, gin.H{"body": "great"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/content/%d/comments", contentID), authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["comments"].([]any), 1)
}

func TestFeedSessionExcludeParam(t *testing.T) {
	router := newTestRouter(t)

	authorToken, _ := registerAndLogin(t, router, "author")
	viewerToken, _ := registerAndLogin(t, router, "viewer")

	first := publishContent(t, router, authorToken, "one")
	second := publishContent(t, router, authorToken, "two")

	path := fmt.Sprintf("/api/v1/feed?exclude=%d", first)
	w := doJSON(t, router, http.MethodGet, path, viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	contents := decodeBody(t, w)["contents"].([]any)
	require.Len(t, contents, 1)
	assert.Equal(t, float64(second), contents[0].(map[string]any)["id"])
}

func TestBlockHidesAuthorFromFeed(t *testing.T) {
	router := newTestRouter(t)

	authorToken, authorID := registerAndLogin(t, router, "author")
	viewerToken, _ := registerAndLogin(t, router, "viewer")
	publishContent(t, router, authorToken, "hidden")

	w := doJSON(t, router, http.MethodPost, "/api/v1/blocks", viewerToken, gin.H{"user_id": authorID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["contents"])

	w = doJSON(t, router, http.MethodDelete, "/api/v1/blocks", viewerToken, gin.H{"user_id": authorID})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["contents"].([]any), 1)
}

func TestSpotlightUnknownContent(t *testing.T) {
	router := newTestRouter(t)
	viewerToken, _ := registerAndLogin(t, router, "viewer")

	on := true
	w := doJSON(t, router, http.MethodPost, "/api/v1/content/404/spotlight", viewerToken, gin.H{"on": on})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	router := newTestRouter(t)
	token, _ := registerAndLogin(t, router, "viewer")

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
