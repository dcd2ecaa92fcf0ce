package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hivegames/backend/internal/auth"
	"hivegames/backend/internal/classifier"
	"hivegames/backend/internal/config"
	"hivegames/backend/internal/database"
	"hivegames/backend/internal/ingest"
	"hivegames/backend/internal/jobs"
	"hivegames/backend/internal/models"
	"hivegames/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAdminToken = "test-admin-token"

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		JWTSecret:  "test-secret",
		AdminToken: testAdminToken,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	SetupIngestion(ingest.NewService(db, classifier.New("")), jobs.NewManager())

	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", RegisterUser)
		api.POST("/auth/login", LoginUser)

		public := api.Group("/")
		public.Use(auth.OptionalAuthMiddleware())
		{
			public.GET("/torrents", GetTorrents)
			public.GET("/torrents/search", SearchTorrents)
			public.GET("/torrents/:id", GetTorrentByID)
			public.GET("/torrents/:id/comments", GetTorrentComments)
			public.GET("/groups/:title", GetTorrentGroup)
			public.GET("/groups/:title/comments", GetGroupComments)
			public.GET("/genres", GetGenres)
			public.GET("/sources", GetSources)
		}

		authed := api.Group("/")
		authed.Use(auth.AuthMiddleware())
		{
			authed.GET("/users/me", GetMe)
			authed.POST("/torrents/:id/like", ToggleLike)
			authed.POST("/torrents/:id/comments", PostTorrentComment)
			authed.POST("/groups/:title/comments", PostGroupComment)
		}

		admin := api.Group("/admin")
		admin.Use(auth.AdminMiddleware())
		{
			admin.POST("/upload", UploadJSON)
			admin.GET("/jobs/:id", GetJob)
		}
	}
	return router
}

func createUser(t *testing.T, username string) (models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	require.NoError(t, database.DB.Create(&user).Error)

	token, err := jwt.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func createTorrent(t *testing.T, title, cleanTitle string, genres []string, sources ...models.Source) models.GameTorrent {
	t.Helper()

	torrent := models.GameTorrent{
		Title:      title,
		CleanTitle: cleanTitle,
		Genres:     genres,
		Sources:    sources,
	}
	require.NoError(t, database.DB.Create(&torrent).Error)
	return torrent
}

func doRequest(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
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

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRegisterLoginAndMe(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)

	// duplicate username
	w = doRequest(router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// login by email
	w = doRequest(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"login":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"login":    "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decodeBody(t, w)["username"])

	w = doRequest(router, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleLike(t *testing.T) {
	router := setupRouter(t)
	_, token := createUser(t, "alice")
	torrent := createTorrent(t, "Hades", "Hades", []string{"Action"})

	path := fmt.Sprintf("/api/v1/torrents/%d/like", torrent.ID)

	w := doRequest(router, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["is_liked"])
	assert.Equal(t, float64(1), body["likes"])

	// the like shows up on the profile
	w = doRequest(router, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	liked := decodeBody(t, w)["liked_games"].([]any)
	require.Len(t, liked, 1)
	assert.Equal(t, float64(torrent.ID), liked[0])

	// second toggle removes the like
	w = doRequest(router, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["is_liked"])
	assert.Equal(t, float64(0), body["likes"])

	w = doRequest(router, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTorrentComments(t *testing.T) {
	router := setupRouter(t)
	_, token := createUser(t, "alice")
	torrent := createTorrent(t, "Hades", "Hades", nil)

	path := fmt.Sprintf("/api/v1/torrents/%d/comments", torrent.ID)

	w := doRequest(router, http.MethodPost, path, token, gin.H{"content": "  Great game  "})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Great game", body["content"])
	assert.Equal(t, "alice", body["username"])

	w = doRequest(router, http.MethodPost, path, token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []CommentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
}

func TestGroupComments(t *testing.T) {
	router := setupRouter(t)
	_, token := createUser(t, "alice")
	createTorrent(t, "Hades v1.0", "Hades", nil)

	w := doRequest(router, http.MethodPost, "/api/v1/groups/Hades/comments", token, gin.H{"content": "Whole group comment"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/groups/Nonexistent/comments", token, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/groups/Hades/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []CommentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
}

func TestGetTorrentsGroupsAndFilters(t *testing.T) {
	router := setupRouter(t)
	createTorrent(t, "Captain Blood (MULTi17) [DODI Repack]", "Captain Blood", []string{"Action"},
		models.Source{Name: "DODI"})
	createTorrent(t, "Captain Blood [FitGirl Repack]", "Captain Blood", []string{"Action"},
		models.Source{Name: "FitGirl"})
	createTorrent(t, "Stardew Valley", "Stardew Valley", []string{"Simulation"},
		models.Source{Name: "GOG"})

	w := doRequest(router, http.MethodGet, "/api/v1/torrents", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].([]any)
	assert.Len(t, data, 2, "same clean title collapses into one group")

	w = doRequest(router, http.MethodGet, "/api/v1/torrents?genres=Simulation", "", nil)
	body = decodeBody(t, w)
	data = body["data"].([]any)
	require.Len(t, data, 1)
	group := data[0].(map[string]any)
	assert.Equal(t, "Stardew Valley", group["title"])

	w = doRequest(router, http.MethodGet, "/api/v1/torrents?sources=FitGirl", "", nil)
	body = decodeBody(t, w)
	data = body["data"].([]any)
	require.Len(t, data, 1)
	group = data[0].(map[string]any)
	sources := group["sources"].([]any)
	require.Len(t, sources, 1, "source filter prunes the group's source list")
}

func TestGetTorrentGroup(t *testing.T) {
	router := setupRouter(t)
	createTorrent(t, "Hades v1.0", "Hades", nil, models.Source{Name: "DODI"})
	createTorrent(t, "Hades v2.0", "Hades", nil, models.Source{Name: "FitGirl"})

	w := doRequest(router, http.MethodGet, "/api/v1/groups/Hades", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	sources := body["sources"].([]any)
	assert.Len(t, sources, 2)

	w = doRequest(router, http.MethodGet, "/api/v1/groups/Nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchTorrents(t *testing.T) {
	router := setupRouter(t)
	createTorrent(t, "The Witcher 3 (MULTi17)", "The Witcher 3", nil)
	createTorrent(t, "Hades", "Hades", nil)

	w := doRequest(router, http.MethodGet, "/api/v1/torrents/search?q=witcher", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var groups []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "The Witcher 3", groups[0]["cleanTitle"])

	w = doRequest(router, http.MethodGet, "/api/v1/torrents/search?q=wicher&fuzzy=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/torrents/search?q=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenreAndSourceFacets(t *testing.T) {
	router := setupRouter(t)
	createTorrent(t, "A", "", []string{"Action"}, models.Source{Name: "DODI"})
	createTorrent(t, "B", "", []string{"Action", "Indie"}, models.Source{Name: "DODI"})
	createTorrent(t, "C", "", []string{"Indie"}, models.Source{Name: "FitGirl"})

	w := doRequest(router, http.MethodGet, "/api/v1/genres", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var genres []FacetCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genres))
	require.Len(t, genres, 2)
	assert.Equal(t, int64(2), genres[0].Count)

	w = doRequest(router, http.MethodGet, "/api/v1/sources", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sources []FacetCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	require.Len(t, sources, 2)
	assert.Equal(t, "DODI", sources[0].Name)
}

func TestAdminUpload(t *testing.T) {
	router := setupRouter(t)

	payload := gin.H{
		"name": "FitGirl",
		"downloads": []gin.H{
			{"title": "Hades", "uris": []string{"magnet:a"}},
		},
	}

	w := doRequest(router, http.MethodPost, "/api/v1/admin/upload", "", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/admin/upload", testAdminToken, payload)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["created"])

	var count int64
	database.DB.Model(&models.GameTorrent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAdminMiddlewareAcceptsAdminUser(t *testing.T) {
	router := setupRouter(t)

	user, token := createUser(t, "root")
	require.NoError(t, database.DB.Model(&user).Update("is_admin", true).Error)

	w := doRequest(router, http.MethodGet, "/api/v1/admin/jobs/latest", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "authorized but no jobs yet")

	_, plainToken := createUser(t, "pleb")
	w = doRequest(router, http.MethodGet, "/api/v1/admin/jobs/latest", plainToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetTorrentByID(t *testing.T) {
	router := setupRouter(t)
	torrent := createTorrent(t, "Hades", "Hades", []string{"Action"}, models.Source{Name: "DODI", URIs: []string{"magnet:a"}})

	w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/torrents/%d", torrent.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Hades", body["title"])

	w = doRequest(router, http.MethodGet, "/api/v1/torrents/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
