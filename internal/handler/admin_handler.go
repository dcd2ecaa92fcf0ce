package handler

import (
	"io"
	"net/http"

	"hivegames/backend/internal/config"
	"hivegames/backend/internal/ingest"
	"hivegames/backend/internal/jobs"

	"github.com/gin-gonic/gin"
)

// Package-level ingestion state, wired once from main. The service holds the
// classifier and its rate limiter, which must survive across requests.
var (
	ingestSvc  *ingest.Service
	jobManager *jobs.Manager
)

// SetupIngestion wires the ingestion service and job table used by the admin
// handlers.
func SetupIngestion(svc *ingest.Service, jm *jobs.Manager) {
	ingestSvc = svc
	jobManager = jm
}

// region --- DTOs ---

// UploadInput defines the structure for a direct feed upload.
type UploadInput struct {
	Name      string            `json:"name" binding:"required" example:"FitGirl"`
	Downloads []ingest.Download `json:"downloads" binding:"required"`
}

// UploadURLInput defines the structure for ingesting a feed by URL.
type UploadURLInput struct {
	URL string `json:"url" binding:"required,url" example:"https://example.com/feed.json"`
}

// endregion

// region --- Upload Handlers ---

// UploadJSON godoc
// @Summary      Ingest a feed from the request body
// @Description  Merges a JSON feed into the catalog. Existing (title, source) pairs are replaced.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UploadInput true "Feed"
// @Success      200 {object} ingest.UpsertStats
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /admin/upload [post]
func UploadJSON(c *gin.Context) {
	var input UploadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := ingestSvc.UpsertFeed(c.Request.Context(), &ingest.Feed{
		Name:      input.Name,
		Downloads: input.Downloads,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest feed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// UploadFile godoc
// @Summary      Ingest a feed from an uploaded file
// @Description  Parses an uploaded JSON file as a feed and merges it into the catalog.
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Feed file"
// @Success      200 {object} ingest.UpsertStats
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /admin/upload-file [post]
func UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open file"})
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	feed, err := ingest.ParseFeedBody(body, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := ingestSvc.UpsertFeed(c.Request.Context(), feed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest feed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// UploadURL godoc
// @Summary      Ingest a feed from a URL
// @Description  Fetches a JSON feed from the given URL and merges it into the catalog.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UploadURLInput true "Feed URL"
// @Success      200 {object} ingest.UpsertStats
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse "Feed unreachable"
// @Router       /admin/upload-url [post]
func UploadURL(c *gin.Context) {
	var input UploadURLInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feed, err := ingestSvc.FetchFeed(c.Request.Context(), input.URL, input.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	stats, err := ingestSvc.UpsertFeed(c.Request.Context(), feed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest feed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// FetchJSON godoc
// @Summary      Proxy-fetch a JSON document
// @Description  Fetches the given URL server-side and returns the raw body, for inspecting feeds before ingestion.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        url query string true "URL to fetch"
// @Success      200 {object} object
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse "URL unreachable"
// @Router       /admin/fetch-json [get]
func FetchJSON(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	body, err := ingestSvc.FetchBody(c.Request.Context(), url)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// endregion

// region --- Bulk Fetch Handlers ---

// AutoFetch godoc
// @Summary      Ingest every feed from the feed index
// @Description  Pulls the configured feed index and ingests all listed feeds. Progress is tracked as a job.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ingest.AutoFetchSummary
// @Failure      401 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse "Feed index unreachable"
// @Router       /admin/auto-fetch [post]
func AutoFetch(c *gin.Context) {
	jobID := jobManager.Create()
	jobManager.Start(jobID)

	summary, err := ingestSvc.AutoFetch(c.Request.Context(), config.AppConfig.FeedIndexURL, jobManager, jobID)
	if err != nil {
		jobManager.Fail(jobID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "job_id": jobID})
		return
	}

	jobManager.Complete(jobID)
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "summary": summary})
}

// GetJob godoc
// @Summary      Get a bulk-ingestion job
// @Description  Retrieves a job by ID, or the most recent one when the ID is "latest".
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID or 'latest'"
// @Success      200 {object} jobs.Job
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Job not found"
// @Router       /admin/jobs/{id} [get]
func GetJob(c *gin.Context) {
	id := c.Param("id")

	var job jobs.Job
	var ok bool
	if id == "latest" {
		job, ok = jobManager.Latest()
	} else {
		job, ok = jobManager.Get(id)
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// endregion
