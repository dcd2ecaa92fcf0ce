package handler

import (
	"net/http"
	"strconv"
	"strings"

	"hivegames/backend/internal/database"
	"hivegames/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// CommentInput defines the structure for posting a comment.
type CommentInput struct {
	Content string `json:"content" binding:"required" example:"Runs great on the Steam Deck"`
}

// CommentResponse defines a comment with its author.
type CommentResponse struct {
	ID        uint   `json:"id" example:"1"`
	Content   string `json:"content"`
	Username  string `json:"username" example:"testuser"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt string `json:"created_at"`
}

func newCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		Content:   comment.Content,
		Username:  comment.User.Username,
		Avatar:    comment.User.Avatar,
		CreatedAt: comment.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func newCommentResponses(comments []models.Comment) []CommentResponse {
	responses := make([]CommentResponse, len(comments))
	for i, comment := range comments {
		responses[i] = newCommentResponse(comment)
	}
	return responses
}

func validateCommentContent(c *gin.Context, input *CommentInput) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment cannot be empty"})
		return false
	}
	if len(input.Content) > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment must be at most 1000 characters"})
		return false
	}
	return true
}

// endregion

// region --- Entry Comment Handlers ---

// GetTorrentComments godoc
// @Summary      List comments on a torrent
// @Description  Retrieves comments for a single catalog entry, newest first.
// @Tags         comments
// @Produce      json
// @Param        id path int true "Torrent ID"
// @Success      200 {object} []CommentResponse
// @Failure      404 {object} ErrorResponse "Torrent not found"
// @Router       /torrents/{id}/comments [get]
func GetTorrentComments(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	var torrent models.GameTorrent
	if err := database.DB.First(&torrent, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Torrent not found"})
		return
	}

	var comments []models.Comment
	err := database.DB.Preload("User").
		Where("game_torrent_id = ?", torrent.ID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	c.JSON(http.StatusOK, newCommentResponses(comments))
}

// PostTorrentComment godoc
// @Summary      Comment on a torrent
// @Description  Adds a comment from the authenticated user to a catalog entry.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int          true "Torrent ID"
// @Param        input body CommentInput true "Comment"
// @Success      201 {object} CommentResponse
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Torrent not found"
// @Router       /torrents/{id}/comments [post]
func PostTorrentComment(c *gin.Context) {
	userID, _ := c.Get("userID")
	id, _ := strconv.Atoi(c.Param("id"))

	var input CommentInput
	if !validateCommentContent(c, &input) {
		return
	}

	var torrent models.GameTorrent
	if err := database.DB.First(&torrent, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Torrent not found"})
		return
	}

	comment := models.Comment{
		UserID:        userID.(uint),
		GameTorrentID: &torrent.ID,
		Content:       input.Content,
	}
	if err := database.DB.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	database.DB.Preload("User").First(&comment, comment.ID)
	c.JSON(http.StatusCreated, newCommentResponse(comment))
}

// endregion

// region --- Group Comment Handlers ---

// GetGroupComments godoc
// @Summary      List comments on a title-group
// @Description  Retrieves comments attached to a whole title-group, newest first.
// @Tags         comments
// @Produce      json
// @Param        title path string true "Group title"
// @Success      200 {object} []CommentResponse
// @Router       /groups/{title}/comments [get]
func GetGroupComments(c *gin.Context) {
	title := c.Param("title")

	var comments []models.Comment
	err := database.DB.Preload("User").
		Where("game_group = ?", title).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	c.JSON(http.StatusOK, newCommentResponses(comments))
}

// PostGroupComment godoc
// @Summary      Comment on a title-group
// @Description  Adds a comment from the authenticated user to a title-group.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title path string       true "Group title"
// @Param        input body CommentInput true "Comment"
// @Success      201 {object} CommentResponse
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Group not found"
// @Router       /groups/{title}/comments [post]
func PostGroupComment(c *gin.Context) {
	userID, _ := c.Get("userID")
	title := c.Param("title")

	var input CommentInput
	if !validateCommentContent(c, &input) {
		return
	}

	// The group must resolve to at least one stored entry.
	var count int64
	database.DB.Model(&models.GameTorrent{}).
		Where("clean_title = ? OR title = ?", title, title).
		Count(&count)
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	comment := models.Comment{
		UserID:    userID.(uint),
		GameGroup: &title,
		Content:   input.Content,
	}
	if err := database.DB.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	database.DB.Preload("User").First(&comment, comment.ID)
	c.JSON(http.StatusCreated, newCommentResponse(comment))
}

// endregion
