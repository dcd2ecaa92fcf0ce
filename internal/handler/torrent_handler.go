package handler

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"hivegames/backend/internal/catalog"
	"hivegames/backend/internal/database"
	"hivegames/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// SourceResponse defines one download source of a torrent entry.
type SourceResponse struct {
	Name       string   `json:"name" example:"FitGirl"`
	URIs       []string `json:"uris"`
	UploadDate string   `json:"upload_date"`
	FileSize   string   `json:"file_size" example:"9.2 GB"`
}

// TorrentResponse defines a single catalog entry.
type TorrentResponse struct {
	ID         uint             `json:"id" example:"1"`
	Title      string           `json:"title" example:"Captain Blood (MULTi17) [DODI Repack]"`
	CleanTitle string           `json:"clean_title,omitempty" example:"Captain Blood"`
	Version    string           `json:"version,omitempty"`
	Genres     []string         `json:"genres"`
	Likes      int              `json:"likes"`
	IsLiked    bool             `json:"is_liked"`
	Sources    []SourceResponse `json:"sources"`
	UpdatedAt  string           `json:"updated_at"`
}

// PaginatedGroupResponse defines the structure for a paginated list of title-groups.
type PaginatedGroupResponse struct {
	Data []catalog.Group `json:"data"`
	Meta PaginationMeta  `json:"meta"`
}

// FacetCount is a browse facet value with the number of entries carrying it.
type FacetCount struct {
	Name  string `json:"name" example:"Action"`
	Count int64  `json:"count" example:"42"`
}

func newTorrentResponse(t models.GameTorrent, viewerID uint) TorrentResponse {
	sources := make([]SourceResponse, len(t.Sources))
	for i, s := range t.Sources {
		sources[i] = SourceResponse{
			Name:       s.Name,
			URIs:       s.URIs,
			UploadDate: s.UploadDate.Format("2006-01-02 15:04:05"),
			FileSize:   s.FileSize,
		}
	}

	isLiked := false
	for _, u := range t.LikedBy {
		if u != nil && u.ID == viewerID {
			isLiked = true
			break
		}
	}

	return TorrentResponse{
		ID:         t.ID,
		Title:      t.Title,
		CleanTitle: t.CleanTitle,
		Version:    t.Version,
		Genres:     t.Genres,
		Likes:      t.Likes,
		IsLiked:    isLiked,
		Sources:    sources,
		UpdatedAt:  t.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// endregion

// region --- Helpers ---

// viewerID returns the authenticated user's ID, or zero for anonymous
// requests that passed through the optional auth middleware.
func viewerID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100 // Max limit
	}
	return page, limit
}

// Helper to split comma-separated strings
func splitCommaSeparated(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func loadEntries() ([]models.GameTorrent, error) {
	var entries []models.GameTorrent
	err := database.DB.Preload("Sources").Preload("LikedBy").Find(&entries).Error
	return entries, err
}

func markLiked(groups []catalog.Group, viewer uint) {
	if viewer == 0 {
		return
	}
	for i := range groups {
		for _, id := range groups[i].LikedBy {
			if id == viewer {
				groups[i].IsLiked = true
				break
			}
		}
	}
}

// endregion

// region --- Browse Handlers ---

// GetTorrents godoc
// @Summary      Browse the catalog
// @Description  Retrieves a paginated list of title-groups, optionally filtered by source and genre.
// @Tags         torrents
// @Produce      json
// @Param        sources query    string  false  "Comma-separated source names"
// @Param        genres  query    string  false  "Comma-separated genres"
// @Param        page    query    int     false  "Page number" default(1)
// @Param        limit   query    int     false  "Items per page" default(20)
// @Success      200 {object} PaginatedGroupResponse
// @Failure      500 {object} ErrorResponse
// @Router       /torrents [get]
func GetTorrents(c *gin.Context) {
	page, limit := parsePagination(c)
	filter := catalog.Filter{
		Sources: splitCommaSeparated(c.Query("sources")),
		Genres:  splitCommaSeparated(c.Query("genres")),
	}

	entries, err := loadEntries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve torrents"})
		return
	}

	var filtered []models.GameTorrent
	for _, e := range entries {
		if filter.Matches(e) {
			filtered = append(filtered, e)
		}
	}

	groups := catalog.GroupEntries(filtered)
	groups = catalog.PruneSources(groups, filter.Sources)
	markLiked(groups, viewerID(c))

	pageGroups, total := catalog.Paginate(groups, page, limit)
	c.JSON(http.StatusOK, NewPaginatedResponse(pageGroups, total, page, limit))
}

// SearchTorrents godoc
// @Summary      Search the catalog
// @Description  Searches titles by substring, or fuzzily when fuzzy=true. Results are grouped by title.
// @Tags         torrents
// @Produce      json
// @Param        q     query    string  true   "Search query (min 2 characters)"
// @Param        fuzzy query    bool    false  "Use fuzzy matching"
// @Success      200 {object} []catalog.Group
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /torrents/search [get]
func SearchTorrents(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query must be at least 2 characters"})
		return
	}
	useFuzzy, _ := strconv.ParseBool(c.Query("fuzzy"))

	var matched []models.GameTorrent
	if useFuzzy {
		entries, err := loadEntries()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve torrents"})
			return
		}
		matched = catalog.SearchEntries(entries, query, 10)
	} else {
		// LOWER(...) LIKE instead of ILIKE so the query is portable
		pattern := "%" + strings.ToLower(query) + "%"
		err := database.DB.Preload("Sources").Preload("LikedBy").
			Where("LOWER(title) LIKE ? OR LOWER(clean_title) LIKE ?", pattern, pattern).
			Limit(10).Find(&matched).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search torrents"})
			return
		}
	}

	groups := catalog.GroupEntries(matched)
	markLiked(groups, viewerID(c))
	c.JSON(http.StatusOK, groups)
}

// GetTorrentByID godoc
// @Summary      Get a single catalog entry
// @Description  Retrieves one catalog entry by its numeric ID, with its sources.
// @Tags         torrents
// @Produce      json
// @Param        id path int true "Torrent ID"
// @Success      200 {object} TorrentResponse
// @Failure      404 {object} ErrorResponse "Torrent not found"
// @Router       /torrents/{id} [get]
func GetTorrentByID(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	var entry models.GameTorrent
	if err := database.DB.Preload("Sources").Preload("LikedBy").First(&entry, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Torrent not found"})
		return
	}

	c.JSON(http.StatusOK, newTorrentResponse(entry, viewerID(c)))
}

// GetTorrentGroup godoc
// @Summary      Get a title-group
// @Description  Retrieves the aggregated title-group for a cleaned or raw title.
// @Tags         torrents
// @Produce      json
// @Param        title path string true "Group title"
// @Success      200 {object} catalog.Group
// @Failure      404 {object} ErrorResponse "Group not found"
// @Router       /groups/{title} [get]
func GetTorrentGroup(c *gin.Context) {
	title := c.Param("title")

	var entries []models.GameTorrent
	err := database.DB.Preload("Sources").Preload("LikedBy").
		Where("clean_title = ? OR title = ?", title, title).
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve group"})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	groups := catalog.GroupEntries(entries)
	markLiked(groups, viewerID(c))
	c.JSON(http.StatusOK, groups[0])
}

// GetGenres godoc
// @Summary      List genres
// @Description  Retrieves all genres present in the catalog with entry counts, most common first.
// @Tags         torrents
// @Produce      json
// @Success      200 {object} []FacetCount
// @Failure      500 {object} ErrorResponse
// @Router       /genres [get]
func GetGenres(c *gin.Context) {
	var entries []models.GameTorrent
	if err := database.DB.Select("genres").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve genres"})
		return
	}

	// Genres are stored as JSON arrays, so the facet is counted in Go.
	counts := make(map[string]int64)
	var order []string
	for _, e := range entries {
		for _, g := range e.Genres {
			if counts[g] == 0 {
				order = append(order, g)
			}
			counts[g]++
		}
	}

	facets := make([]FacetCount, 0, len(order))
	for _, g := range order {
		facets = append(facets, FacetCount{Name: g, Count: counts[g]})
	}
	sort.SliceStable(facets, func(i, j int) bool {
		return facets[i].Count > facets[j].Count
	})

	c.JSON(http.StatusOK, facets)
}

// GetSources godoc
// @Summary      List sources
// @Description  Retrieves all source names present in the catalog with entry counts, most common first.
// @Tags         torrents
// @Produce      json
// @Success      200 {object} []FacetCount
// @Failure      500 {object} ErrorResponse
// @Router       /sources [get]
func GetSources(c *gin.Context) {
	var facets []FacetCount
	err := database.DB.Model(&models.Source{}).
		Select("name, COUNT(*) as count").
		Group("name").
		Order("count DESC").
		Scan(&facets).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sources"})
		return
	}

	c.JSON(http.StatusOK, facets)
}

// endregion

// region --- Like Handlers ---

// ToggleLike godoc
// @Summary      Toggle a like on a torrent
// @Description  Adds or removes the authenticated user's like on a catalog entry.
// @Tags         torrents
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Torrent ID"
// @Success      200 {object} map[string]interface{} "{"likes": 3, "is_liked": true}"
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "User or torrent not found"
// @Failure      500 {object} ErrorResponse "Failed to update likes"
// @Router       /torrents/{id}/like [post]
func ToggleLike(c *gin.Context) {
	userID, _ := c.Get("userID")
	torrentID, _ := strconv.Atoi(c.Param("id"))

	var user models.User
	// Eagerly load just the one liked game we care about
	if err := database.DB.Preload("LikedGames", "id = ?", torrentID).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var torrent models.GameTorrent
	if err := database.DB.First(&torrent, torrentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Torrent not found"})
		return
	}

	association := database.DB.Model(&user).Association("LikedGames")

	// If the preload found the torrent, it's already liked
	isLiked := len(user.LikedGames) == 0
	if len(user.LikedGames) > 0 {
		if err := association.Delete(&torrent); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove like"})
			return
		}
	} else {
		if err := association.Append(&torrent); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add like"})
			return
		}
	}

	// Keep the denormalized counter in sync with the join table.
	likes := database.DB.Model(&torrent).Association("LikedBy").Count()
	if err := database.DB.Model(&torrent).Update("likes", likes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"likes": likes, "is_liked": isLiked})
}

// endregion
