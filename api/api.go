package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/listwatch/collector"
	"github.com/pevans/listwatch/record"
	"github.com/pevans/listwatch/scoring"
	"github.com/pevans/listwatch/store"
)

// Server serves a read-only view of the record store and the last cycle.
type Server struct {
	store     *store.Store
	collector *collector.Collector
}

// NewServer creates a server over the collector and its store.
func NewServer(c *collector.Collector) *Server {
	return &Server{
		store:     c.Store(),
		collector: c,
	}
}

// SetupRouter configures the Gin router with all listwatch API routes
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	v1 := router.Group("/api/v1")
	v1.GET("/records", s.HandleListRecords)
	v1.GET("/records/:id", s.HandleGetRecord)
	v1.GET("/cycles/last", s.HandleLastCycle)

	return router
}

// ListRecordsResponse represents the response for GET /api/v1/records.
type ListRecordsResponse struct {
	Records []RecordView `json:"records"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// RecordView is a stored record plus whether it currently qualifies.
type RecordView struct {
	record.Record
	Qualified bool `json:"qualified"`
}

// CycleResponse represents the response for GET /api/v1/cycles/last.
type CycleResponse struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Duration   string     `json:"duration"`
	Rechecked  int        `json:"rechecked"`
	Added      int        `json:"added"`
	Updated    int        `json:"updated"`
	Deleted    int        `json:"deleted"`
	Known      int        `json:"known"`
	Failed     int        `json:"failed"`
	Saved      bool       `json:"saved"`
	Delta      []string   `json:"delta"`
	Items      []ItemView `json:"items"`
	Pages      []PageView `json:"pages"`
	Error      string     `json:"error,omitempty"`
}

// ItemView is a collector.ItemResult with its error as text.
type ItemView struct {
	collector.ItemResult
	Error string `json:"error,omitempty"`
}

// PageView is a collector.PageResult with its error as text.
type PageView struct {
	collector.PageResult
	Error string `json:"error,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// HandleListRecords handles GET /api/v1/records.
func (s *Server) HandleListRecords(c *gin.Context) {
	threshold := s.collector.Threshold()
	records := s.store.List()

	// Filter by minimum score (optional)
	if minParam := c.Query("min_score"); minParam != "" {
		minScore, err := strconv.ParseFloat(minParam, 64)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter",
				"Invalid min_score parameter: must be a number")
			return
		}
		records = filterRecords(records, func(r record.Record) bool {
			return r.Score >= minScore
		})
	}

	// Filter by qualification (optional)
	if qualifiedParam := c.Query("qualified"); qualifiedParam != "" {
		want, err := strconv.ParseBool(qualifiedParam)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter",
				"Invalid qualified parameter: must be true or false")
			return
		}
		records = filterRecords(records, func(r record.Record) bool {
			return scoring.Qualifies(r.Score, threshold) == want
		})
	}

	// Sort records (default: score_desc)
	sortParam := c.Query("sort")
	if sortParam == "" {
		sortParam = "score_desc"
	}
	if !sortRecords(records, sortParam) {
		errorResponse(c, http.StatusBadRequest, "invalid_parameter",
			"Invalid sort parameter: "+sortParam)
		return
	}

	total := len(records)

	limit := 50 // default
	if limitParam := c.Query("limit"); limitParam != "" {
		parsedLimit, err := strconv.Atoi(limitParam)
		if err != nil || parsedLimit < 1 {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		limit = min(parsedLimit, 1000)
	}

	offset := 0 // default
	if offsetParam := c.Query("offset"); offsetParam != "" {
		parsedOffset, err := strconv.Atoi(offsetParam)
		if err != nil || parsedOffset < 0 {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter", "Invalid offset parameter")
			return
		}
		offset = parsedOffset
	}

	page := paginate(records, offset, limit)
	views := make([]RecordView, 0, len(page))
	for _, r := range page {
		views = append(views, RecordView{
			Record:    r,
			Qualified: scoring.Qualifies(r.Score, threshold),
		})
	}

	c.JSON(http.StatusOK, ListRecordsResponse{
		Records: views,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// HandleGetRecord handles GET /api/v1/records/{id}.
func (s *Server) HandleGetRecord(c *gin.Context) {
	id := c.Param("id")

	r, ok := s.store.Get(id)
	if !ok {
		errorResponse(c, http.StatusNotFound, "not_found", "Record with ID "+id+" not found")
		return
	}

	c.JSON(http.StatusOK, RecordView{
		Record:    r,
		Qualified: scoring.Qualifies(r.Score, s.collector.Threshold()),
	})
}

// HandleLastCycle handles GET /api/v1/cycles/last.
func (s *Server) HandleLastCycle(c *gin.Context) {
	last := s.collector.LastResult()
	if last == nil {
		errorResponse(c, http.StatusNotFound, "not_found", "No cycle has run yet")
		return
	}

	c.JSON(http.StatusOK, newCycleResponse(last))
}

func newCycleResponse(r *collector.CycleResult) CycleResponse {
	resp := CycleResponse{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   r.Duration().String(),
		Rechecked:  r.Rechecked,
		Added:      r.Added,
		Updated:    r.Updated,
		Deleted:    r.Deleted,
		Known:      r.Known,
		Failed:     r.Failed,
		Saved:      r.Saved,
		Delta:      make([]string, 0, len(r.Delta)),
		Items:      make([]ItemView, 0, len(r.Items)),
		Pages:      make([]PageView, 0, len(r.Pages)),
		Error:      errorText(r.Err),
	}

	for _, d := range r.Delta {
		resp.Delta = append(resp.Delta, d.ID)
	}
	for _, item := range r.Items {
		resp.Items = append(resp.Items, ItemView{ItemResult: item, Error: errorText(item.Err)})
	}
	for _, page := range r.Pages {
		resp.Pages = append(resp.Pages, PageView{PageResult: page, Error: errorText(page.Err)})
	}

	return resp
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func filterRecords(records []record.Record, keep func(record.Record) bool) []record.Record {
	filtered := []record.Record{}
	for _, r := range records {
		if keep(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// sortRecords sorts records in place and reports whether sortParam is
// known. Ties keep id order.
func sortRecords(records []record.Record, sortParam string) bool {
	var less func(a, b record.Record) bool

	switch sortParam {
	case "score_desc":
		less = func(a, b record.Record) bool { return a.Score > b.Score }
	case "score_asc":
		less = func(a, b record.Record) bool { return a.Score < b.Score }
	case "first_seen_desc":
		less = func(a, b record.Record) bool { return a.FirstSeen.After(b.FirstSeen) }
	case "first_seen_asc":
		less = func(a, b record.Record) bool { return a.FirstSeen.Before(b.FirstSeen) }
	default:
		return false
	}

	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
	return true
}

// paginate returns a slice of records for the given offset and limit.
func paginate(records []record.Record, offset, limit int) []record.Record {
	if offset >= len(records) {
		return []record.Record{}
	}

	end := min(offset+limit, len(records))

	return records[offset:end]
}
