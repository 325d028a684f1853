package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"memory-gateway/src/internal/config"
	"memory-gateway/src/internal/gateway"
	"memory-gateway/src/internal/memory"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit *int   `json:"limit,omitempty"`
}

type retrieveRequest struct {
	Task   string `json:"task" binding:"required"`
	Branch string `json:"branch,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

// memoryPayload is the public projection of a record. Keywords and provenance
// are internal to ranking and stay out of hit payloads.
type memoryPayload struct {
	MemoryID   string            `json:"memory_id"`
	Title      string            `json:"title"`
	Branch     string            `json:"branch"`
	Content    string            `json:"content"`
	Salience   float64           `json:"salience"`
	MemoryType memory.MemoryType `json:"memory_type"`
}

type scoredHit struct {
	Memory memoryPayload `json:"memory"`
	Score  float64       `json:"score"`
}

type searchResponse struct {
	Results []scoredHit `json:"results"`
}

type typeGroup struct {
	Hits       []scoredHit              `json:"hits"`
	Provenance []memory.ProvenanceEntry `json:"provenance"`
}

type groupedTaskResponse struct {
	Task       string                          `json:"task"`
	Context    map[memory.MemoryType]typeGroup `json:"context"`
	Provenance []memory.ProvenanceEntry        `json:"provenance"`
}

type flatTaskResponse struct {
	Task    string      `json:"task"`
	Context []scoredHit `json:"context"`
}

// validationError marks request problems that map to 422.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func toHits(ranked []memory.ScoredRecord) []scoredHit {
	out := make([]scoredHit, len(ranked))
	for i, h := range ranked {
		r := h.Record
		out[i] = scoredHit{
			Memory: memoryPayload{
				MemoryID:   r.MemoryID,
				Title:      r.Title,
				Branch:     r.Branch,
				Content:    r.Content,
				Salience:   r.Salience,
				MemoryType: r.MemoryType,
			},
			Score: h.Score,
		}
	}
	return out
}

// resolveLimit applies the default and checks 1..max_limit.
func resolveLimit(limit *int, def int, rc config.RetrievalConfig) (int, error) {
	if limit == nil {
		return def, nil
	}
	if *limit < 1 || *limit > rc.MaxLimit {
		return 0, &validationError{msg: fmt.Sprintf("limit must be between 1 and %d, got %d", rc.MaxLimit, *limit)}
	}
	return *limit, nil
}

func search(gw *gateway.Gateway, req searchRequest) (searchResponse, error) {
	if req.Query == "" {
		return searchResponse{}, &validationError{msg: "query must not be empty"}
	}
	rc := gw.Config.Retrieval
	limit, err := resolveLimit(req.Limit, rc.DefaultSearchLimit, rc)
	if err != nil {
		return searchResponse{}, err
	}
	return searchResponse{Results: toHits(gw.Search(req.Query, limit))}, nil
}

// retrieveForTask returns the grouped or flat shape depending on retrieval.mode.
func retrieveForTask(gw *gateway.Gateway, req retrieveRequest) (any, error) {
	if req.Task == "" {
		return nil, &validationError{msg: "task must not be empty"}
	}
	rc := gw.Config.Retrieval
	limit, err := resolveLimit(req.Limit, rc.DefaultTaskLimit, rc)
	if err != nil {
		return nil, err
	}

	if rc.Mode == config.ModeFlat {
		return flatTaskResponse{
			Task:    req.Task,
			Context: toHits(gw.RetrieveContext(req.Task, req.Branch, limit)),
		}, nil
	}

	res := gw.RetrieveForTask(req.Task, req.Branch, limit)
	groups := make(map[memory.MemoryType]typeGroup, len(res.Groups))
	for mt, g := range res.Groups {
		groups[mt] = typeGroup{Hits: toHits(g.Hits), Provenance: g.Provenance}
	}
	return groupedTaskResponse{Task: req.Task, Context: groups, Provenance: res.Provenance}, nil
}

// bindStatus maps a ShouldBindJSON error to 422 for validation and type
// problems and 400 for malformed bodies.
func bindStatus(err error) int {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &verrs) || errors.As(err, &typeErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func errorStatus(err error) int {
	var verr *validationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(bindStatus(err), gin.H{"error": err.Error()})
		return
	}

	gw := c.MustGet("gateway").(*gateway.Gateway)
	resp, err := search(gw, req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRetrieveForTask(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(bindStatus(err), gin.H{"error": err.Error()})
		return
	}

	gw := c.MustGet("gateway").(*gateway.Gateway)
	resp, err := retrieveForTask(gw, req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
