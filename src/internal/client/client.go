// Package client is a typed HTTP client for the memory gateway retrieval API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Memory struct {
	MemoryID   string  `json:"memory_id"`
	Title      string  `json:"title"`
	Branch     string  `json:"branch"`
	Content    string  `json:"content"`
	Salience   float64 `json:"salience"`
	MemoryType string  `json:"memory_type"`
}

type Hit struct {
	Memory Memory  `json:"memory"`
	Score  float64 `json:"score"`
}

type Provenance struct {
	MemoryID   string `json:"memory_id"`
	MemoryType string `json:"memory_type"`
	Detail     string `json:"detail"`
}

type Group struct {
	Hits       []Hit        `json:"hits"`
	Provenance []Provenance `json:"provenance"`
}

// TaskResult holds either shape of a retrieve_for_task response. Grouped
// servers fill Groups and Provenance; flat servers fill Flat.
type TaskResult struct {
	Task       string
	Grouped    bool
	Groups     map[string]Group
	Flat       []Hit
	Provenance []Provenance
}

// Hits returns every hit of r in server rank order. Grouped results are
// re-flattened along the provenance list.
func (r TaskResult) Hits() []Hit {
	if !r.Grouped {
		return r.Flat
	}
	byID := make(map[string]Hit)
	for _, g := range r.Groups {
		for _, h := range g.Hits {
			byID[h.Memory.MemoryID] = h
		}
	}
	out := make([]Hit, 0, len(byID))
	for _, p := range r.Provenance {
		if h, ok := byID[p.MemoryID]; ok {
			out = append(out, h)
		}
	}
	return out
}

// APIError is a non-2xx response.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memory gateway: %d %s (request %s)", e.Status, e.Message, e.RequestID)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Search calls POST /memories/search. A zero limit leaves the server default.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	body := map[string]any{"query": query}
	if limit > 0 {
		body["limit"] = limit
	}
	var resp struct {
		Results []Hit `json:"results"`
	}
	if err := c.post(ctx, "/memories/search", body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// RetrieveForTask calls POST /memories/retrieve_for_task. Branch and limit are
// omitted when empty or zero.
func (c *Client) RetrieveForTask(ctx context.Context, task, branch string, limit int) (TaskResult, error) {
	body := map[string]any{"task": task}
	if branch != "" {
		body["branch"] = branch
	}
	if limit > 0 {
		body["limit"] = limit
	}

	var raw struct {
		Task       string          `json:"task"`
		Context    json.RawMessage `json:"context"`
		Provenance []Provenance    `json:"provenance"`
	}
	if err := c.post(ctx, "/memories/retrieve_for_task", body, &raw); err != nil {
		return TaskResult{}, err
	}

	res := TaskResult{Task: raw.Task, Provenance: raw.Provenance}
	trimmed := bytes.TrimSpace(raw.Context)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &res.Flat); err != nil {
			return TaskResult{}, fmt.Errorf("decode flat context: %w", err)
		}
		return res, nil
	}
	res.Grouped = true
	if err := json.Unmarshal(trimmed, &res.Groups); err != nil {
		return TaskResult{}, fmt.Errorf("decode grouped context: %w", err)
	}
	return res, nil
}

// Health reports whether GET /health answered ok.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &APIError{Status: http.StatusServiceUnavailable, Message: "health not ok"}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
