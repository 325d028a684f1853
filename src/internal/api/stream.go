package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"memory-gateway/src/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	opSearch          = "search"
	opRetrieveForTask = "retrieve_for_task"
)

// wsRequest is one retrieval call over the websocket. ID is echoed back so
// clients can pipeline requests.
type wsRequest struct {
	ID     string `json:"id,omitempty"`
	Op     string `json:"op"`
	Query  string `json:"query,omitempty"`
	Task   string `json:"task,omitempty"`
	Branch string `json:"branch,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

type wsResponse struct {
	ID     string `json:"id,omitempty"`
	Op     string `json:"op"`
	Status int    `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebsocket(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)

	requestID := c.GetString("request_id")

	// The upgrader writes its own 101 response; headers set on c.Writer are lost.
	ws, err := upgrader.Upgrade(c.Writer, c.Request, http.Header{requestIDHeader: []string{requestID}})
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	slog.Info("ws connected", "request_id", requestID, "remote", c.ClientIP())

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read failed", "request_id", requestID, "error", err)
			}
			break
		}

		resp := dispatch(gw, data)
		if err := ws.WriteJSON(resp); err != nil {
			slog.Warn("ws write failed", "request_id", requestID, "error", err)
			break
		}
	}
	slog.Info("ws disconnected", "request_id", requestID)
}

func dispatch(gw *gateway.Gateway, data []byte) wsResponse {
	var msg wsRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return wsResponse{Status: bindStatus(err), Error: err.Error()}
	}

	resp := wsResponse{ID: msg.ID, Op: msg.Op}
	var (
		result any
		err    error
	)
	switch msg.Op {
	case opSearch:
		result, err = search(gw, searchRequest{Query: msg.Query, Limit: msg.Limit})
	case opRetrieveForTask:
		result, err = retrieveForTask(gw, retrieveRequest{Task: msg.Task, Branch: msg.Branch, Limit: msg.Limit})
	default:
		resp.Status = http.StatusBadRequest
		resp.Error = "unknown op " + msg.Op + "; must be 'search' or 'retrieve_for_task'"
		return resp
	}

	if err != nil {
		resp.Status = errorStatus(err)
		resp.Error = err.Error()
		return resp
	}
	resp.Status = http.StatusOK
	resp.Result = result
	return resp
}
