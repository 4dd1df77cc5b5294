package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/logger"
)

const (
	// StreamStatusTrailer is sent after the relayed body so clients that read
	// trailers can tell a finished stream from a broken one.
	StreamStatusTrailer = "X-Stream-Status"

	StreamComplete    = "complete"
	StreamInterrupted = "interrupted"
)

type Handler struct {
	upstreamClient client.UpstreamClientInterface
	status         Status
}

// Status is what the status endpoint reports about the relay.
type Status struct {
	ServerWorking      bool   `json:"server_working"`
	UpstreamURL        string `json:"upstream_url"`
	CredentialsPresent bool   `json:"credentials_present"`
}

func NewHandler(upstreamClient client.UpstreamClientInterface, status Status) *Handler {
	status.ServerWorking = true
	return &Handler{
		upstreamClient: upstreamClient,
		status:         status,
	}
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.status); err != nil {
		logger.NewLogger("StatusHandler").Error("Failed to encode status: ", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeInternalError is the single failure shape clients see before a stream
// starts, whatever the cause.
func writeInternalError(w http.ResponseWriter, localLogger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: "Internal Server Error"}); err != nil {
		localLogger.Error("Failed to encode error response: ", err)
	}
}
