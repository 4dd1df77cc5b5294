package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/logger"
	"github.com/google/uuid"
)

// ChatHandler relays one chat request to the upstream and streams the
// extracted text fragments back as raw bytes.
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	localLogger := logger.NewLogger("relay " + requestID[:8])

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	relayReq, err := client.DecodeRelayRequest(r.Body)
	if err != nil {
		localLogger.Error("Error in chat request: ", err)
		writeInternalError(w, localLogger)
		return
	}
	localLogger.Info("Sending request with messages: ", relayReq.Messages)

	flusher, ok := w.(http.Flusher)
	if !ok {
		localLogger.Error("Streaming unsupported by response writer")
		writeInternalError(w, localLogger)
		return
	}

	body, err := h.upstreamClient.Open(r.Context(), client.NewUpstreamRequest(relayReq.Messages))
	if err != nil {
		var upstreamErr *client.UpstreamError
		if errors.As(err, &upstreamErr) {
			localLogger.Error("Server error response: ", upstreamErr.StatusCode, " ", upstreamErr.Body)
		} else {
			localLogger.Error("Error in chat request: ", err)
		}
		writeInternalError(w, localLogger)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Trailer", StreamStatusTrailer)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	fragments := 0
	err = client.DecodeStream(body, func(frame client.Frame) error {
		if !frame.IsFragment() {
			switch frame.Reason {
			case client.SkipParse:
				localLogger.Warn("Error parsing frame: ", frame.Err, " line: ", frame.Line)
			case client.SkipBlank:
			default:
				localLogger.Debug("Skipped frame (", frame.Reason, "): ", frame.Line)
			}
			return nil
		}

		localLogger.Info("Parsed fragment: ", frame.Text)
		if _, err := io.WriteString(w, frame.Text); err != nil {
			return fmt.Errorf("failed to write fragment: %w", err)
		}
		flusher.Flush()
		fragments++
		return nil
	})

	status := StreamComplete
	if err != nil {
		status = StreamInterrupted
		localLogger.Error("Stream reading error: ", err)
	}
	w.Header().Set(StreamStatusTrailer, status)
	localLogger.Info("Stream closed (", status, ") after ", fragments, " fragments")
}
