package server

import (
	"net/http"

	"github.com/bz888/deepchat/internal/api/server/handlers"
)

const (
	ChatPath   = "/api/chat"
	StatusPath = "/status"
)

func registerRoutes(mux *http.ServeMux, handler *handlers.Handler) {
	mux.HandleFunc(ChatPath, handler.ChatHandler)
	mux.HandleFunc(StatusPath, handler.StatusHandler)
}
