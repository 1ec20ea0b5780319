package server

import (
	"net/http"

	"specforge/internal/gateway/handler"
	"specforge/internal/gateway/handler/rpc"
	"specforge/internal/gateway/middleware"
)

func NewMux(
	enhanceHandler *handler.EnhanceHandler,
	streamHandler *handler.StreamHandler,
	enhancementRPC *rpc.EnhancementHandler,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewEnhancementServiceHandler(enhancementRPC))

	// REST Handlers
	mux.HandleFunc("/api/enhance-spec", enhanceHandler.HandleEnhanceSpec)
	mux.HandleFunc("/api/enhancement-options", enhanceHandler.HandleOptions)
	mux.HandleFunc("/ws/enhance", streamHandler.HandleEnhanceWS)

	// Debug Handlers
	mux.HandleFunc("/debug/enhance-logs", enhanceHandler.HandleEnhanceLogs)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Middleware
	return middleware.CORS(middleware.RequestID(mux))
}
