package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/fate-bridge/internal/bridge"
	"github.com/DoyleJ11/fate-bridge/internal/ws"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(b *bridge.Bridge, secret string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz(b))
	r.Get("/ws", ws.Handler(b, secret, log))
	return r
}

func Healthz(b *bridge.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.Status())
	}
}
