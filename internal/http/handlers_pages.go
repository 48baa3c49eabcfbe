package httpx

import (
	"net/http"

	"github.com/salesops/ui-api/internal/authstate"
)

// Page handlers return minimal JSON payloads; rendering is owned by the
// frontend. They exist so the guard chain has concrete subtrees to gate.

func pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{"page": name}
		if store := authstate.FromContext(r.Context()); store != nil && store.Authenticated() {
			payload["user"] = store.State().Identity
		}
		WriteJSON(w, http.StatusOK, payload)
	}
}

// healthHandler reports liveness.
// GET /healthz.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
