package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/forgo/shepherd/api/internal/model"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a handler for GET /health. It answers 503 when the
// database does not respond within two seconds.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			WriteError(w, model.NewServiceUnavailableError("database unreachable"))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
