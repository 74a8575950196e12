package httpapi

import (
	"net/http"
	"time"

	"jobsignal-engine/internal/store"
)

type HealthHandler struct {
	DB *store.DB
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := h.DB.Pool.QueryRowContext(r.Context(), `SELECT 1;`).Scan(&one); err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, "store_unavailable", "store ping failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC(),
	})
}
