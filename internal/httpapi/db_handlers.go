package httpapi

import (
	"net"
	"net/http"

	"jobsignal-engine/internal/store"
)

type DBHandler struct {
	DB *store.DB
}

// Checkpoint forces a WAL checkpoint so external backup tooling sees one
// consistent database file. Local callers only.
func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host != "127.0.0.1" && host != "::1" && host != "localhost" {
		WriteError(w, r, http.StatusForbidden, "forbidden", "local callers only")
		return
	}

	if _, err := h.DB.Pool.ExecContext(r.Context(), `PRAGMA wal_checkpoint(FULL);`); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "checkpoint_failed", "wal checkpoint failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
