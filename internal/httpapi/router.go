package httpapi

import (
	"net/http"

	"jobsignal-engine/internal/metrics"
)

// NewMux wires the read-only routes. The caller wraps it with Handler for
// the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	ah := ArchetypesHandler{DB: d.DB}
	mux.HandleFunc("/archetypes", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.List,
	}))

	ch := CoverageHandler{DB: d.DB, Registry: d.Registry}
	mux.HandleFunc("/coverage", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Summary,
	}))

	hh := HealthHandler{DB: d.DB}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	dbh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dbh.Checkpoint,
	}))

	mux.Handle("/metrics", metrics.Handler())

	return mux
}

// Handler applies the standard middleware chain around the mux.
func Handler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, AccessLog(d.Log), Recover(d.Log))
}
