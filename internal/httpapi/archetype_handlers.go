package httpapi

import (
	"net/http"
	"strconv"

	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/store"
)

type ArchetypesHandler struct {
	DB *store.DB
}

// List serves GET /archetypes with optional employer, metro, role,
// record_type and limit filters.
func (h ArchetypesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	recordType := q.Get("record_type")
	switch recordType {
	case "", string(domain.RecordObserved), string(domain.RecordInferred):
	default:
		WriteError(w, r, http.StatusBadRequest, "bad_record_type", "record_type must be observed or inferred")
		return
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	archs, err := store.ListArchetypes(r.Context(), h.DB.Pool, store.ListArchetypeOpts{
		Employer:   q.Get("employer"),
		Metro:      q.Get("metro"),
		Role:       q.Get("role"),
		RecordType: recordType,
		Limit:      limit,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "query_failed", "archetype query failed")
		return
	}

	out := make([]archetypeDTO, 0, len(archs))
	for _, a := range archs {
		out = append(out, toArchetypeDTO(a))
	}
	WriteJSON(w, http.StatusOK, out)
}
