package httpapi

import (
	"net/http"

	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
)

type CoverageHandler struct {
	DB       *store.DB
	Registry *sources.Registry
}

// Summary serves GET /coverage: how much evidence the store holds, per table
// and per record type.
func (h CoverageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var cov coverageDTO
	cov.Sources = h.Registry.Len()

	obs, err := store.CountObserved(ctx, h.DB.Pool)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "query_failed", "coverage query failed")
		return
	}
	cov.Observed.Total = obs.Total
	cov.Observed.Active = obs.Active
	cov.Observed.Duplicates = obs.Duplicates
	cov.Observed.NeedsReview = obs.NeedsReview

	distinct, err := store.CountDistinctObserved(ctx, h.DB.Pool)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "query_failed", "coverage query failed")
		return
	}
	cov.Distinct.Employers = distinct.Employers
	cov.Distinct.Metros = distinct.Metros
	cov.Distinct.Roles = distinct.Roles

	active, closed, err := store.CountLifecycles(ctx, h.DB.Pool)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "query_failed", "coverage query failed")
		return
	}
	cov.Lifecycles.Active = active
	cov.Lifecycles.Closed = closed

	if cov.MacroRows, err = store.CountMacro(ctx, h.DB.Pool); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "query_failed", "coverage query failed")
		return
	}

	arch, err := store.CountArchetypes(ctx, h.DB.Pool)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "query_failed", "coverage query failed")
		return
	}
	cov.Archetypes.Total = arch.Total
	cov.Archetypes.Observed = arch.Observed
	cov.Archetypes.Inferred = arch.Inferred
	cov.Archetypes.Links = arch.Links

	WriteJSON(w, http.StatusOK, cov)
}
