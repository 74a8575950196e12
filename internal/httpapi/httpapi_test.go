package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/events"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	reg, err := sources.NewRegistry([]sources.Entry{
		{Name: "greenhouse", Tier: "A"},
		{Name: "indeed", Tier: "B"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(Deps{
		DB:       db,
		Hub:      events.NewHub(),
		Registry: reg,
		Log:      zap.NewNop(),
	}))
	t.Cleanup(srv.Close)
	return srv, db
}

func seedArchetype(t *testing.T, db *store.DB) domain.Archetype {
	t.Helper()
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	p50 := 160000.0
	a := domain.Archetype{
		ArchetypeKey: domain.ArchetypeKey{
			Employer:   "acme corp",
			Metro:      "Seattle Metro",
			Role:       "Software Engineer",
			Seniority:  domain.SenioritySenior,
			RecordType: domain.RecordObserved,
		},
		HeadcountP10:     2.4,
		HeadcountP50:     3,
		HeadcountP90:     3.9,
		SalaryP50:        &p50,
		Confidence:       0.42,
		ObservationCount: 3,
		EvidenceStart:    asOf,
		EvidenceEnd:      asOf,
		TopSources:       []string{"greenhouse"},
		CreatedAt:        asOf,
		UpdatedAt:        asOf,
	}
	id, err := store.UpsertArchetype(context.Background(), db.Pool, a)
	require.NoError(t, err)
	a.ID = id
	return a
}

func TestArchetypesEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seedArchetype(t, db)

	resp, err := http.Get(srv.URL + "/archetypes?employer=acme+corp&record_type=observed")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var got []archetypeDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "acme corp", got[0].Employer)
	assert.Equal(t, "observed", got[0].RecordType)
	assert.InDelta(t, 3, got[0].HeadcountP50, 1e-9)
	require.NotNil(t, got[0].SalaryP50)
	assert.InDelta(t, 160000, *got[0].SalaryP50, 1e-9)
	assert.Nil(t, got[0].SalaryP25, "absent stats stay null")
}

func TestArchetypesEndpointRejectsBadParams(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/archetypes?record_type=imagined")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/archetypes?limit=-3")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/archetypes", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "read-only surface")
}

func TestCoverageEndpoint(t *testing.T) {
	srv, db := newTestServer(t)
	seedArchetype(t, db)

	resp, err := http.Get(srv.URL + "/coverage")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cov coverageDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cov))
	assert.Equal(t, 2, cov.Sources)
	assert.Equal(t, int64(1), cov.Archetypes.Total)
	assert.Equal(t, int64(1), cov.Archetypes.Observed)
	assert.Zero(t, cov.Archetypes.Inferred)
	assert.Zero(t, cov.Observed.Total)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
}
