package aggregate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))
	return db
}

func testRegistry(t *testing.T) *sources.Registry {
	t.Helper()
	reg, err := sources.NewRegistry([]sources.Entry{
		{Name: "greenhouse", Tier: "A"}, // 0.90
		{Name: "indeed", Tier: "B"},     // 0.70
		{Name: "wa_wage_file", Tier: "B", Weight: 0.8},
	})
	require.NoError(t, err)
	return reg
}

func testAggregator(t *testing.T, db *store.DB, now time.Time) *Aggregator {
	t.Helper()
	return &Aggregator{
		DB:       db,
		Log:      zap.NewNop(),
		Registry: testRegistry(t),
		Now:      func() time.Time { return now },
	}
}

func floatPtr(f float64) *float64 { return &f }

func observedRow(source, employer string, conf float64, openings int, asOf time.Time) domain.ObservedJob {
	role := "Software Engineer"
	band := domain.SenioritySenior
	return domain.ObservedJob{
		Source:        source,
		Employer:      employer,
		Metro:         "seattle-tacoma-bellevue, wa",
		MetroConf:     1.0,
		RawTitle:      "Senior Software Engineer",
		Role:          &role,
		RoleConf:      0.90,
		Seniority:     &band,
		SeniorityConf: 0.90,
		Openings:      openings,
		Status:        domain.StatusActive,
		FirstSeen:     asOf,
		LastSeen:      asOf,
		Fingerprint:   "fp-" + source + "-" + asOf.Format("20060102"),
		Confidence:    conf,
		AsOf:          asOf,
	}
}

func seedObserved(t *testing.T, db *store.DB, j domain.ObservedJob) int64 {
	t.Helper()
	id, err := store.InsertObserved(context.Background(), db.Pool, j)
	require.NoError(t, err)
	return id
}

func seedMacro(t *testing.T, db *store.DB, m domain.MacroEvidence) {
	t.Helper()
	added, err := store.InsertMacroIgnore(context.Background(), db.Pool, m)
	require.NoError(t, err)
	require.True(t, added)
}

func TestAggregateObservedKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	day1 := now.AddDate(0, 0, -9)
	day3 := now.AddDate(0, 0, -7)

	r1 := observedRow("greenhouse", "acme corp", 0.9, 2, day1)
	r1.SalaryMin, r1.SalaryMax = floatPtr(150000), floatPtr(170000)
	id1 := seedObserved(t, db, r1)

	r2 := observedRow("indeed", "acme corp", 0.8, 1, day3)
	r2.MetroConf = 0.9
	seedObserved(t, db, r2)

	// annotated duplicates carry no evidence
	dup := observedRow("indeed", "acme corp", 0.8, 5, day3)
	dup.Fingerprint = r1.Fingerprint
	dupID := seedObserved(t, db, dup)
	require.NoError(t, store.SetDuplicateOf(ctx, db.Pool, dupID, &id1))

	seedObserved(t, db, observedRow("greenhouse", "other co", 0.9, 1, day1))

	stats, err := testAggregator(t, db, now).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, 2, stats.Upserted)
	assert.Equal(t, 3, stats.Links)
	assert.Zero(t, stats.Errors)
	assert.Zero(t, stats.Skipped)

	archs, err := store.ListArchetypes(ctx, db.Pool, store.ListArchetypeOpts{Employer: "acme corp"})
	require.NoError(t, err)
	require.Len(t, archs, 1)
	a := archs[0]

	assert.Equal(t, domain.RecordObserved, a.RecordType)
	assert.Equal(t, "Software Engineer", a.Role)
	assert.Equal(t, domain.SenioritySenior, a.Seniority)

	// headcount band around the 3 stated openings; the duplicate's 5 are not counted
	assert.InDelta(t, 2.4, a.HeadcountP10, 1e-9)
	assert.InDelta(t, 3.0, a.HeadcountP50, 1e-9)
	assert.InDelta(t, 3.9, a.HeadcountP90, 1e-9)

	require.NotNil(t, a.SalaryP50)
	assert.InDelta(t, 160000, *a.SalaryP25, 1e-9)
	assert.InDelta(t, 160000, *a.SalaryP50, 1e-9)
	assert.InDelta(t, 160000, *a.SalaryP75, 1e-9)
	assert.InDelta(t, 160000, *a.SalaryMean, 1e-9)
	assert.InDelta(t, 0, *a.SalaryStddev, 1e-9)

	assert.Equal(t, 2, a.ObservationCount)
	assert.Equal(t, []string{"greenhouse", "indeed"}, a.TopSources)
	assert.Equal(t, day1, a.EvidenceStart)
	assert.Equal(t, day3, a.EvidenceEnd)

	// source (0.81+0.56)/1.6 * salary 0.65 * location 1.53/1.6 * sample 0.4, damped
	assert.InDelta(t, 0.19160, a.Confidence, 1e-4)

	links, err := store.ListEvidenceLinks(ctx, db.Pool, a.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, domain.EvidenceObservedJob, links[0].EvidenceType)
	assert.Equal(t, id1, links[0].EvidenceID)
	assert.InDelta(t, 0.81, links[0].Weight, 1e-9)
	assert.InDelta(t, 0.56, links[1].Weight, 1e-9)
}

func TestAggregateRunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	seedObserved(t, db, observedRow("greenhouse", "acme corp", 0.9, 2, now.AddDate(0, 0, -1)))
	agg := testAggregator(t, db, now)

	first, err := agg.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Upserted)
	assert.Equal(t, 1, first.Links)

	second, err := agg.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Upserted, "re-run converges on the same row")
	assert.Zero(t, second.Links, "provenance is append-only, not re-added")

	archs, err := store.ListArchetypes(ctx, db.Pool, store.ListArchetypeOpts{})
	require.NoError(t, err)
	require.Len(t, archs, 1)

	links, err := store.ListEvidenceLinks(ctx, db.Pool, archs[0].ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestAggregateInferredKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	asOf := now.AddDate(0, 0, -30)

	for i, hc := range []float64{10, 20} {
		seedMacro(t, db, domain.MacroEvidence{
			Source:     "wa_wage_file",
			Employer:   "acme corp",
			Metro:      "seattle-tacoma-bellevue, wa",
			Role:       "Software Engineer",
			Seniority:  domain.SenioritySenior,
			Headcount:  hc,
			Confidence: 0.9,
			AsOf:       asOf.AddDate(0, 0, i),
		})
	}
	// same 4-tuple on the observed side lands in its own archetype
	seedObserved(t, db, observedRow("greenhouse", "acme corp", 0.9, 1, now.AddDate(0, 0, -2)))

	stats, err := testAggregator(t, db, now).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, 2, stats.Upserted)

	archs, err := store.ListArchetypes(ctx, db.Pool, store.ListArchetypeOpts{
		RecordType: string(domain.RecordInferred),
	})
	require.NoError(t, err)
	require.Len(t, archs, 1)
	a := archs[0]

	// two equal-weight estimates: percentiles walk the sorted values
	assert.InDelta(t, 10, a.HeadcountP10, 1e-9)
	assert.InDelta(t, 10, a.HeadcountP50, 1e-9)
	assert.InDelta(t, 20, a.HeadcountP90, 1e-9)
	assert.Nil(t, a.SalaryP50, "no salary evidence, no salary stats")
	assert.Equal(t, []string{"wa_wage_file"}, a.TopSources)
	assert.Equal(t, 2, a.ObservationCount)

	links, err := store.ListEvidenceLinks(ctx, db.Pool, a.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, domain.EvidenceMacroEvidence, links[0].EvidenceType)

	both, err := store.ListArchetypes(ctx, db.Pool, store.ListArchetypeOpts{Employer: "acme corp"})
	require.NoError(t, err)
	assert.Len(t, both, 2, "observed and inferred stay separate rows")
}

func TestAggregateSkipsWeightlessEvidence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	// a source the registry never heard of carries weight zero
	seedMacro(t, db, domain.MacroEvidence{
		Source:     "mystery_feed",
		Employer:   "acme corp",
		Metro:      "seattle-tacoma-bellevue, wa",
		Role:       "Software Engineer",
		Seniority:  domain.SenioritySenior,
		Headcount:  12,
		Confidence: 0.9,
		AsOf:       now.AddDate(0, 0, -1),
	})

	stats, err := testAggregator(t, db, now).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Keys)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Upserted)

	archs, err := store.ListArchetypes(ctx, db.Pool, store.ListArchetypeOpts{})
	require.NoError(t, err)
	assert.Empty(t, archs)
}

func TestAggregateWindowExcludesOldEvidence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	seedObserved(t, db, observedRow("greenhouse", "acme corp", 0.9, 4, now.AddDate(0, 0, -120)))
	seedObserved(t, db, observedRow("indeed", "acme corp", 0.8, 1, now.AddDate(0, 0, -5)))

	agg := testAggregator(t, db, now)
	agg.WindowDays = 90
	stats, err := agg.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Keys)

	archs, err := store.ListArchetypes(ctx, db.Pool, store.ListArchetypeOpts{Employer: "acme corp"})
	require.NoError(t, err)
	require.Len(t, archs, 1)
	assert.InDelta(t, 1.0, archs[0].HeadcountP50, 1e-9, "stale openings stay out")
	assert.Equal(t, 1, archs[0].ObservationCount)
}
