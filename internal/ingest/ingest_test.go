package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/normalize"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
	"jobsignal-engine/internal/taxonomy"
)

func newTestIngester(t *testing.T) (*Ingester, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	reg, err := sources.NewRegistry([]sources.Entry{
		{Name: "greenhouse", Tier: "A"},
		{Name: "indeed", Tier: "B"},
		{Name: "wa_wage_file", Tier: "B", Weight: 0.8},
	})
	require.NoError(t, err)

	ing := &Ingester{
		DB:       db,
		Log:      zap.NewNop(),
		Registry: reg,
		Parser:   taxonomy.NewParser(taxonomy.DefaultRules()),
		Metros:   normalize.NewMetroTable(nil),
	}
	return ing, db
}

func obsFixture(externalID, title string, asOf time.Time) domain.Observation {
	return domain.Observation{
		Source:      "greenhouse",
		ExternalID:  externalID,
		RawEmployer: "Acme Corp, Inc.",
		RawLocation: "Seattle, WA",
		RawTitle:    title,
		AsOf:        asOf,
		Confidence:  0.9,
	}
}

func TestProcessBatchCanonicalizesTitles(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	batch := []domain.Observation{
		obsFixture("gh-1", "Senior Software Engineer", day0),
		obsFixture("gh-2", "VP of Engineering", day0),
		obsFixture("gh-3", "Software Engineer I", day0),
		obsFixture("gh-4", "", day0),
	}
	stats, err := ing.ProcessBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.New)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Errors)
	assert.Zero(t, stats.Duplicates)

	rows, err := store.ListObservedByEmployer(ctx, db.Pool, "Acme Corp")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byExt := map[string]domain.ObservedJob{}
	for _, r := range rows {
		byExt[r.ExternalID] = r
		assert.Equal(t, "Acme Corp", r.Employer, "legal suffix stripped")
		assert.Equal(t, "Seattle Metro", r.Metro)
		assert.NotNil(t, r.LifecycleID)
		assert.False(t, r.NeedsReview)
	}

	senior := byExt["gh-1"]
	require.NotNil(t, senior.Role)
	assert.Equal(t, "Software Engineer", *senior.Role)
	assert.InDelta(t, 0.90, senior.RoleConf, 1e-9)
	assert.Equal(t, domain.SenioritySenior, *senior.Seniority)
	assert.InDelta(t, 0.90, senior.SeniorityConf, 1e-9)

	vp := byExt["gh-2"]
	require.NotNil(t, vp.Role)
	assert.Equal(t, "Engineering Manager", *vp.Role)
	assert.Equal(t, domain.SeniorityExec, *vp.Seniority)
	assert.InDelta(t, 0.95, vp.SeniorityConf, 1e-9)

	one := byExt["gh-3"]
	require.NotNil(t, one.Role)
	assert.Equal(t, "Software Engineer", *one.Role)
	assert.Equal(t, domain.SeniorityEntry, *one.Seniority)
	assert.InDelta(t, 0.88, one.SeniorityConf, 1e-9)

	empty := byExt["gh-4"]
	assert.Nil(t, empty.Role)
	assert.Zero(t, empty.RoleConf)
	assert.Nil(t, empty.Seniority)
	assert.Zero(t, empty.SeniorityConf)
}

func TestProcessBatchResightingAdvancesLastSeen(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	day2 := day0.AddDate(0, 0, 2)
	day5 := day0.AddDate(0, 0, 5)

	first := obsFixture("gh-1", "Senior Software Engineer", day0)
	stats, err := ing.ProcessBatch(ctx, []domain.Observation{first})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)

	second := obsFixture("gh-1", "Senior Software Engineer", day2)
	lo, hi := 100000.0, 120000.0
	second.SalaryMin, second.SalaryMax = &lo, &hi
	stats, err = ing.ProcessBatch(ctx, []domain.Observation{second})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	third := obsFixture("gh-1", "Senior Software Engineer", day5)
	bigger := 200000.0
	third.SalaryMin = &bigger
	stats, err = ing.ProcessBatch(ctx, []domain.Observation{third})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	lc, err := store.GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.NotNil(t, lc)
	assert.Equal(t, day0, lc.FirstSeen, "first sighting is immutable")
	assert.Equal(t, day5, lc.LastSeen)

	row, err := store.GetObservedByIdentity(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, day0, row.FirstSeen)
	assert.Equal(t, day5, row.LastSeen)
	require.NotNil(t, row.SalaryMin)
	assert.InDelta(t, 100000, *row.SalaryMin, 1e-9, "bounds backfill once, never overwrite")
	require.NotNil(t, row.SalaryMax)
	assert.InDelta(t, 120000, *row.SalaryMax, 1e-9)
}

func TestProcessBatchOutOfOrderDelivery(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	day5 := day0.AddDate(0, 0, 5)

	_, err := ing.ProcessBatch(ctx, []domain.Observation{obsFixture("gh-1", "Registered Nurse", day5)})
	require.NoError(t, err)
	_, err = ing.ProcessBatch(ctx, []domain.Observation{obsFixture("gh-1", "Registered Nurse", day0)})
	require.NoError(t, err)

	lc, err := store.GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.NotNil(t, lc)
	assert.Equal(t, day5, lc.FirstSeen, "identity was born at the first sighting we saw")
	assert.Equal(t, day5, lc.LastSeen, "stale delivery never moves last_seen backward")
}

func TestProcessBatchSkipsMalformedInput(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	noEmployer := obsFixture("gh-1", "Senior Software Engineer", day0)
	noEmployer.RawEmployer = ""

	unknownSource := obsFixture("gh-2", "Senior Software Engineer", day0)
	unknownSource.Source = "craigslist"

	badConfidence := obsFixture("gh-3", "Senior Software Engineer", day0)
	badConfidence.Confidence = 1.5

	valid := obsFixture("gh-4", "Senior Software Engineer", day0)

	stats, err := ing.ProcessBatch(ctx, []domain.Observation{noEmployer, unknownSource, badConfidence, valid})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.New, "bad items never abort the batch")
	assert.Zero(t, stats.Errors)

	rows, err := store.ListObservedByEmployer(ctx, db.Pool, "Acme Corp")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestProcessBatchTerminalIdentityIsUntouched(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := ing.ProcessBatch(ctx, []domain.Observation{obsFixture("gh-1", "Senior Software Engineer", day0)})
	require.NoError(t, err)

	lc, err := store.GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.NoError(t, store.CloseLifecycle(ctx, db.Pool, lc.ID, day0, domain.ClosureLikelyFilled, 0.7, 0))
	require.NoError(t, store.CloseObservedByLifecycle(ctx, db.Pool, lc.ID))

	stats, err := ing.ProcessBatch(ctx, []domain.Observation{obsFixture("gh-1", "Senior Software Engineer", day0.AddDate(0, 0, 30))})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped, "closed identities are terminal")
	assert.Zero(t, stats.New)
	assert.Zero(t, stats.Updated)

	lc, err = store.GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	assert.Equal(t, day0, lc.LastSeen)
	require.True(t, lc.Closed())

	row, err := store.GetObservedByIdentity(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, domain.StatusClosed, row.Status)
}

func TestProcessBatchAnnotatesDuplicates(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	day3 := day0.AddDate(0, 0, 3)

	a := obsFixture("gh-1", "Senior Software Engineer", day0)
	a.RawDescription = "<p>Build the platform.</p>"
	b := obsFixture("gh-2", "Senior  Software   Engineer", day3)
	b.RawDescription = "Build the platform."

	stats, err := ing.ProcessBatch(ctx, []domain.Observation{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.New)
	assert.Equal(t, 1, stats.Duplicates)

	rows, err := store.ListObservedByEmployer(ctx, db.Pool, "Acme Corp")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].DuplicateOf, "earliest row is the canonical original")
	require.NotNil(t, rows[1].DuplicateOf)
	assert.Equal(t, rows[0].ID, *rows[1].DuplicateOf)
}

func TestIngestMacro(t *testing.T) {
	ing, db := newTestIngester(t)
	ctx := context.Background()
	asOf := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	row := domain.MacroEvidence{
		Source:     "wa_wage_file",
		Employer:   "Acme Corp, Inc.",
		Metro:      "Seattle, WA",
		Role:       "Software Engineer",
		Seniority:  domain.SenioritySenior,
		Headcount:  42,
		Confidence: 0.8,
		AsOf:       asOf,
	}
	badBand := row
	badBand.Seniority = "rockstar"
	unknown := row
	unknown.Source = "craigslist"

	stats, err := ing.IngestMacro(ctx, []domain.MacroEvidence{row, badBand, unknown})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 2, stats.Skipped)

	// redelivery collapses on the natural key
	stats, err = ing.IngestMacro(ctx, []domain.MacroEvidence{row})
	require.NoError(t, err)
	assert.Zero(t, stats.Added)
	assert.Equal(t, 1, stats.Duplicates)

	got, err := store.ListMacroEvidence(ctx, db.Pool, "Acme Corp", "Seattle Metro", "Software Engineer",
		domain.SenioritySenior, asOf.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 42, got[0].Headcount, 1e-9)
}
