package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsignal-engine/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestLifecycleRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown identity")

	id, err := InsertLifecycle(ctx, db.Pool, "greenhouse", "gh-1", day0)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err = GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, day0, got.FirstSeen)
	assert.Equal(t, day0, got.LastSeen)
	assert.False(t, got.Closed())

	day2 := day0.AddDate(0, 0, 2)
	require.NoError(t, TouchLifecycle(ctx, db.Pool, id, day2))

	got, err = GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	assert.Equal(t, day0, got.FirstSeen, "first_seen never moves")
	assert.Equal(t, day2, got.LastSeen)

	stale, err := ListStaleActive(ctx, db.Pool, day2.AddDate(0, 0, 8))
	require.NoError(t, err)
	require.Len(t, stale, 1)

	stale, err = ListStaleActive(ctx, db.Pool, day2)
	require.NoError(t, err)
	assert.Empty(t, stale, "cutoff is exclusive")

	day9 := day2.AddDate(0, 0, 7)
	require.NoError(t, CloseLifecycle(ctx, db.Pool, id, day9, domain.ClosureLikelyFilled, 0.7, 8))

	got, err = GetLifecycle(ctx, db.Pool, "greenhouse", "gh-1")
	require.NoError(t, err)
	require.True(t, got.Closed())
	assert.Equal(t, day9, *got.DisappearedAt)
	assert.Equal(t, domain.ClosureLikelyFilled, *got.ClosureReason)
	assert.InDelta(t, 0.7, *got.FilledProbability, 1e-9)
	assert.Equal(t, 8, *got.DurationDays)

	active, closed, err := CountLifecycles(ctx, db.Pool)
	require.NoError(t, err)
	assert.EqualValues(t, 0, active)
	assert.EqualValues(t, 1, closed)
}

func observedFixture(src, extID, employer string, seen time.Time) domain.ObservedJob {
	role := "Software Engineer"
	band := domain.SenioritySenior
	return domain.ObservedJob{
		Source: src, ExternalID: extID, Employer: employer,
		Metro: "Dallas-Fort Worth, TX", MetroConf: 0.95,
		RawTitle: "Senior Software Engineer",
		Role:     &role, RoleConf: 0.90,
		Seniority: &band, SeniorityConf: 0.90,
		Openings: 1, Status: domain.StatusActive,
		FirstSeen: seen, LastSeen: seen,
		Fingerprint: "abc123", Confidence: 0.85, AsOf: seen,
	}
}

func TestObservedInsertAndRefresh(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	j := observedFixture("greenhouse", "gh-9", "Acme Corp", day0)
	id, err := InsertObserved(ctx, db.Pool, j)
	require.NoError(t, err)

	got, err := GetObservedByIdentity(ctx, db.Pool, "greenhouse", "gh-9")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Nil(t, got.SalaryMin)
	assert.Equal(t, "Acme Corp", got.Employer)

	day2 := day0.AddDate(0, 0, 2)
	salaryMin := 150000.0
	require.NoError(t, RefreshObservedSighting(ctx, db.Pool, id, day2, day2, &salaryMin, nil))

	got, err = GetObservedByIdentity(ctx, db.Pool, "greenhouse", "gh-9")
	require.NoError(t, err)
	assert.Equal(t, day0, got.FirstSeen)
	assert.Equal(t, day2, got.LastSeen)
	require.NotNil(t, got.SalaryMin)
	assert.InDelta(t, 150000, *got.SalaryMin, 1e-9)
	assert.Nil(t, got.SalaryMax)

	// Backfill never overwrites a present value.
	lower := 1.0
	require.NoError(t, RefreshObservedSighting(ctx, db.Pool, id, day2, day2, &lower, nil))
	got, _ = GetObservedByIdentity(ctx, db.Pool, "greenhouse", "gh-9")
	assert.InDelta(t, 150000, *got.SalaryMin, 1e-9)
}

func TestObservedIdentityIgnoresAdHocRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	j := observedFixture("job_board", "", "Acme Corp", day0)
	_, err := InsertObserved(ctx, db.Pool, j)
	require.NoError(t, err)
	_, err = InsertObserved(ctx, db.Pool, j)
	require.NoError(t, err, "rows without external ids never collide")

	got, err := GetObservedByIdentity(ctx, db.Pool, "job_board", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	rows, err := ListObservedByEmployer(ctx, db.Pool, "Acme Corp")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDuplicateAnnotation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	a, err := InsertObserved(ctx, db.Pool, observedFixture("s1", "x1", "Acme Corp", day0))
	require.NoError(t, err)
	b, err := InsertObserved(ctx, db.Pool, observedFixture("s2", "x2", "Acme Corp", day0.AddDate(0, 0, 3)))
	require.NoError(t, err)

	require.NoError(t, SetDuplicateOf(ctx, db.Pool, b, &a))
	rows, err := ListObservedByEmployer(ctx, db.Pool, "Acme Corp")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].DuplicateOf)
	require.NotNil(t, rows[1].DuplicateOf)
	assert.Equal(t, a, *rows[1].DuplicateOf)

	require.NoError(t, SetDuplicateOf(ctx, db.Pool, b, nil))
	rows, _ = ListObservedByEmployer(ctx, db.Pool, "Acme Corp")
	assert.Nil(t, rows[1].DuplicateOf)
}

func TestMacroInsertIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := domain.MacroEvidence{
		Source: "state_payroll", Employer: "Acme Corp", Metro: "Austin, TX",
		Role: "Software Engineer", Seniority: domain.SeniorityMid,
		Headcount: 42, Confidence: 0.8,
		AsOf: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	added, err := InsertMacroIgnore(ctx, db.Pool, m)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = InsertMacroIgnore(ctx, db.Pool, m)
	require.NoError(t, err)
	assert.False(t, added, "re-delivery is a no-op")

	n, err := CountMacro(ctx, db.Pool)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := ListMacroEvidence(ctx, db.Pool, "Acme Corp", "Austin, TX", "Software Engineer",
		domain.SeniorityMid, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 42, rows[0].Headcount, 1e-9)

	keys, err := ListMacroKeys(ctx, db.Pool, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, domain.RecordInferred, keys[0].RecordType)
}

func TestArchetypeUpsertConvergesOnOneRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	a := domain.Archetype{
		ArchetypeKey: domain.ArchetypeKey{
			Employer: "Acme Corp", Metro: "Austin, TX", Role: "Software Engineer",
			Seniority: domain.SenioritySenior, RecordType: domain.RecordObserved,
		},
		HeadcountP10: 1, HeadcountP50: 2, HeadcountP90: 3,
		Confidence: 0.5, ObservationCount: 4,
		EvidenceStart: now.AddDate(0, 0, -30), EvidenceEnd: now,
		TopSources: []string{"greenhouse"},
		CreatedAt:  now, UpdatedAt: now,
	}

	id1, err := UpsertArchetype(ctx, db.Pool, a)
	require.NoError(t, err)

	a.Confidence = 0.61
	a.ObservationCount = 5
	id2, err := UpsertArchetype(ctx, db.Pool, a)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same key, same row")

	rows, err := ListArchetypes(ctx, db.Pool, ListArchetypeOpts{Employer: "Acme Corp"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.61, rows[0].Confidence, 1e-9)
	assert.Equal(t, 5, rows[0].ObservationCount)
	assert.Equal(t, []string{"greenhouse"}, rows[0].TopSources)
	assert.Nil(t, rows[0].SalaryP50)
}

func TestEvidenceLinksAppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	l := domain.EvidenceLink{
		ArchetypeID: 7, EvidenceType: domain.EvidenceObservedJob, EvidenceID: 99,
		Weight: 0.9, Source: "greenhouse", CreatedAt: now,
	}
	added, err := InsertEvidenceLinkIgnore(ctx, db.Pool, l)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = InsertEvidenceLinkIgnore(ctx, db.Pool, l)
	require.NoError(t, err)
	assert.False(t, added)

	links, err := ListEvidenceLinks(ctx, db.Pool, 7)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, domain.EvidenceObservedJob, links[0].EvidenceType)
}

func TestSyncSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, SyncSources(ctx, db.Pool, []domain.Source{
		{Name: "greenhouse", Tier: "A", Weight: 0.9},
		{Name: "job_board", Tier: "C", Weight: 0.5},
	}))
	require.NoError(t, SyncSources(ctx, db.Pool, []domain.Source{
		{Name: "greenhouse", Tier: "A", Weight: 0.95},
	}))

	srcs, err := ListSources(ctx, db.Pool)
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "greenhouse", srcs[0].Name)
	assert.InDelta(t, 0.95, srcs[0].Weight, 1e-9)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := WithTx(ctx, db.Pool, func(tx *sql.Tx) error {
		if _, err := InsertLifecycle(ctx, tx, "greenhouse", "gh-tx", day0); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := GetLifecycle(ctx, db.Pool, "greenhouse", "gh-tx")
	require.NoError(t, err)
	assert.Nil(t, got, "rolled back")

	require.NoError(t, WithTx(ctx, db.Pool, func(tx *sql.Tx) error {
		_, err := InsertLifecycle(ctx, tx, "greenhouse", "gh-tx", day0)
		return err
	}))
	got, err = GetLifecycle(ctx, db.Pool, "greenhouse", "gh-tx")
	require.NoError(t, err)
	assert.NotNil(t, got, "committed")
}
