// Package aggregate fuses weighted observation evidence into archetype rows:
// one confidence-scored aggregate per (employer, metro, role, seniority,
// record_type) with an append-only provenance trail.
package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/metrics"
	"jobsignal-engine/internal/pacing"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
)

const (
	DefaultWindowDays      = 90
	DefaultMaxParallelKeys = 4
	DefaultUpsertsPerSec   = 50.0
)

// Calibration of the headcount band for observed evidence: stated openings
// undercount slightly more often than they overcount.
const (
	headcountLowFactor  = 0.8
	headcountHighFactor = 1.3
)

type Aggregator struct {
	DB              *store.DB
	Log             *zap.Logger
	Registry        *sources.Registry
	WindowDays      int
	MaxParallelKeys int
	UpsertsPerSec   float64
	Now             func() time.Time // nil means time.Now
}

// Stats summarizes one aggregation pass. Errors counts keys that failed
// after a retry; the pass itself still completes.
type Stats struct {
	RunID    string `json:"run_id"`
	Keys     int    `json:"keys"`
	Upserted int    `json:"upserted"`
	Links    int    `json:"links"`
	Skipped  int    `json:"skipped"`
	Errors   int    `json:"errors"`
}

type keyResult struct {
	skipped bool
	links   int
}

// Run aggregates every key with evidence inside the window, observed and
// inferred sides both. Keys fan out over a bounded worker group; each key is
// retried once on failure and a still-failing key is counted, never fatal.
func (a *Aggregator) Run(ctx context.Context) (Stats, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	windowDays := a.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	parallel := a.MaxParallelKeys
	if parallel <= 0 {
		parallel = DefaultMaxParallelKeys
	}
	upsertsPerSec := a.UpsertsPerSec
	if upsertsPerSec <= 0 {
		upsertsPerSec = DefaultUpsertsPerSec
	}

	start := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	log := a.Log.With(zap.String("run_id", stats.RunID))
	since := now().AddDate(0, 0, -windowDays)

	observedKeys, err := store.ListObservedKeys(ctx, a.DB.Pool, since)
	if err != nil {
		return stats, err
	}
	macroKeys, err := store.ListMacroKeys(ctx, a.DB.Pool, since)
	if err != nil {
		return stats, err
	}
	keys := append(observedKeys, macroKeys...)
	stats.Keys = len(keys)

	limiter := pacing.NewKeyLimiter(upsertsPerSec, 1)
	var g errgroup.Group
	g.SetLimit(parallel)
	var mu sync.Mutex

	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := limiter.Wait(ctx, string(key.RecordType)); err != nil {
				return err
			}

			res, err := a.aggregateKey(ctx, key, since, now())
			if err != nil && ctx.Err() == nil {
				// Upsert races are retryable at the key level.
				res, err = a.aggregateKey(ctx, key, since, now())
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Errors++
				metrics.AggregateKeyErrorsTotal.Inc()
				log.Warn("key failed",
					zap.String("employer", key.Employer),
					zap.String("metro", key.Metro),
					zap.String("role", key.Role),
					zap.String("record_type", string(key.RecordType)),
					zap.Error(err))
				return nil // one failing key must not block others
			}
			if res.skipped {
				stats.Skipped++
				return nil
			}
			stats.Upserted++
			stats.Links += res.links
			metrics.ArchetypesUpsertedTotal.WithLabelValues(string(key.RecordType)).Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	metrics.AggregateDuration.Observe(time.Since(start).Seconds())
	log.Info("aggregation complete",
		zap.Int("keys", stats.Keys),
		zap.Int("upserted", stats.Upserted),
		zap.Int("links", stats.Links),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

func (a *Aggregator) aggregateKey(ctx context.Context, key domain.ArchetypeKey, since, now time.Time) (keyResult, error) {
	switch key.RecordType {
	case domain.RecordObserved:
		return a.aggregateObserved(ctx, key, since, now)
	case domain.RecordInferred:
		return a.aggregateInferred(ctx, key, since, now)
	default:
		return keyResult{}, fmt.Errorf("unknown record type %q", key.RecordType)
	}
}

// aggregateObserved fuses direct posting evidence. Headcount comes from the
// summed stated openings with a calibration band around it; salary
// percentiles come from the weighted midpoints of rows that state a range.
func (a *Aggregator) aggregateObserved(ctx context.Context, key domain.ArchetypeKey, since, now time.Time) (keyResult, error) {
	rows, err := store.ListObservedEvidence(ctx, a.DB.Pool, key.Employer, key.Metro, key.Role, key.Seniority, since)
	if err != nil {
		return keyResult{}, err
	}
	if len(rows) == 0 {
		return keyResult{skipped: true}, nil // no zero-evidence rows
	}

	var (
		totalOpenings float64
		salarySamples []sample
		withSalary    int
		weightSum     float64
		confWeighted  float64
		locWeighted   float64
		srcWeights    = map[string]float64{}
		links         = make([]domain.EvidenceLink, 0, len(rows))
	)
	evStart, evEnd := rows[0].AsOf, rows[0].AsOf

	for _, row := range rows {
		w := a.Registry.Weight(row.Source)
		ew := w * row.Confidence

		totalOpenings += float64(row.Openings)
		if row.SalaryMin != nil || row.SalaryMax != nil {
			withSalary++
			salarySamples = append(salarySamples, sample{value: salaryMidpoint(row.SalaryMin, row.SalaryMax), weight: ew})
		}
		weightSum += w
		confWeighted += w * row.Confidence
		locWeighted += w * row.MetroConf
		srcWeights[row.Source] += ew
		if row.AsOf.Before(evStart) {
			evStart = row.AsOf
		}
		if row.AsOf.After(evEnd) {
			evEnd = row.AsOf
		}
		links = append(links, domain.EvidenceLink{
			EvidenceType: domain.EvidenceObservedJob, EvidenceID: row.ID,
			Weight: ew, Source: row.Source, CreatedAt: now,
		})
	}

	arch := domain.Archetype{
		ArchetypeKey: key,
		HeadcountP10: headcountLowFactor * totalOpenings,
		HeadcountP50: totalOpenings,
		HeadcountP90: headcountHighFactor * totalOpenings,
	}
	applySalaryStats(&arch, newSeries(salarySamples))

	var sourceConf, locationConf float64
	if weightSum > 0 {
		sourceConf = confWeighted / weightSum
		locationConf = locWeighted / weightSum
	}
	arch.Confidence = composite(confidenceInputs{
		source:   sourceConf,
		salary:   salaryConfidence(withSalary, len(rows)),
		location: locationConf,
		sample:   sampleConfidence(len(rows)),
	})
	arch.ObservationCount = len(rows)
	arch.EvidenceStart, arch.EvidenceEnd = evStart, evEnd
	arch.TopSources = topSources(srcWeights, 3)
	arch.CreatedAt, arch.UpdatedAt = now, now

	return a.persist(ctx, arch, links)
}

// aggregateInferred fuses macro/statistical evidence. Each macro row is an
// independent headcount estimate, so percentiles run across rows instead of
// summing them.
func (a *Aggregator) aggregateInferred(ctx context.Context, key domain.ArchetypeKey, since, now time.Time) (keyResult, error) {
	rows, err := store.ListMacroEvidence(ctx, a.DB.Pool, key.Employer, key.Metro, key.Role, key.Seniority, since)
	if err != nil {
		return keyResult{}, err
	}
	if len(rows) == 0 {
		return keyResult{skipped: true}, nil
	}

	var (
		headSamples   []sample
		salarySamples []sample
		withSalary    int
		weightSum     float64
		confWeighted  float64
		srcWeights    = map[string]float64{}
		links         = make([]domain.EvidenceLink, 0, len(rows))
	)
	evStart, evEnd := rows[0].AsOf, rows[0].AsOf

	for _, row := range rows {
		w := a.Registry.Weight(row.Source)
		ew := w * row.Confidence

		headSamples = append(headSamples, sample{value: row.Headcount, weight: ew})
		if row.SalaryMin != nil || row.SalaryMax != nil {
			withSalary++
			salarySamples = append(salarySamples, sample{value: salaryMidpoint(row.SalaryMin, row.SalaryMax), weight: ew})
		}
		weightSum += w
		confWeighted += w * row.Confidence
		srcWeights[row.Source] += ew
		if row.AsOf.Before(evStart) {
			evStart = row.AsOf
		}
		if row.AsOf.After(evEnd) {
			evEnd = row.AsOf
		}
		links = append(links, domain.EvidenceLink{
			EvidenceType: domain.EvidenceMacroEvidence, EvidenceID: row.ID,
			Weight: ew, Source: row.Source, CreatedAt: now,
		})
	}

	heads := newSeries(headSamples)
	if heads.empty() {
		return keyResult{skipped: true}, nil // all evidence weightless
	}

	arch := domain.Archetype{
		ArchetypeKey: key,
		HeadcountP10: heads.percentile(0.10),
		HeadcountP50: heads.percentile(0.50),
		HeadcountP90: heads.percentile(0.90),
	}
	applySalaryStats(&arch, newSeries(salarySamples))

	var sourceConf float64
	if weightSum > 0 {
		sourceConf = confWeighted / weightSum
	}
	arch.Confidence = composite(confidenceInputs{
		source:   sourceConf,
		salary:   salaryConfidence(withSalary, len(rows)),
		location: macroLocationConfidence,
		sample:   sampleConfidence(len(rows)),
	})
	arch.ObservationCount = len(rows)
	arch.EvidenceStart, arch.EvidenceEnd = evStart, evEnd
	arch.TopSources = topSources(srcWeights, 3)
	arch.CreatedAt, arch.UpdatedAt = now, now

	return a.persist(ctx, arch, links)
}

// persist writes the archetype and appends its evidence links in one
// transaction. Existing links are never dropped.
func (a *Aggregator) persist(ctx context.Context, arch domain.Archetype, links []domain.EvidenceLink) (keyResult, error) {
	var res keyResult
	err := store.WithTx(ctx, a.DB.Pool, func(tx *sql.Tx) error {
		res.links = 0
		id, err := store.UpsertArchetype(ctx, tx, arch)
		if err != nil {
			return err
		}
		for i := range links {
			links[i].ArchetypeID = id
			added, err := store.InsertEvidenceLinkIgnore(ctx, tx, links[i])
			if err != nil {
				return err
			}
			if added {
				res.links++
			}
		}
		return nil
	})
	return res, err
}

func salaryMidpoint(min, max *float64) float64 {
	switch {
	case min != nil && max != nil:
		return (*min + *max) / 2
	case min != nil:
		return *min
	default:
		return *max
	}
}

func applySalaryStats(arch *domain.Archetype, s series) {
	if s.empty() {
		return
	}
	p25, p50, p75 := s.percentile(0.25), s.percentile(0.50), s.percentile(0.75)
	mean, stddev := s.mean(), s.stddev()
	arch.SalaryP25, arch.SalaryP50, arch.SalaryP75 = &p25, &p50, &p75
	arch.SalaryMean, arch.SalaryStddev = &mean, &stddev
}

// topSources names the heaviest contributing sources, at most n, weight
// descending with names breaking ties.
func topSources(weights map[string]float64, n int) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
