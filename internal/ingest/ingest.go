// Package ingest drives the per-observation pipeline: validate the input,
// canonicalize the title, normalize employer and metro, fingerprint the
// content, then apply the lifecycle transition and the observed row in one
// transaction. Duplicate annotation runs per touched employer after the batch.
package ingest

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobsignal-engine/internal/dedup"
	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/lifecycle"
	"jobsignal-engine/internal/metrics"
	"jobsignal-engine/internal/normalize"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
	"jobsignal-engine/internal/taxonomy"
)

const DefaultReviewThreshold = 0.7

var validate = validator.New()

type Ingester struct {
	DB              *store.DB
	Log             *zap.Logger
	Registry        *sources.Registry
	Parser          *taxonomy.Parser
	Metros          *normalize.MetroTable
	ReviewThreshold float64 // 0 means DefaultReviewThreshold
}

// Stats is the batch outcome contract. Per-item failures are counted and the
// pass keeps going; a non-zero error count is an operational signal, not a
// failure of the call.
type Stats struct {
	RunID      string `json:"run_id"`
	Received   int    `json:"received"`
	New        int    `json:"new"`
	Updated    int    `json:"updated"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

func (s *Stats) merge(o Stats) {
	s.Received += o.Received
	s.New += o.New
	s.Updated += o.Updated
	s.Duplicates += o.Duplicates
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}

// MacroStats summarizes one macro-evidence intake.
type MacroStats struct {
	RunID      string `json:"run_id"`
	Received   int    `json:"received"`
	Added      int    `json:"added"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeNew
	outcomeUpdated
)

// ProcessBatch applies every observation, each in its own transaction, then
// re-annotates duplicates for the employers the batch touched.
func (ing *Ingester) ProcessBatch(ctx context.Context, batch []domain.Observation) (Stats, error) {
	start := time.Now()
	stats := Stats{RunID: uuid.NewString(), Received: len(batch)}
	log := ing.Log.With(zap.String("run_id", stats.RunID))

	touched := map[string]bool{}
	for i := range batch {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		out, employer, err := ing.processOne(ctx, batch[i])
		switch {
		case err != nil:
			stats.Errors++
			metrics.ObservationsTotal.WithLabelValues("error").Inc()
			log.Warn("observation failed",
				zap.String("source", batch[i].Source),
				zap.String("external_id", batch[i].ExternalID),
				zap.Error(err))
		case out == outcomeNew:
			stats.New++
			metrics.ObservationsTotal.WithLabelValues("new").Inc()
			touched[employer] = true
		case out == outcomeUpdated:
			stats.Updated++
			metrics.ObservationsTotal.WithLabelValues("updated").Inc()
			touched[employer] = true
		default:
			stats.Skipped++
			metrics.ObservationsTotal.WithLabelValues("skipped").Inc()
		}
	}

	employers := make([]string, 0, len(touched))
	for e := range touched {
		employers = append(employers, e)
	}
	sort.Strings(employers)
	for _, employer := range employers {
		var res dedup.AnnotateResult
		err := store.WithTx(ctx, ing.DB.Pool, func(tx *sql.Tx) error {
			var err error
			res, err = dedup.AnnotateEmployer(ctx, tx, employer)
			return err
		})
		if err != nil {
			stats.Errors++
			log.Warn("duplicate annotation failed", zap.String("employer", employer), zap.Error(err))
			continue
		}
		stats.Duplicates += res.Duplicates
	}

	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	log.Info("ingest complete",
		zap.Int("received", stats.Received),
		zap.Int("new", stats.New),
		zap.Int("updated", stats.Updated),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// processOne validates, enriches and persists a single observation. The
// lifecycle transition and the observed row commit together or not at all.
func (ing *Ingester) processOne(ctx context.Context, obs domain.Observation) (outcome, string, error) {
	if err := validate.Struct(obs); err != nil {
		ing.Log.Debug("malformed observation", zap.String("source", obs.Source), zap.Error(err))
		return outcomeSkipped, "", nil
	}
	if !ing.Registry.Known(obs.Source) {
		ing.Log.Debug("unregistered source", zap.String("source", obs.Source))
		return outcomeSkipped, "", nil
	}
	employer := normalize.Employer(obs.RawEmployer)
	if employer == "" {
		return outcomeSkipped, "", nil
	}

	metro, metroConf := ing.Metros.Metro(obs.RawLocation)
	parsed := ing.Parser.Parse(obs.RawTitle)
	metrics.TitleParseConfidence.Observe(parsed.RoleConfidence)

	threshold := ing.ReviewThreshold
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	openings := obs.Openings
	if openings <= 0 {
		openings = 1 // unstated counts as one opening
	}

	row := domain.ObservedJob{
		Source:        obs.Source,
		ExternalID:    obs.ExternalID,
		Employer:      employer,
		Metro:         metro,
		MetroConf:     metroConf,
		RawTitle:      normalize.CleanText(obs.RawTitle),
		Role:          parsed.Role,
		RoleConf:      parsed.RoleConfidence,
		Seniority:     parsed.Seniority,
		SeniorityConf: parsed.SeniorityConfidence,
		SalaryMin:     obs.SalaryMin,
		SalaryMax:     obs.SalaryMax,
		Openings:      openings,
		Status:        domain.StatusActive,
		FirstSeen:     obs.AsOf,
		LastSeen:      obs.AsOf,
		Fingerprint:   dedup.Fingerprint(obs.RawTitle, employer, metro, obs.RawDescription),
		NeedsReview:   taxonomy.ShouldQueueForReview(parsed, threshold),
		Confidence:    obs.Confidence,
		AsOf:          obs.AsOf,
	}

	var out outcome
	err := store.WithTx(ctx, ing.DB.Pool, func(tx *sql.Tx) error {
		out = outcomeSkipped

		if obs.ExternalID == "" {
			// aggregate/no-id sources stand alone, one row per sighting
			if _, err := store.InsertObserved(ctx, tx, row); err != nil {
				return err
			}
			out = outcomeNew
			return nil
		}

		lcID, transition, err := lifecycle.Track(ctx, tx, obs.Source, obs.ExternalID, obs.AsOf)
		if err != nil {
			return err
		}
		if transition == lifecycle.TransitionTerminal {
			return nil // closed identities are never reopened
		}

		existing, err := store.GetObservedByIdentity(ctx, tx, obs.Source, obs.ExternalID)
		if err != nil {
			return err
		}
		if existing == nil {
			row.LifecycleID = &lcID
			if _, err := store.InsertObserved(ctx, tx, row); err != nil {
				return err
			}
			out = outcomeNew
			return nil
		}

		lastSeen := existing.LastSeen
		if obs.AsOf.After(lastSeen) {
			lastSeen = obs.AsOf
		}
		asOf := existing.AsOf
		if obs.AsOf.After(asOf) {
			asOf = obs.AsOf
		}
		if err := store.RefreshObservedSighting(ctx, tx, existing.ID, lastSeen, asOf, obs.SalaryMin, obs.SalaryMax); err != nil {
			return err
		}
		out = outcomeUpdated
		return nil
	})
	return out, employer, err
}

// IngestMacro records aggregate/statistical evidence. Redelivery of the same
// natural key collapses on the unique index instead of erroring.
func (ing *Ingester) IngestMacro(ctx context.Context, batch []domain.MacroEvidence) (MacroStats, error) {
	stats := MacroStats{RunID: uuid.NewString(), Received: len(batch)}
	log := ing.Log.With(zap.String("run_id", stats.RunID))

	for i := range batch {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		m := batch[i]
		if err := validate.Struct(m); err != nil {
			stats.Skipped++
			log.Debug("malformed macro evidence", zap.String("source", m.Source), zap.Error(err))
			continue
		}
		if !domain.ValidSeniority(m.Seniority) || !ing.Registry.Known(m.Source) {
			stats.Skipped++
			continue
		}

		m.Employer = normalize.Employer(m.Employer)
		m.Metro, _ = ing.Metros.Metro(m.Metro)
		m.Role = normalize.CleanText(m.Role)
		if m.Employer == "" || m.Metro == "" || m.Role == "" {
			stats.Skipped++
			continue
		}

		added, err := store.InsertMacroIgnore(ctx, ing.DB.Pool, m)
		if err != nil {
			stats.Errors++
			log.Warn("macro evidence failed", zap.String("source", m.Source), zap.Error(err))
			continue
		}
		if added {
			stats.Added++
		} else {
			stats.Duplicates++
		}
	}

	log.Info("macro intake complete",
		zap.Int("received", stats.Received),
		zap.Int("added", stats.Added),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))
	return stats, nil
}
