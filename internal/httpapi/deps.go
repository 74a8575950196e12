// Package httpapi is the engine's read-only query surface: archetypes,
// coverage, health, pass events over SSE, and Prometheus metrics. Nothing
// here mutates engine state.
package httpapi

import (
	"go.uber.org/zap"

	"jobsignal-engine/internal/events"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
)

type Deps struct {
	DB       *store.DB
	Hub      *events.Hub
	Registry *sources.Registry
	Log      *zap.Logger
}
