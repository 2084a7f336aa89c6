// Package pipeline sequences the triage core: ingest and normalization,
// duplicate detection, rule classification, audit event generation, and
// one batched persistence call. Stages run strictly in order with no
// automatic retries; per-unit failures are collected into the run
// summary and never abort the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openintake/triage/internal/dedup"
	"github.com/openintake/triage/internal/events"
	"github.com/openintake/triage/internal/normalize"
	"github.com/openintake/triage/internal/rules"
	"github.com/openintake/triage/internal/store"
	"github.com/openintake/triage/internal/types"
)

// Orchestrator wires the triage components into one runnable pipeline.
type Orchestrator struct {
	store      store.Store
	normalizer *normalize.Normalizer
	engine     *rules.Engine
	detector   *dedup.Detector
	auditlog   *events.Logger
	tables     *rules.Tables
	cfg        Config
	log        *slog.Logger
	now        func() time.Time
}

// New creates an Orchestrator over the given store. Nil tables use the
// compiled-in defaults; a nil logger falls back to slog.Default().
func New(st store.Store, tables *rules.Tables, dedupCfg dedup.Config, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if tables == nil {
		tables = rules.DefaultTables()
	}
	if logger == nil {
		logger = slog.Default()
	}
	detector, err := dedup.New(st, st, dedupCfg, logger)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		store:      st,
		normalizer: normalize.New(logger),
		engine:     rules.NewDefaultEngine(tables, logger),
		detector:   detector,
		auditlog:   events.NewLogger(st, logger),
		tables:     tables,
		cfg:        cfg,
		log:        logger,
		now:        time.Now,
	}, nil
}

// Execute runs one full triage pass for the tenant. An empty statusFilter
// or non-positive limit falls back to the configured defaults. When
// persist is false the run stops after event generation and reports zero
// persisted events.
//
// Only an inability to even start (source unreachable) returns an error;
// it comes with an explicit zero-result summary. Every other failure is
// recoverable and lands in the summary's error list.
func (o *Orchestrator) Execute(ctx context.Context, tenantID, statusFilter string, limit int, persist bool) (*types.PipelineResult, error) {
	if statusFilter == "" {
		statusFilter = o.cfg.StatusFilter
	}
	if limit <= 0 {
		limit = o.cfg.FetchLimit
	}

	started := o.now().UTC()
	result := &types.PipelineResult{
		RunID:     uuid.New().String(),
		TenantID:  tenantID,
		StartedAt: started,
	}
	stage := StageIngest

	raws, err := o.store.FetchUnits(ctx, tenantID, statusFilter, limit)
	if err != nil {
		result.Elapsed = o.now().UTC().Sub(started)
		return result, types.TransportErrorf("fetching units for tenant %s: %v", tenantID, err)
	}
	result.UnitsIngested = len(raws)

	units, normErrs := o.normalizer.NormalizeBatch(raws)
	result.UnitsNormalized = len(units)
	result.Errors = append(result.Errors, normErrs...)

	if len(units) == 0 {
		// Nothing to triage; short-circuit with a zero-valued summary.
		if err := advance(&stage, StageDone); err != nil {
			return result, err
		}
		result.Elapsed = o.now().UTC().Sub(started)
		o.log.Info("pipeline run complete", "run", result.RunID, "units", 0)
		return result, nil
	}

	if err := advance(&stage, StageDuplicateDetection); err != nil {
		return result, err
	}
	detections, exact, err := o.detector.Detect(ctx, units, tenantID)
	if err != nil {
		result.Errors = append(result.Errors,
			types.UnitError{Stage: string(stage), Message: err.Error()})
	}
	result.Detections = detections
	result.DuplicatesFound = len(detections)
	result.ExactMatches = exact
	for _, det := range detections {
		if !o.detector.ProposeLinkage(ctx, tenantID, det) {
			result.Errors = append(result.Errors, types.UnitError{
				UnitID: det.DuplicateUnitID,
				Stage:  string(stage),
				Message: fmt.Sprintf("linkage proposal %s -> %s not recorded",
					det.PrimaryUnitID, det.DuplicateUnitID),
			})
		}
	}

	if err := advance(&stage, StageClassification); err != nil {
		return result, err
	}
	enrichments := make([]*rules.Enrichment, len(units))
	classifications := make([]*types.ClassificationResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ClassifyWorkers)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			enr := o.enrich(gctx, unit)
			enrichments[i] = enr
			classifications[i] = o.engine.Classify(unit, enr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	result.Classifications = classifications
	result.UnitsClassified = len(classifications)

	if err := advance(&stage, StageEventGeneration); err != nil {
		return result, err
	}
	batch, err := o.generateEvents(ctx, units, enrichments, classifications, detections, result)
	if err != nil {
		// Integrity failures are the only fatal class.
		result.Elapsed = o.now().UTC().Sub(started)
		return result, err
	}
	result.Events = batch
	result.EventsGenerated = len(batch)

	if persist {
		if err := advance(&stage, StagePersistence); err != nil {
			return result, err
		}
		pctx, cancel := context.WithTimeout(ctx, o.cfg.PersistTimeout)
		receipt := o.auditlog.Persist(pctx, tenantID, batch)
		cancel()
		result.EventsPersisted = receipt.CreatedCount
		result.EventsFailed = receipt.FailedCount
		for _, msg := range receipt.Errors {
			result.Errors = append(result.Errors,
				types.UnitError{Stage: string(StagePersistence), Message: msg})
		}
		if err := o.store.MarkProcessed(ctx, units); err != nil {
			result.Errors = append(result.Errors, types.UnitError{
				Stage:   string(StagePersistence),
				Message: fmt.Sprintf("marking units processed: %v", err),
			})
		}
	}

	if err := advance(&stage, StageDone); err != nil {
		return result, err
	}
	result.Elapsed = o.now().UTC().Sub(started)
	o.log.Info("pipeline run complete",
		"run", result.RunID,
		"tenant", tenantID,
		"units", result.UnitsNormalized,
		"duplicates", result.DuplicatesFound,
		"events_persisted", result.EventsPersisted,
		"errors", len(result.Errors),
		"elapsed", result.Elapsed)
	return result, nil
}

// Classify enriches and classifies a single unit outside a full run.
func (o *Orchestrator) Classify(ctx context.Context, unit *types.InformationUnit) *types.ClassificationResult {
	return o.engine.Classify(unit, o.enrich(ctx, unit))
}

// DetectDuplicates runs duplicate detection over an ad-hoc unit set.
func (o *Orchestrator) DetectDuplicates(ctx context.Context, units []*types.InformationUnit, tenantID string) ([]*types.DuplicateDetection, int, error) {
	return o.detector.Detect(ctx, units, tenantID)
}

// generateEvents builds the full audit batch in deterministic unit order:
// one FLOW_CLASSIFIED per unit, DEADLINE_* events where enrichment
// crossed thresholds, one DUPLICATE_DETECTED per pair, and the closing
// PIPELINE_COMPLETED summary event.
func (o *Orchestrator) generateEvents(ctx context.Context, units []*types.InformationUnit, enrichments []*rules.Enrichment, classifications []*types.ClassificationResult, detections []*types.DuplicateDetection, result *types.PipelineResult) ([]*types.EventLog, error) {
	var batch []*types.EventLog
	now := o.now().UTC()

	for i, unit := range units {
		ev, err := o.auditlog.NewFlowClassifiedEvent(ctx, classifications[i])
		if err != nil {
			return nil, err
		}
		batch = append(batch, ev)

		enr := enrichments[i]
		if len(enr.DeadlineMatches) > 0 {
			ev, err := o.auditlog.NewDeadlineDetectedEvent(ctx, unit, enr.DeadlineMatches)
			if err != nil {
				return nil, err
			}
			batch = append(batch, ev)
		}
		if enr.DueDate != nil {
			remaining := enr.DueDate.Sub(now)
			if remaining > 0 && remaining <= criticalDeadlineWindow {
				ev, err := o.auditlog.NewDeadlineCriticalEvent(ctx, unit,
					enr.DueDate.Format("2006-01-02"), remaining.Hours()/24)
				if err != nil {
					return nil, err
				}
				batch = append(batch, ev)
			}
		}
	}

	for _, det := range detections {
		ev, err := o.auditlog.NewDuplicateDetectedEvent(ctx, result.TenantID, det)
		if err != nil {
			return nil, err
		}
		batch = append(batch, ev)
	}

	result.EventsGenerated = len(batch) + 1
	summary, err := o.auditlog.NewPipelineCompletedEvent(ctx, result)
	if err != nil {
		return nil, err
	}
	return append(batch, summary), nil
}

// advance moves the run state machine, rejecting invalid transitions.
func advance(stage *Stage, target Stage) error {
	if !stage.CanTransitionTo(target) {
		return fmt.Errorf("invalid stage transition %s -> %s", *stage, target)
	}
	*stage = target
	return nil
}
