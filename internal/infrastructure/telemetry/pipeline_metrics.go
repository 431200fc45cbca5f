package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Idempotency coordinator outcomes.
const (
	OutcomeMiss       = "miss"
	OutcomeReplay     = "replay"
	OutcomeConflict   = "conflict"
	OutcomeRejected   = "rejected"
	OutcomeInFlight   = "in_flight"
	OutcomeStoreError = "store_error"
)

// PipelineMetrics counts events on the write pipeline and the token
// lifecycle. A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	idempotencyRequests *Counter
	refreshRotations    *Counter
	refreshReuse        *Counter
	purgedRows          *Counter
	jobDuration         *Histogram
}

// NewPipelineMetrics creates the instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)
	if m.idempotencyRequests, err = NewCounter(meter, "idempotency_requests_total",
		"Idempotency coordinator decisions by outcome", "{request}"); err != nil {
		return nil, err
	}
	if m.refreshRotations, err = NewCounter(meter, "refresh_token_rotations_total",
		"Successful refresh token rotations", "{rotation}"); err != nil {
		return nil, err
	}
	if m.refreshReuse, err = NewCounter(meter, "refresh_token_reuse_total",
		"Presentations of an already revoked refresh token", "{event}"); err != nil {
		return nil, err
	}
	if m.purgedRows, err = NewCounter(meter, "maintenance_purged_rows_total",
		"Rows removed by maintenance jobs", "{row}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "maintenance_job_duration_seconds",
		Description: "Maintenance job run time",
		Unit:        "s",
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

// IdempotencyOutcome counts one coordinator decision.
func (m *PipelineMetrics) IdempotencyOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.idempotencyRequests.Inc(ctx, AttrOutcome.String(outcome))
}

// RefreshRotated counts one successful rotation.
func (m *PipelineMetrics) RefreshRotated(ctx context.Context) {
	if m == nil {
		return
	}
	m.refreshRotations.Inc(ctx)
}

// RefreshReuseDetected counts one revoked-token presentation.
func (m *PipelineMetrics) RefreshReuseDetected(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.refreshReuse.Inc(ctx, AttrTenantID.String(tenantID))
}

// Purged records the result of one maintenance job run.
func (m *PipelineMetrics) Purged(ctx context.Context, job string, rows int64, took time.Duration) {
	if m == nil {
		return
	}
	m.purgedRows.Add(ctx, rows, AttrJob.String(job))
	m.jobDuration.RecordDuration(ctx, took, AttrJob.String(job))
}
