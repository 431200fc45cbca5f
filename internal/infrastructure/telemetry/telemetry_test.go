package telemetry

import (
	"context"
	"errors"
	"runtime/pprof"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/codes"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	cfg := config.TelemetryConfig{ServiceName: "test"}

	tp, err := NewTracerProvider(ctx, cfg, log)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, log)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, log)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.Core(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := NewProfiler(config.ProfilingConfig{}, "test", log)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(config.ProfilingConfig{Enabled: true}, "test", zap.NewNop())
	assert.Error(t, err)
}

func newRecordingTracer(t *testing.T) (*TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProviderWithExporter(config.TelemetryConfig{
		Enabled:       true,
		ServiceName:   "test",
		SamplingRatio: 1.0,
	}, exporter, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exporter
}

func TestStartSpan_RecordsErrorAndIdentity(t *testing.T) {
	tp, exporter := newRecordingTracer(t)
	ctx := context.Background()

	ctx, span := StartSpan(ctx, "token", "rotate")
	SetIdentity(ctx, "t1", "u1")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	require.NoError(t, tp.ForceFlush(ctx))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "token.rotate", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "t1", attrs["tenant_id"])
	assert.Equal(t, "u1", attrs["user_id"])
}

func TestRegisterDBTracing(t *testing.T) {
	tp, exporter := newRecordingTracer(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	cfg := config.TelemetryConfig{DBTraceEnabled: true}
	require.NoError(t, RegisterDBTracing(db, cfg, "sqlite", zap.NewNop()))

	type widget struct {
		ID   string `gorm:"primaryKey"`
		Name string
	}
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, db.WithContext(ctx).AutoMigrate(&widget{}))
	require.NoError(t, db.WithContext(ctx).Create(&widget{ID: "w1", Name: "a"}).Error)
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Greater(t, len(spans), 1)
	parentID := spans[len(spans)-1].SpanContext.SpanID()
	var children int
	for _, s := range spans {
		if s.Parent.SpanID() == parentID {
			children++
		}
	}
	assert.Positive(t, children)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	assert.NoError(t, RegisterDBTracing(db, config.TelemetryConfig{}, "sqlite", zap.NewNop()))
}

func sumCounter(t *testing.T, rm metricdata.ResourceMetrics, name string) map[string]int64 {
	t.Helper()
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				key := ""
				for _, kv := range dp.Attributes.ToSlice() {
					key += string(kv.Key) + "=" + kv.Value.Emit()
				}
				out[key] += dp.Value
			}
		}
	}
	return out
}

func TestPipelineMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp, err := NewMeterProviderWithReader("test", reader, zap.NewNop())
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	m, err := NewPipelineMetrics(mp.Meter("pipeline"))
	require.NoError(t, err)

	ctx := context.Background()
	m.IdempotencyOutcome(ctx, OutcomeMiss)
	m.IdempotencyOutcome(ctx, OutcomeReplay)
	m.IdempotencyOutcome(ctx, OutcomeReplay)
	m.RefreshRotated(ctx)
	m.RefreshReuseDetected(ctx, "t1")
	m.Purged(ctx, "idempotency", 7, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	idem := sumCounter(t, rm, "idempotency_requests_total")
	assert.Equal(t, int64(1), idem["outcome=miss"])
	assert.Equal(t, int64(2), idem["outcome=replay"])
	assert.Equal(t, int64(1), sumCounter(t, rm, "refresh_token_rotations_total")[""])
	assert.Equal(t, int64(1), sumCounter(t, rm, "refresh_token_reuse_total")["tenant_id=t1"])
	assert.Equal(t, int64(7), sumCounter(t, rm, "maintenance_purged_rows_total")["job=idempotency"])
}

func TestPipelineMetrics_NilIsNoop(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.IdempotencyOutcome(ctx, OutcomeMiss)
		m.RefreshRotated(ctx)
		m.RefreshReuseDetected(ctx, "t1")
		m.Purged(ctx, "x", 1, 0)
	})
}

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func TestLoggerProvider_BridgesAtLevel(t *testing.T) {
	exp := &recordingExporter{}
	lp, err := NewLoggerProviderWithProcessor("test", sdklog.NewSimpleProcessor(exp), zap.NewNop())
	require.NoError(t, err)
	defer lp.Shutdown(context.Background())

	core := lp.Core(zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))

	log := zap.New(core).With(zap.String("tenant_id", "t1"))
	log.Info("dropped")
	log.Warn("refresh token reuse detected")

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.records, 1)
	assert.Equal(t, "refresh token reuse detected", exp.records[0].Body().AsString())
}

func TestWithTenantLabels(t *testing.T) {
	var route, tenant string
	WithTenantLabels(context.Background(), "/api/v1/products", "t1", func(ctx context.Context) {
		route, _ = pprof.Label(ctx, "route")
		tenant, _ = pprof.Label(ctx, "tenant_id")
	})
	assert.Equal(t, "/api/v1/products", route)
	assert.Equal(t, "t1", tenant)
}
