package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin on db plus callbacks that
// mark slow queries and errors on the statement span.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, dbSystem string, logger *zap.Logger) error {
	if !cfg.DBTraceEnabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(dbSystem)}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.DBSlowQueryThresh
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	if err := registerSpanCallbacks(db, threshold); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", threshold),
	)
	return nil
}

func registerSpanCallbacks(db *gorm.DB, threshold time.Duration) error {
	cb := db.Callback()
	markStart := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	annotate := func(tx *gorm.DB) { annotateSpan(tx, threshold) }

	// gorm's processor type is unexported, so each kind gets its own closure.
	regs := []struct {
		op  string
		reg func(name string, fn func(*gorm.DB), before bool) error
	}{
		{"create", func(n string, fn func(*gorm.DB), before bool) error {
			if before {
				return cb.Create().Before("gorm:create").Register(n, fn)
			}
			return cb.Create().After("gorm:create").Register(n, fn)
		}},
		{"query", func(n string, fn func(*gorm.DB), before bool) error {
			if before {
				return cb.Query().Before("gorm:query").Register(n, fn)
			}
			return cb.Query().After("gorm:query").Register(n, fn)
		}},
		{"update", func(n string, fn func(*gorm.DB), before bool) error {
			if before {
				return cb.Update().Before("gorm:update").Register(n, fn)
			}
			return cb.Update().After("gorm:update").Register(n, fn)
		}},
		{"delete", func(n string, fn func(*gorm.DB), before bool) error {
			if before {
				return cb.Delete().Before("gorm:delete").Register(n, fn)
			}
			return cb.Delete().After("gorm:delete").Register(n, fn)
		}},
		{"row", func(n string, fn func(*gorm.DB), before bool) error {
			if before {
				return cb.Row().Before("gorm:row").Register(n, fn)
			}
			return cb.Row().After("gorm:row").Register(n, fn)
		}},
		{"raw", func(n string, fn func(*gorm.DB), before bool) error {
			if before {
				return cb.Raw().Before("gorm:raw").Register(n, fn)
			}
			return cb.Raw().After("gorm:raw").Register(n, fn)
		}},
	}
	for _, r := range regs {
		if err := r.reg("otel_timing:before_"+r.op, markStart, true); err != nil {
			return err
		}
		if err := r.reg("otel_timing:after_"+r.op, annotate, false); err != nil {
			return err
		}
	}
	return nil
}

func annotateSpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
