package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/qdb/logger"
)

const (
	defaultOperation = "query"

	// OperationListColumns names column introspection in logs, spans and metrics.
	OperationListColumns = "list_columns"

	dbTracerName      = "qdb/database"
	maxDBQueryAttrLen = 2000

	attrStatementID = "qdb.statement.id"
)

// Operation describes one tracked call.
type Operation struct {
	Name         string // select, insert, update, delete, list_columns or query
	Query        string
	Start        time.Time
	RowsAffected int64
	Err          error
}

// TrackDBOperation reports a finished operation: it counts it in ctx (see
// logger.WithDBCounter), records a span and metrics, and logs it. Failures log
// at error level, slow statements at warn and the rest at debug. The returned
// id ties the log line to the span.
func TrackDBOperation(ctx context.Context, tc *Context, op Operation) string {
	if tc == nil || tc.Logger == nil {
		return ""
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	elapsed := time.Since(op.Start)
	if op.Name == "" {
		op.Name = extractDBOperation(op.Query)
	}

	logger.IncrementDBCounter(ctx)
	logger.AddDBElapsed(ctx, elapsed.Nanoseconds())

	createDBSpan(ctx, tc, id, op)
	recordDBMetrics(ctx, tc, op, elapsed)

	logEvent := tc.Logger.WithContext(ctx).WithFields(map[string]any{
		"statement_id": id,
		"vendor":       tc.Vendor,
		"operation":    op.Name,
		"duration_ms":  elapsed.Milliseconds(),
		"query":        TruncateString(op.Query, tc.Settings.MaxQueryLength()),
	})

	switch {
	case op.Err != nil && errors.Is(op.Err, sql.ErrNoRows):
		logEvent.Debug().Msg("Database operation returned no rows")
	case op.Err != nil:
		logEvent.Error().Err(op.Err).Msg("Database operation error")
	case elapsed > tc.Settings.SlowQueryThreshold():
		logEvent.Warn().Msgf("Slow database operation detected (%s)", elapsed)
	default:
		logEvent.Debug().Int64("rows_affected", op.RowsAffected).Msg("Database operation executed")
	}
	return id
}

// extractRowsAffected returns the affected row count of a successful write, or 0.
func extractRowsAffected(result sql.Result, err error) int64 {
	if result == nil || err != nil {
		return 0
	}
	affected, affErr := result.RowsAffected()
	if affErr != nil {
		return 0
	}
	return affected
}

// TruncateString shortens value to maxLen runes, ending in "..." when there
// is room for it. A non-positive maxLen disables truncation.
func TruncateString(value string, maxLen int) string {
	if maxLen <= 0 {
		return value
	}
	r := []rune(value)
	if len(r) <= maxLen {
		return value
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func createDBSpan(ctx context.Context, tc *Context, id string, op Operation) {
	tracer := otel.Tracer(dbTracerName)

	_, span := tracer.Start(ctx, fmt.Sprintf("db.%s", op.Name),
		trace.WithTimestamp(op.Start),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	attrs := []attribute.KeyValue{
		attribute.String("db.system", normalizeDBVendor(tc.Vendor)),
		semconv.DBQueryText(TruncateString(op.Query, maxDBQueryAttrLen)),
		attribute.String(attrStatementID, id),
	}
	if op.Name != defaultOperation {
		attrs = append(attrs, semconv.DBOperationName(op.Name))
	}
	span.SetAttributes(attrs...)

	if op.Err != nil && !errors.Is(op.Err, sql.ErrNoRows) {
		span.RecordError(op.Err)
		span.SetStatus(codes.Error, op.Err.Error())
	}
	span.End()
}

// extractDBOperation returns the lower-case statement verb of query.
func extractDBOperation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return defaultOperation
	}
	switch verb := strings.ToLower(fields[0]); verb {
	case "select", "insert", "update", "delete":
		return verb
	default:
		return defaultOperation
	}
}

// normalizeDBVendor maps vendor names onto OTel db.system values.
func normalizeDBVendor(vendor string) string {
	switch vendor = strings.ToLower(vendor); vendor {
	case "postgres", "postgresql":
		return "postgresql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mysql", "mariadb":
		return "mysql"
	default:
		return vendor
	}
}
