package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	dbMeterName = "qdb/database"

	metricDBCalls      = "db.client.calls"
	metricDBDuration   = "db.client.operation.duration"
	metricRowsAffected = "db.rows.affected"

	metricPoolActive = "db.connection.pool.active"
	metricPoolIdle   = "db.connection.pool.idle"
	metricPoolTotal  = "db.connection.pool.total"

	attrDBTable     = "db.sql.table"
	attrDBOperation = "db.operation.name"
	attrDBSystem    = "db.system"

	unknownTable = "unknown"
)

var (
	dbMeter     metric.Meter
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	dbCallsCounter        metric.Int64Counter
	dbDurationHistogram   metric.Float64Histogram
	dbRowsAffectedCounter metric.Int64Counter
)

// StatsProvider is implemented by connectors backed by a database/sql pool.
type StatsProvider interface {
	Stats() sql.DBStats
}

// logMetricError reports instrument failures on stderr; metrics never fail a statement.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricName, err)
	}
}

func initDBMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if dbMeter != nil {
		return
	}
	dbMeter = otel.Meter(dbMeterName)

	var err error
	dbCallsCounter, err = dbMeter.Int64Counter(
		metricDBCalls,
		metric.WithDescription("Total number of database client calls"),
	)
	logMetricError(metricDBCalls, err)

	dbDurationHistogram, err = dbMeter.Float64Histogram(
		metricDBDuration,
		metric.WithDescription("Duration of database operations in milliseconds"),
		metric.WithUnit("ms"),
	)
	logMetricError(metricDBDuration, err)

	dbRowsAffectedCounter, err = dbMeter.Int64Counter(
		metricRowsAffected,
		metric.WithDescription("Number of rows affected by database operations"),
	)
	logMetricError(metricRowsAffected, err)
}

func getDBMeter() metric.Meter {
	meterOnce.Do(initDBMeter)
	return dbMeter
}

// recordDBMetrics counts the call, records its duration and, for successful
// writes, the affected rows. sql.ErrNoRows does not count as an error.
func recordDBMetrics(ctx context.Context, tc *Context, op Operation, duration time.Duration) {
	if getDBMeter() == nil {
		return
	}

	isError := op.Err != nil && !errors.Is(op.Err, sql.ErrNoRows)
	table := unknownTable
	if op.Name != OperationListColumns {
		table = extractTableName(op.Query)
	}

	common := []attribute.KeyValue{
		attribute.String(attrDBSystem, normalizeDBVendor(tc.Vendor)),
		attribute.String(attrDBOperation, op.Name),
		attribute.String(attrDBTable, table),
	}

	if dbCallsCounter != nil {
		attrs := make([]attribute.KeyValue, 0, len(common)+1)
		attrs = append(attrs, common...)
		attrs = append(attrs, attribute.Bool("error", isError))
		dbCallsCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if dbDurationHistogram != nil {
		dbDurationHistogram.Record(ctx, float64(duration.Nanoseconds())/1e6, metric.WithAttributes(common...))
	}
	if dbRowsAffectedCounter != nil && op.RowsAffected > 0 && !isError {
		dbRowsAffectedCounter.Add(ctx, op.RowsAffected, metric.WithAttributes(common...))
	}
}

// Table patterns accept backtick, double and single quoted names with an
// optional schema qualifier. A FROM followed by "(" is skipped so a derived
// table reports the first physical table inside it.
var (
	selectTableRegex = regexp.MustCompile("(?i)FROM\\s+(?:[`\"']?\\w+[`\"']?\\.)?[`\"']?(\\w+)[`\"']?")
	insertTableRegex = regexp.MustCompile("(?i)INSERT\\s+INTO\\s+(?:[`\"']?\\w+[`\"']?\\.)?[`\"']?(\\w+)[`\"']?")
	updateTableRegex = regexp.MustCompile("(?i)UPDATE\\s+(?:[`\"']?\\w+[`\"']?\\.)?[`\"']?(\\w+)[`\"']?")
	deleteTableRegex = regexp.MustCompile("(?i)DELETE\\s+FROM\\s+(?:[`\"']?\\w+[`\"']?\\.)?[`\"']?(\\w+)[`\"']?")
)

// extractTableName returns the lower-case primary table of query, or "unknown".
func extractTableName(query string) string {
	query = strings.TrimSpace(query)
	var pattern *regexp.Regexp
	switch extractDBOperation(query) {
	case "select":
		pattern = selectTableRegex
	case "insert":
		pattern = insertTableRegex
	case "update":
		pattern = updateTableRegex
	case "delete":
		pattern = deleteTableRegex
	default:
		return unknownTable
	}
	if m := pattern.FindStringSubmatch(query); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return unknownTable
}

type poolMetricsRegistration struct {
	conn        StatsProvider
	activeGauge metric.Int64ObservableGauge
	idleGauge   metric.Int64ObservableGauge
	totalGauge  metric.Int64ObservableGauge
	attrs       []attribute.KeyValue
}

func (r *poolMetricsRegistration) observe(_ context.Context, observer metric.Observer) error {
	stats := r.conn.Stats()
	opts := metric.WithAttributes(r.attrs...)
	if r.activeGauge != nil {
		observer.ObserveInt64(r.activeGauge, int64(stats.InUse), opts)
	}
	if r.idleGauge != nil {
		observer.ObserveInt64(r.idleGauge, int64(stats.Idle), opts)
	}
	if r.totalGauge != nil {
		observer.ObserveInt64(r.totalGauge, int64(stats.MaxOpenConnections), opts)
	}
	return nil
}

func createGauge(meter metric.Meter, name, description string) metric.Int64ObservableGauge {
	gauge, err := meter.Int64ObservableGauge(name, metric.WithDescription(description))
	logMetricError(name, err)
	return gauge
}

// RegisterConnectionPoolMetrics reports the pool state of conn as the
// db.connection.pool.{active,idle,total} gauges. The returned func
// unregisters the callback and is never nil.
func RegisterConnectionPoolMetrics(conn StatsProvider, vendor string) func() {
	noop := func() {}
	meter := getDBMeter()
	if meter == nil || conn == nil {
		return noop
	}

	reg := &poolMetricsRegistration{
		conn:  conn,
		attrs: []attribute.KeyValue{attribute.String(attrDBSystem, normalizeDBVendor(vendor))},
	}
	reg.activeGauge = createGauge(meter, metricPoolActive, "Number of active database connections")
	reg.idleGauge = createGauge(meter, metricPoolIdle, "Number of idle database connections")
	reg.totalGauge = createGauge(meter, metricPoolTotal, "Maximum number of database connections configured")

	var instruments []metric.Observable
	for _, g := range []metric.Int64ObservableGauge{reg.activeGauge, reg.idleGauge, reg.totalGauge} {
		if g != nil {
			instruments = append(instruments, g)
		}
	}
	if len(instruments) == 0 {
		return noop
	}

	registration, err := meter.RegisterCallback(reg.observe, instruments...)
	if err != nil {
		logMetricError("pool_metrics_callback", err)
		return noop
	}
	return func() {
		if err := registration.Unregister(); err != nil {
			logMetricError("pool_metrics_unregister", err)
		}
	}
}
