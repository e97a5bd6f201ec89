package database

import "github.com/gaborage/qdb/database/internal/tracking"

type (
	TrackedConnection = tracking.Connection
	TrackingContext   = tracking.Context
	TrackedOperation  = tracking.Operation
)

var (
	NewTrackedConnection          = tracking.NewConnection
	TrackDBOperation              = tracking.TrackDBOperation
	NewTrackingSettings           = tracking.NewSettings
	RegisterConnectionPoolMetrics = tracking.RegisterConnectionPoolMetrics
)

const (
	DefaultSlowQueryThreshold = tracking.DefaultSlowQueryThreshold
	DefaultMaxQueryLength     = tracking.DefaultMaxQueryLength
)
