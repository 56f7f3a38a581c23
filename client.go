package tandem

import "github.com/arloliu/tandem/types"

// Type aliases for convenience - re-export from types package.
type (
	LabelID          = types.LabelID
	LabelNames       = types.LabelNames
	LabelSnapshot    = types.LabelSnapshot
	QueryState       = types.QueryState
	ClusterStatus    = types.ClusterStatus
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)

// Re-export deployment label constants for convenience.
const (
	LabelA  = types.LabelA
	LabelB  = types.LabelB
	NoLabel = types.NoLabel
)

// Re-export query lifecycle state constants for convenience.
const (
	QueryPreparing = types.QueryPreparing
	QueryExecuting = types.QueryExecuting
	QueryFetching  = types.QueryFetching
	QueryCompleted = types.QueryCompleted
	QueryFailed    = types.QueryFailed
	QueryCancelled = types.QueryCancelled
)

// Re-export cluster status constants for convenience.
const (
	ClusterActive    = types.ClusterActive
	ClusterSuspended = types.ClusterSuspended
	ClusterResuming  = types.ClusterResuming
	ClusterFailed    = types.ClusterFailed
)
