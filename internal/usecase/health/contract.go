package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// GeodataChecker checks that the named-area reference datasets are usable.
type GeodataChecker interface {
	HealthCheck(ctx context.Context) error
}
