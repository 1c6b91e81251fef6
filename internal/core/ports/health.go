package ports

import "context"

// HealthChecker is one dependency reported by GET /health. Ping returns nil
// when the settlement path through that dependency is usable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// NamedCheck adapts a plain function into a HealthChecker.
func NamedCheck(name string, ping func(ctx context.Context) error) HealthChecker {
	return namedCheck{name: name, ping: ping}
}

type namedCheck struct {
	name string
	ping func(ctx context.Context) error
}

func (n namedCheck) Ping(ctx context.Context) error { return n.ping(ctx) }
func (n namedCheck) Name() string                   { return n.name }

// TransactorCheck reports whether the store can open and commit an empty
// unit of work.
func TransactorCheck(name string, tx Transactor) HealthChecker {
	return NamedCheck(name, func(ctx context.Context) error {
		return tx.WithinTransaction(ctx, func(context.Context) error { return nil })
	})
}
