// Package tx defines the transaction management contract.
// Implementations live in infrastructure layer.
package tx

import "context"

// Manager runs functions within a database transaction.
// The domain layer depends on this interface only; the PostgreSQL
// implementation lives in infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a transaction. If a
	// transaction already exists in ctx it is reused.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopManager runs the function without any transaction.
// Use in unit tests backed by in-memory repositories.
type NopManager struct{}

// RunInTransaction implements Manager.
func (NopManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ Manager = NopManager{}
