package domain

import "context"

// Store is a unit of work over the card and user repositories.
// Repositories obtained from the Store passed to fn share one transaction:
// either every write made inside fn becomes visible or none does.
type Store interface {
	Cards() CardRepository
	Users() UserRepository
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}
