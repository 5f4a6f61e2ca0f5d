package ports

import "context"

// SecretStore holds credential bundles keyed by the SecretRef recorded on the
// account. Implementations must treat values as opaque.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
