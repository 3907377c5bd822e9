//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

import (
	"context"

	"github.com/hashicorp/vault/api"
)

//counterfeiter:generate -o ../mocks/secrets_repository.go . SecretsRepository

// SecretsRepository is the slice of the Vault logical API the config loader
// needs: authenticate, then read the service's KV v2 secret.
type SecretsRepository interface {
	SetToken(token string)
	// Read returns nil without error when nothing is stored at path.
	Read(ctx context.Context, path string) (*api.Secret, error)
	// Write is used for auth endpoints such as auth/approle/login.
	Write(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
}
