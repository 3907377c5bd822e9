package repos

import (
	"context"

	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/hashicorp/vault/api"
)

var _ ports.SecretsRepository = (*VaultRepository)(nil)

// VaultRepository talks to the Vault logical API.
type VaultRepository struct {
	client *api.Client
}

func NewVaultRepository(client *api.Client) *VaultRepository {
	return &VaultRepository{client: client}
}

func (r *VaultRepository) SetToken(token string) {
	r.client.SetToken(token)
}

func (r *VaultRepository) Read(ctx context.Context, path string) (*api.Secret, error) {
	return r.client.Logical().ReadWithContext(ctx, path)
}

func (r *VaultRepository) Write(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	return r.client.Logical().WriteWithContext(ctx, path, data)
}
