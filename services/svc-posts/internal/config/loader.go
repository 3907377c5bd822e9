package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
)

const (
	authMethodToken   = "token"
	authMethodAppRole = "approle"

	appRoleLoginPath = "auth/approle/login"
)

// Loader overlays secrets kept in Vault on top of the environment
// configuration and keeps them current.
type Loader struct {
	cfg          *ServiceConfig
	secrets      ports.SecretsRepository
	signals      chan os.Signal
	reloadErrors chan error
	lastVersion  uint
	retryDelay   time.Duration
}

// Init reads the environment into a validated ServiceConfig. Build time
// version variables win over the environment.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	for target, value := range map[*string]string{
		&cfg.App.ServiceVersion: ServiceVersion,
		&cfg.App.CommitSHA:      CommitSHA,
		&cfg.App.APIVersion:     APIVersion,
	} {
		if value != "" {
			*target = value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return cfg, nil
}

func NewLoader(cfg *ServiceConfig, secrets ports.SecretsRepository, initialVersion uint) *Loader {
	return &Loader{
		cfg:          cfg,
		secrets:      secrets,
		signals:      make(chan os.Signal, 1),
		reloadErrors: make(chan error, 1),
		lastVersion:  initialVersion,
		retryDelay:   time.Second,
	}
}

// WatchConfigSignals reloads secrets on SIGHUP and on every poll tick, and
// dumps the configuration on SIGUSR1. The returned channel reports reload
// outcomes and closes when ctx is done.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.signals, syscall.SIGHUP, syscall.SIGUSR1)

	var tick <-chan time.Time

	storage := l.cfg.SecretsStorage
	if storage.Enabled && storage.PollInterval > 0 {
		ticker := time.NewTicker(storage.PollInterval)
		tick = ticker.C

		context.AfterFunc(ctx, ticker.Stop)
	}

	go func() {
		defer close(l.reloadErrors)
		defer signal.Stop(l.signals)

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				l.reloadIfChanged(ctx)
			case sig := <-l.signals:
				if sig == syscall.SIGUSR1 {
					l.DumpConfig()

					continue
				}

				l.reloadIfChanged(ctx)
			}
		}
	}()

	return l.reloadErrors
}

// DumpConfig prints the effective configuration. Secrets are tagged
// omitempty or redacted by their json tags.
func (l *Loader) DumpConfig() {
	out, err := json.MarshalIndent(l.cfg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stdout, "Error marshaling config: %v\n", err)

		return
	}

	fmt.Fprintf(os.Stdout, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", out)
}

// Load authenticates against Vault, applies the stored secrets to the config
// and returns the version of the secret that was applied.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretsStorage.Enabled {
		return 0, errors.New("secret storage is not enabled")
	}

	if err := l.authenticate(ctx); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	data, version, err := l.fetch(ctx)
	if err != nil {
		return 0, err
	}

	if err := l.apply(data); err != nil {
		return 0, fmt.Errorf("failed to apply secrets to config: %w", err)
	}

	l.lastVersion = version

	return version, nil
}

func (l *Loader) authenticate(ctx context.Context) error {
	storage := l.cfg.SecretsStorage

	switch strings.ToLower(storage.AuthMethod) {
	case authMethodToken:
		if storage.Token == "" {
			return errors.New("token is required for token auth method")
		}

		l.secrets.SetToken(storage.Token)

		return nil
	case authMethodAppRole:
		if storage.RoleID == "" || storage.SecretID == "" {
			return errors.New("role_id and secret_id are required for approle auth method")
		}

		resp, err := l.secrets.Write(ctx, appRoleLoginPath, map[string]any{
			"role_id":   storage.RoleID,
			"secret_id": storage.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return errors.New("no auth info returned from Vault")
		}

		l.secrets.SetToken(resp.Auth.ClientToken)

		return nil
	default:
		return fmt.Errorf("unsupported auth method: %s", storage.AuthMethod)
	}
}

func (l *Loader) reloadIfChanged(ctx context.Context) {
	_, version, err := l.fetch(ctx)
	if err != nil {
		l.report(err)

		return
	}

	if version == l.lastVersion {
		return
	}

	_, err = l.Load(ctx)
	l.report(err)
}

// fetch reads the KV v2 secret and splits it into payload and version.
func (l *Loader) fetch(ctx context.Context) (map[string]any, uint, error) {
	path := l.secretPath()

	secret, err := l.read(ctx, path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, 0, nil
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, 0, fmt.Errorf("invalid secret format at path %s, missing 'data' key", path)
	}

	metadata, _ := secret.Data["metadata"].(map[string]any)

	version, err := secretVersion(metadata)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	return data, version, nil
}

// read retries transient Vault failures with exponential backoff, bounded by
// VAULT_MAX_RETRIES and VAULT_TIMEOUT.
func (l *Loader) read(ctx context.Context, path string) (*api.Secret, error) {
	storage := l.cfg.SecretsStorage

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = l.retryDelay

	if storage.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, storage.Timeout)
		defer cancel()

		expBackoff.MaxInterval = storage.Timeout
	}

	secret, err := backoff.Retry(
		ctx,
		func() (*api.Secret, error) { return l.secrets.Read(ctx, path) },
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(storage.MaxRetries+1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read from path %s: %w", path, err)
	}

	return secret, nil
}

func (l *Loader) secretPath() string {
	return "apps/data/" + l.cfg.SecretsStorage.MountPath
}

func secretVersion(metadata map[string]any) (uint, error) {
	raw, ok := metadata["version"]
	if !ok {
		return 0, nil
	}

	switch v := raw.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case uint:
		return v, nil
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", raw)
	}
}

// apply exports every string secret to the environment and copies the
// credentials the service reads at runtime into the config.
func (l *Loader) apply(data map[string]any) error {
	targets := map[string]*string{
		"POSTGRES_USERNAME": &l.cfg.Database.Username,
		"POSTGRES_PASSWORD": &l.cfg.Database.Password,
		"SEARCH_USERNAME":   &l.cfg.Search.Username,
		"SEARCH_PASSWORD":   &l.cfg.Search.Password,
		"CACHE_PASSWORD":    &l.cfg.Cache.Password,
	}

	for key, raw := range data {
		value, ok := raw.(string)
		if !ok || value == "" {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set environment variable %s: %w", key, err)
		}

		if target, ok := targets[key]; ok {
			*target = value
		}
	}

	return nil
}

func (l *Loader) report(err error) {
	select {
	case l.reloadErrors <- err:
	default:
	}
}
