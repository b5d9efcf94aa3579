package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ca-srg/chatbridge/internal/types"
)

// Source supplies secret values for platform adapters. Implementations
// return an empty string with a nil error when the source simply has no
// value for the key; a non-nil error means the lookup itself failed.
type Source interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvSource resolves credentials from process environment variables,
// mapping registry keys to their declared variable names.
type EnvSource struct{}

// Get returns the environment value for the key's declared variable.
func (EnvSource) Get(_ context.Context, key string) (string, error) {
	spec, ok := SpecFor(key)
	if !ok {
		return "", fmt.Errorf("unknown credential key: %s", key)
	}
	return strings.TrimSpace(os.Getenv(spec.EnvVar)), nil
}

// StaticSource serves credentials from a fixed map. Used by tests and
// by callers that embed the dispatcher with externally managed secrets.
type StaticSource map[string]string

// Get returns the mapped value, or an empty string for unknown keys.
func (s StaticSource) Get(_ context.Context, key string) (string, error) {
	return s[key], nil
}

// Source selector values for CREDENTIAL_SOURCE.
const (
	SourceEnv            = "env"
	SourceSecretsManager = "secretsmanager"
)

// NewSourceFromConfig returns the credential source selected by the
// configuration. The source is chosen once at construction; callers do
// not switch sources per request.
func NewSourceFromConfig(ctx context.Context, cfg *types.Config) (Source, error) {
	switch cfg.CredentialSource {
	case "", SourceEnv:
		return EnvSource{}, nil
	case SourceSecretsManager:
		return NewSecretsManagerSource(ctx, cfg.AWSRegion, cfg.CredentialSecretsPrefix)
	default:
		return nil, fmt.Errorf("unknown credential source: %s", cfg.CredentialSource)
	}
}
