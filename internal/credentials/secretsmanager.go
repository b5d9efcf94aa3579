package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the Secrets Manager surface used by the source
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource resolves credentials from AWS Secrets Manager.
// Secret names are the registry keys under a configurable prefix, e.g.
// "chatbridge/slack".
type SecretsManagerSource struct {
	client SecretsManagerAPI
	prefix string
}

// NewSecretsManagerSource creates a source backed by the default AWS
// credential chain.
func NewSecretsManagerSource(ctx context.Context, region, prefix string) (*SecretsManagerSource, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SecretsManagerSource{
		client: secretsmanager.NewFromConfig(awsConfig),
		prefix: prefix,
	}, nil
}

// NewSecretsManagerSourceWithClient creates a source around an existing
// client, for tests.
func NewSecretsManagerSourceWithClient(client SecretsManagerAPI, prefix string) *SecretsManagerSource {
	return &SecretsManagerSource{client: client, prefix: prefix}
}

// Get fetches the secret stored under prefix+key. A missing secret is
// reported as absent, not as an error.
func (s *SecretsManagerSource) Get(ctx context.Context, key string) (string, error) {
	name := s.prefix + key

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}

	if out.SecretString != nil {
		return strings.TrimSpace(*out.SecretString), nil
	}
	if len(out.SecretBinary) > 0 {
		return strings.TrimSpace(string(out.SecretBinary)), nil
	}
	return "", nil
}
