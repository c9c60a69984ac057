package service

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretStore - граница секретного хранилища: единственная операция чтения
// секрета по идентификатору
type SecretStore interface {
	GetSecret(ctx context.Context, id string) ([]byte, error)
}

type secretsManagerStore struct {
	client *secretsmanager.Client
}

// NewSecretsManagerStore создает клиента AWS Secrets Manager для указанного
// региона
func NewSecretsManagerStore(ctx context.Context, region string) (SecretStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &secretsManagerStore{client: secretsmanager.NewFromConfig(cfg)}, nil
}

func (s *secretsManagerStore) GetSecret(ctx context.Context, id string) ([]byte, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %q: %w", id, err)
	}

	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}
	return out.SecretBinary, nil
}
