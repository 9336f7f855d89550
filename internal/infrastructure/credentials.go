package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"gaexport/internal/domain"
	"gaexport/pkg/config"
)

// reads a service-account key from a file
type FileCredentials struct {
	Path string
}

func (c FileCredentials) Credentials(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return validateKey(data)
}

// holds a service-account key passed through the environment
type InlineCredentials struct {
	JSON string
}

func (c InlineCredentials) Credentials(ctx context.Context) ([]byte, error) {
	return validateKey([]byte(c.JSON))
}

// reads a service-account key from Secret Manager,
// e.g. projects/my-project/secrets/ga-key/versions/latest
type SecretManagerCredentials struct {
	Name string
}

func (c SecretManagerCredentials) Credentials(ctx context.Context) ([]byte, error) {
	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	defer sm.Close()

	res, err := sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: c.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret %s: %w", c.Name, err)
	}

	return validateKey(res.GetPayload().GetData())
}

// NewCredentialSource picks the configured source, or nil for application default credentials.
func NewCredentialSource(cfg config.CredentialsConfig) domain.CredentialSource {
	switch {
	case cfg.File != "":
		return FileCredentials{Path: cfg.File}
	case cfg.JSON != "":
		return InlineCredentials{JSON: cfg.JSON}
	case cfg.Secret != "":
		return SecretManagerCredentials{Name: cfg.Secret}
	default:
		return nil
	}
}

// LoadCredentials resolves src, treating a nil source as "no explicit key".
func LoadCredentials(ctx context.Context, src domain.CredentialSource) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return src.Credentials(ctx)
}

func validateKey(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("credentials are empty")
	}
	if !json.Valid(data) {
		return nil, errors.New("credentials are not valid JSON")
	}
	return data, nil
}
