package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var ErrEmptySecret = errors.New("secret has no value")

// API is the subset of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewAPI builds a Secrets Manager client from the default AWS credential chain
// (the Lambda execution role in production).
func NewAPI(ctx context.Context) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// ClientSecret fetches the platform client secret stored under arn. The secret
// may be the bare value or a JSON object with a "client_secret" key.
func ClientSecret(ctx context.Context, api API, arn string) (string, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret value: %w", err)
	}

	value := strings.TrimSpace(aws.ToString(out.SecretString))
	if value == "" {
		return "", ErrEmptySecret
	}

	if strings.HasPrefix(value, "{") {
		var doc struct {
			ClientSecret string `json:"client_secret"`
		}
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return "", fmt.Errorf("parsing secret JSON: %w", err)
		}
		if doc.ClientSecret == "" {
			return "", ErrEmptySecret
		}
		return doc.ClientSecret, nil
	}

	return value, nil
}
