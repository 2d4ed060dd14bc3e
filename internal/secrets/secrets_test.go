package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type fakeAPI struct {
	value *string
	err   error
	gotID string
}

func (f *fakeAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.gotID = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestClientSecret(t *testing.T) {
	boom := errors.New("access denied")

	tests := []struct {
		name    string
		api     *fakeAPI
		want    string
		wantErr error
	}{
		{"plain value", &fakeAPI{value: aws.String(" s3cret\n")}, "s3cret", nil},
		{"json value", &fakeAPI{value: aws.String(`{"client_secret":"from-json"}`)}, "from-json", nil},
		{"json without key", &fakeAPI{value: aws.String(`{"other":"x"}`)}, "", ErrEmptySecret},
		{"empty", &fakeAPI{value: aws.String("")}, "", ErrEmptySecret},
		{"binary only", &fakeAPI{}, "", ErrEmptySecret},
		{"api error", &fakeAPI{err: boom}, "", boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClientSecret(context.Background(), tt.api, "arn:secret")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("secret = %q, want %q", got, tt.want)
			}
			if tt.api.gotID != "arn:secret" {
				t.Errorf("secret id = %q", tt.api.gotID)
			}
		})
	}
}
