package vault

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"visitnotes/internal/config"
	"visitnotes/internal/visit"
)

// NewVaultFromConfig creates an AudioVault implementation based on the vault config type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (visit.AudioVault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "s3":
		v, err := newS3VaultFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "minio":
		v, err := newMinioVaultFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}

func newS3VaultFromConfig(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyEnv != "" {
		ak, sk := os.Getenv(cfg.S3AccessKeyEnv), os.Getenv(cfg.S3SecretKeyEnv)
		if ak == "" || sk == "" {
			return nil, fmt.Errorf("s3 credentials not set in %s/%s", cfg.S3AccessKeyEnv, cfg.S3SecretKeyEnv)
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ak, sk, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Vault(cfg.Name, client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func newMinioVaultFromConfig(cfg config.VaultConfig) (*MinioVault, error) {
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return nil, fmt.Errorf("minio vault requires minio_endpoint and minio_bucket to be set")
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(os.Getenv(cfg.MinioAccessKeyEnv), os.Getenv(cfg.MinioSecretKeyEnv), ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return NewMinioVault(cfg.Name, client, cfg.MinioBucket, cfg.MinioPrefix), nil
}
