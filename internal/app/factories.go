package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"dbxmcp/internal/domain"
	"dbxmcp/internal/infra/dropbox"
	"dbxmcp/internal/infra/s3store"
)

// NewBackend constructs the storage backend named by the configuration.
// The second return reports whether credentials were present: without
// them a dropbox gateway still gets a backend, one whose every operation
// fails with an auth fault, so the process serves and reports
// api_configured false instead of refusing to start.
func NewBackend(ctx context.Context, cfg BackendConfig, logger *zap.Logger) (domain.Backend, bool, error) {
	switch cfg.Provider {
	case "dropbox":
		if !cfg.Dropbox.Configured() {
			return unconfiguredBackend{}, false, nil
		}
		backend, err := newDropboxBackend(cfg.Dropbox, logger)
		return backend, err == nil, err
	case "s3":
		backend, err := newS3Backend(ctx, cfg.S3, logger)
		return backend, err == nil, err
	default:
		return nil, false, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}
}

func newDropboxBackend(cfg DropboxConfig, logger *zap.Logger) (domain.Backend, error) {
	client, err := dropbox.New(dropbox.Options{
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		AppKey:       cfg.AppKey,
		AppSecret:    cfg.AppSecret,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create dropbox backend: %w", err)
	}
	return client, nil
}

// unconfiguredBackend stands in when no credentials are set. Every
// operation fails with the same auth fault, so tool calls come back as
// clean failure envelopes rather than panics or nil dereferences.
type unconfiguredBackend struct{}

func notConfigured(op string) *domain.BackendError {
	return domain.BackendFault(domain.FaultAuth, op, "no dropbox credentials configured", nil)
}

func (unconfiguredBackend) ListFolder(ctx context.Context, path string, recursive bool, limit int) (domain.Page, error) {
	return domain.Page{}, notConfigured("list_folder")
}

func (unconfiguredBackend) ListFolderContinue(ctx context.Context, cursor string) (domain.Page, error) {
	return domain.Page{}, notConfigured("list_folder/continue")
}

func (unconfiguredBackend) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Entry, error) {
	return nil, notConfigured("search")
}

func (unconfiguredBackend) GetMetadata(ctx context.Context, path string) (domain.Entry, error) {
	return domain.Entry{}, notConfigured("get_metadata")
}

func (unconfiguredBackend) Download(ctx context.Context, path string) (domain.FileContent, error) {
	return domain.FileContent{}, notConfigured("download")
}

func (unconfiguredBackend) Upload(ctx context.Context, path string, data []byte, mode domain.WriteMode) (domain.Entry, error) {
	return domain.Entry{}, notConfigured("upload")
}

func (unconfiguredBackend) CreateFolder(ctx context.Context, path string) (domain.Entry, error) {
	return domain.Entry{}, notConfigured("create_folder")
}

func (unconfiguredBackend) Move(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	return domain.Entry{}, notConfigured("move")
}

func (unconfiguredBackend) Copy(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	return domain.Entry{}, notConfigured("copy")
}

func (unconfiguredBackend) Delete(ctx context.Context, path string) (domain.Entry, error) {
	return domain.Entry{}, notConfigured("delete")
}

func (unconfiguredBackend) ListSharedLinks(ctx context.Context, path string) ([]domain.SharedLink, error) {
	return nil, notConfigured("list_shared_links")
}

func (unconfiguredBackend) CreateSharedLink(ctx context.Context, path string) (domain.SharedLink, error) {
	return domain.SharedLink{}, notConfigured("create_shared_link")
}

func (unconfiguredBackend) ListRevisions(ctx context.Context, path string, limit int) ([]domain.Revision, error) {
	return nil, notConfigured("list_revisions")
}

func (unconfiguredBackend) SpaceUsage(ctx context.Context) (domain.SpaceUsage, error) {
	return domain.SpaceUsage{}, notConfigured("space_usage")
}

func (unconfiguredBackend) CurrentAccount(ctx context.Context) (domain.Account, error) {
	return domain.Account{}, notConfigured("current_account")
}

var _ domain.Backend = unconfiguredBackend{}

func newS3Backend(ctx context.Context, cfg S3Config, logger *zap.Logger) (domain.Backend, error) {
	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	// Custom endpoints serve MinIO and other S3-compatible stores.
	if cfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		provider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := s3store.New(s3store.Config{
		Client:        client,
		Bucket:        cfg.Bucket,
		KeyPrefix:     cfg.KeyPrefix,
		PresignExpiry: cfg.PresignExpiry,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 backend: %w", err)
	}
	return store, nil
}
