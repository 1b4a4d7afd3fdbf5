// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "spot-the-difference/config"
)

// ObjectPutter is the slice of the S3 API the store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Store uploads game images to a Cloudflare R2 bucket.
type R2Store struct {
	client     ObjectPutter
	bucket     string
	cdnBaseURL string
}

func NewR2Store(ctx context.Context, cfg appconfig.R2Config) (*R2Store, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("R2 is not configured (CLOUDFLARE_ACCOUNT_ID and R2_BUCKET_NAME are required)")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
		// The SDK only applies AWS_CA_BUNDLE to its own buildable client.
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(HTTPTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	cdn := cfg.CDNBaseURL
	if cdn == "" {
		cdn = endpoint + "/" + cfg.Bucket
	}
	return NewR2StoreWithClient(client, cfg.Bucket, cdn), nil
}

// NewR2StoreWithClient wires an existing S3 client, used by tests.
func NewR2StoreWithClient(client ObjectPutter, bucket, cdnBaseURL string) *R2Store {
	return &R2Store{client: client, bucket: bucket, cdnBaseURL: strings.TrimRight(cdnBaseURL, "/")}
}

// Upload stores data under key and returns the public CDN URL.
// key is the R2 object key (e.g., "games/uid/gid/original.png")
func (r *R2Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to upload empty object %s", key)
	}
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return r.PublicURL(key), nil
}

func (r *R2Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", r.cdnBaseURL, key)
}
