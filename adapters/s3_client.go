package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/lib"
)

// S3Options describes S3 compatible endpoint.
// The Bucket may be omitted, when it is the first path element of Endpoint,
// e.g. https://<account>.r2.cloudflarestorage.com/<bucket>
// Public urls are PublicBaseURL/key. Without PublicBaseURL they are
// scheme://host/bucket/key, also when Bucket is given separately,
// as objects are addressed path-style.
type S3Options struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	RequestTimeout  time.Duration
	MaxRequestSize  int64
	SkipNotModified bool
	PublicBaseURL   string
}

// SplitEndpoint returns endpoint base (scheme and host) and bucket
func SplitEndpoint(endpoint, bucket string) (string, string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("endpoint %q must be absolute url", endpoint)
	}
	base := u.Scheme + "://" + u.Host
	if bucket == "" {
		bucket, _, _ = strings.Cut(lib.TrimSlashes(u.Path), "/")
	}
	if bucket == "" {
		return "", "", errors.ErrNoBucket
	}
	return base, bucket, nil
}

// NewS3Client creates path-style S3 client for given endpoint.
// The timeout is applied to every single http request.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, string, error) {
	base, bucket, err := SplitEndpoint(opts.Endpoint, opts.Bucket)
	if err != nil {
		return nil, "", err
	}

	region := opts.Region
	if region == "" {
		region = "auto"
	}
	httpClient := awshttp.NewBuildableClient()
	if opts.RequestTimeout > 0 {
		httpClient = httpClient.WithTimeout(opts.RequestTimeout)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, "", fmt.Errorf("loading AWS config: %w", err)
	}
	// Not every S3 compatible store understands the flexible checksums
	cfg.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	cfg.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(base)
		o.UsePathStyle = true
	})
	return client, bucket, nil
}
