package adapters

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cloudcopper/warpdrive/domain/errors"
	"github.com/cloudcopper/warpdrive/lib"
	"github.com/cloudcopper/warpdrive/ports"
)

const DefaultContentType = "application/octet-stream"

// S3 batch delete supports up to 1000 objects per request
const maxDeleteBatch = 1000

var (
	uploadCount  metric.Int64Counter
	uploadBytes  metric.Int64Counter
	uploadErrors metric.Int64Counter
	cleanObjects metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cloudcopper/warpdrive/adapters")

	var err error
	uploadCount, err = meter.Int64Counter("warpdrive.upload.count", metric.WithDescription("Number of uploaded assets"))
	lib.Assert(err)
	uploadBytes, err = meter.Int64Counter("warpdrive.upload.bytes", metric.WithDescription("Bytes of uploaded assets"))
	lib.Assert(err)
	uploadErrors, err = meter.Int64Counter("warpdrive.upload.errors", metric.WithDescription("Number of failed uploads"))
	lib.Assert(err)
	cleanObjects, err = meter.Int64Counter("warpdrive.clean.objects", metric.WithDescription("Number of remote objects removed by prefix clean"))
	lib.Assert(err)
}

// S3API is the part of s3.Client used by S3UploadProvider
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type S3UploadProvider struct {
	log             ports.Logger
	fs              ports.FS
	checksum        ports.ChecksumAlgo
	client          S3API
	bucket          string
	publicBaseURL   string
	maxRequestSize  int64
	skipNotModified bool
}

// NewS3UploadProvider creates provider over ready client.
// Files up to maxRequestSize go with single put object request,
// bigger ones are uploaded in parts of maxRequestSize.
func NewS3UploadProvider(log ports.Logger, f ports.FS, checksum ports.ChecksumAlgo, client S3API, bucket string, opts S3Options) *S3UploadProvider {
	log = log.With(slog.String("entity", "S3UploadProvider"), slog.String("bucket", bucket))
	publicBaseURL := opts.PublicBaseURL
	if publicBaseURL == "" {
		base, _, err := SplitEndpoint(opts.Endpoint, bucket)
		if err == nil {
			publicBaseURL = lib.JoinURL(base, bucket)
		}
	}
	maxRequestSize := opts.MaxRequestSize
	if maxRequestSize <= 0 {
		maxRequestSize = manager.MinUploadPartSize
	}

	p := &S3UploadProvider{
		log:             log,
		fs:              f,
		checksum:        checksum,
		client:          client,
		bucket:          bucket,
		publicBaseURL:   publicBaseURL,
		maxRequestSize:  maxRequestSize,
		skipNotModified: opts.SkipNotModified,
	}
	log.Info("created", slog.String("publicBaseURL", publicBaseURL))
	return p
}

func (p *S3UploadProvider) PublicURL(key string) string {
	return lib.JoinURL(p.publicBaseURL, key)
}

func (p *S3UploadProvider) Upload(ctx context.Context, localPath, key, contentType string) error {
	if contentType == "" {
		contentType = DefaultContentType
	}
	fi, err := p.fs.Stat(localPath)
	if err != nil {
		uploadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "stat")))
		return fmt.Errorf("stat %s: %w", localPath, err)
	}
	size := fi.Size()

	if size <= p.maxRequestSize {
		err = p.putObject(ctx, localPath, key, contentType)
	} else {
		err = p.multipartUpload(ctx, localPath, key, contentType)
	}
	if err != nil {
		uploadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "put")))
		return err
	}

	uploadCount.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", p.bucket)))
	uploadBytes.Add(ctx, size, metric.WithAttributes(attribute.String("bucket", p.bucket)))
	p.log.Debug("uploaded", slog.String("key", key), slog.Int64("size", size), slog.String("contentType", contentType))
	return nil
}

func (p *S3UploadProvider) putObject(ctx context.Context, localPath, key, contentType string) error {
	data, err := afero.ReadFile(p.fs, localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (p *S3UploadProvider) multipartUpload(ctx context.Context, localPath, key, contentType string) error {
	file, err := p.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	uploader := manager.NewUploader(p.client, func(u *manager.Uploader) {
		u.PartSize = max(p.maxRequestSize, manager.MinUploadPartSize)
	})
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("multipart upload %s: %w", key, err)
	}
	return nil
}

// CleanPrefix removes all objects under prefix/.
// The prefix normalized to empty string is refused.
func (p *S3UploadProvider) CleanPrefix(ctx context.Context, prefix string) error {
	prefix = lib.TrimSlashes(prefix)
	if prefix == "" {
		return errors.ErrUnscopedPrefix
	}
	log := p.log.With(slog.String("prefix", prefix))

	keys := []string{}
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list %s/: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	if len(keys) == 0 {
		log.Info("nothing to clean")
		return nil
	}

	var errs *multierror.Error
	deleted := 0
	for i := 0; i < len(keys); i += maxDeleteBatch {
		batch := keys[i:min(i+maxDeleteBatch, len(keys))]
		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		result, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("delete objects under %s/: %w", prefix, err))
			continue
		}
		deleted += len(batch) - len(result.Errors)
		for _, failed := range result.Errors {
			errs = multierror.Append(errs, fmt.Errorf("delete %s: %s", aws.ToString(failed.Key), aws.ToString(failed.Message)))
		}
	}

	cleanObjects.Add(ctx, int64(deleted), metric.WithAttributes(attribute.String("bucket", p.bucket)))
	log.Info("prefix cleaned", slog.Int("objects", deleted), slog.Int("listed", len(keys)))
	return errs.ErrorOrNil()
}

// ShouldSkipUpload returns true when remote object etag is plain md5
// equal to the md5 of local file. A missing object is not an error.
func (p *S3UploadProvider) ShouldSkipUpload(ctx context.Context, localPath, key string) (bool, error) {
	if !p.skipNotModified {
		return false, nil
	}

	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}

	etag, err := NormalizeETag(aws.ToString(out.ETag))
	if err != nil {
		return false, err
	}

	sum, err := p.checksum.Sum(p.fs, localPath)
	if err != nil {
		return false, fmt.Errorf("checksum %s: %w", localPath, err)
	}
	return strings.EqualFold(etag, hex.EncodeToString(sum)), nil
}

// NormalizeETag strips quotes and weak prefix from the etag.
// It fails for multipart composite tags (md5-N) and not md5 looking tags.
func NormalizeETag(etag string) (string, error) {
	etag = strings.TrimPrefix(strings.TrimSpace(etag), "W/")
	etag = strings.Trim(etag, `"`)
	if etag == "" {
		return "", errors.ErrNoETag
	}
	if strings.Contains(etag, "-") {
		return "", errors.ErrMultipartETag
	}
	if len(etag) != 32 {
		return "", errors.ErrMalformedETag
	}
	if _, err := hex.DecodeString(etag); err != nil {
		return "", errors.ErrMalformedETag
	}
	return etag, nil
}

func IsNotFoundError(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
