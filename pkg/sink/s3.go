package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/matzehuels/atlaspack/pkg/cache"
	errs "github.com/matzehuels/atlaspack/pkg/errors"
	"github.com/matzehuels/atlaspack/pkg/observability"
)

// s3API is the subset of the S3 client the publisher needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads written atlas files to s3://bucket/prefix/.
type S3Publisher struct {
	client s3API
	fs     billy.Filesystem
	bucket string
	prefix string
	logger *log.Logger
}

// NewS3Publisher creates a publisher for target, an s3://bucket[/prefix]
// URL. Credentials and region come from the default AWS chain. Files are
// read from fs.
func NewS3Publisher(ctx context.Context, target string, fs billy.Filesystem, logger *log.Logger) (*S3Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodePublish, err, "load AWS configuration")
	}
	return newS3Publisher(s3.NewFromConfig(cfg), target, fs, logger)
}

func newS3Publisher(client s3API, target string, fs billy.Filesystem, logger *log.Logger) (*S3Publisher, error) {
	bucket, prefix, err := ParseS3URL(target)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &S3Publisher{
		client: client,
		fs:     fs,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// ParseS3URL splits s3://bucket/some/prefix into bucket and prefix. The
// prefix has no leading or trailing slash.
func ParseS3URL(target string) (bucket, prefix string, err error) {
	if err := errs.ValidateS3URL(target); err != nil {
		return "", "", err
	}
	rest := strings.TrimPrefix(target, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, strings.Trim(prefix, "/"), nil
}

// Publish uploads each file under the prefix, keeping only its base name,
// and returns the resulting s3:// URIs in order. Transient failures are
// retried with backoff; the first permanent failure stops the upload.
func (p *S3Publisher) Publish(ctx context.Context, files []string) ([]string, error) {
	uris := make([]string, 0, len(files))
	for _, file := range files {
		data, err := util.ReadFile(p.fs, file)
		if err != nil {
			return uris, errs.Wrap(errs.ErrCodeIO, err, "read %s", file)
		}

		key := path.Join(p.prefix, path.Base(file))
		contentType := mimetype.Detect(data).String()

		start := time.Now()
		err = cache.RetryWithBackoff(ctx, func() error {
			_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:        aws.String(p.bucket),
				Key:           aws.String(key),
				Body:          bytes.NewReader(data),
				ContentLength: aws.Int64(int64(len(data))),
				ContentType:   aws.String(contentType),
			})
			return classify(err)
		})
		observability.Publish().OnUpload(ctx, p.bucket, key, int64(len(data)), time.Since(start), err)
		if err != nil {
			return uris, errs.Wrap(errs.ErrCodePublish, err, "upload s3://%s/%s", p.bucket, key)
		}

		uri := "s3://" + p.bucket + "/" + key
		p.logger.Debug("uploaded", "uri", uri, "type", contentType, "bytes", len(data))
		uris = append(uris, uri)
	}
	return uris, nil
}

// classify marks throttling and server-side failures as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		code := re.HTTPStatusCode()
		if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return cache.Retryable(err)
		}
	}
	return err
}
