package sink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

// fakeS3 records uploads and returns queued errors first.
type fakeS3 struct {
	calls []putCall
	errs  []error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, putCall{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func httpError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New(http.StatusText(status)),
		},
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url    string
		bucket string
		prefix string
		ok     bool
	}{
		{"s3://assets", "assets", "", true},
		{"s3://assets/", "assets", "", true},
		{"s3://assets/game/ui/", "assets", "game/ui", true},
		{"https://assets", "", "", false},
		{"s3:///prefix", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, prefix, err := ParseS3URL(tt.url)
			if !tt.ok {
				assert.True(t, errs.Is(err, errs.ErrCodeInvalidInput), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestPublish(t *testing.T) {
	fs := memfs.New()
	img, meta := testAtlas()
	files, err := WriteAtlas(fs, "out", "sheet", img, meta)
	require.NoError(t, err)

	client := &fakeS3{}
	pub, err := newS3Publisher(client, "s3://assets/game/ui", fs, nil)
	require.NoError(t, err)

	uris, err := pub.Publish(context.Background(), files.All())
	require.NoError(t, err)

	assert.Equal(t, []string{"s3://assets/game/ui/sheet.png", "s3://assets/game/ui/sheet.json"}, uris)
	require.Len(t, client.calls, 2)
	assert.Equal(t, "assets", client.calls[0].bucket)
	assert.Equal(t, "game/ui/sheet.png", client.calls[0].key)
	assert.Equal(t, "image/png", client.calls[0].contentType)
	assert.Equal(t, "game/ui/sheet.json", client.calls[1].key)
	assert.Equal(t, "application/json", client.calls[1].contentType)
	assert.Contains(t, string(client.calls[1].body), `"atlas_image": "sheet.png"`)
}

func TestPublishRetriesServerErrors(t *testing.T) {
	fs := memfs.New()
	img, meta := testAtlas()
	files, err := WriteAtlas(fs, "out", "sheet", img, meta)
	require.NoError(t, err)

	client := &fakeS3{errs: []error{httpError(http.StatusServiceUnavailable)}}
	pub, err := newS3Publisher(client, "s3://assets", fs, nil)
	require.NoError(t, err)

	uris, err := pub.Publish(context.Background(), files.All()[:1])
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://assets/sheet.png"}, uris)
	assert.Len(t, client.calls, 1)
}

func TestPublishStopsOnPermanentError(t *testing.T) {
	fs := memfs.New()
	img, meta := testAtlas()
	files, err := WriteAtlas(fs, "out", "sheet", img, meta)
	require.NoError(t, err)

	client := &fakeS3{errs: []error{httpError(http.StatusForbidden)}}
	pub, err := newS3Publisher(client, "s3://assets", fs, nil)
	require.NoError(t, err)

	uris, err := pub.Publish(context.Background(), files.All())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrCodePublish))
	assert.Empty(t, uris)
	assert.Empty(t, client.calls)
}

func TestPublishMissingFile(t *testing.T) {
	pub, err := newS3Publisher(&fakeS3{}, "s3://assets", memfs.New(), nil)
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), []string{"out/nope.png"})
	assert.True(t, errs.Is(err, errs.ErrCodeIO))
}
