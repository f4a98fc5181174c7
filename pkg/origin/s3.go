package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Fetcher fetches origin content from an S3 (or S3-compatible)
// bucket via GetObject. It satisfies Fetcher just as HTTPFetcher
// does, so a ProxyHandler can hold either; cmd/gfproxy itself always
// constructs an HTTPFetcher and has no setting that selects this one.
type S3Fetcher struct {
	client *s3.Client
	bucket string
}

// NewS3Fetcher wraps an already-configured s3.Client (credentials and
// region resolution are the caller's concern, via aws-sdk-go-v2's
// config.LoadDefaultConfig) for reads against bucket.
func NewS3Fetcher(client *s3.Client, bucket string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket}
}

func (f *S3Fetcher) Fetch(ctx context.Context, path string) (uint64, io.ReadCloser, error) {
	key := strings.TrimLeft(path, "/")
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return 0, nil, ErrNotFound
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return 0, nil, ErrNotFound
		}
		return 0, nil, fmt.Errorf("origin: s3 GetObject %s/%s: %w", f.bucket, key, err)
	}

	var size uint64
	if out.ContentLength != nil {
		size = uint64(*out.ContentLength)
	}
	return size, out.Body, nil
}
