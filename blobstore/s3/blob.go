package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// object reads one S3 object with ranged GETs.
type object struct {
	ctx    context.Context
	client Client
	bucket string
	key    string
	size   int64
}

func (o *object) Size() int64  { return o.size }
func (o *object) Close() error { return nil }

// span opens the byte range [off, off+n) clipped to the object.
func (o *object) span(ctx context.Context, off, n int64) (io.ReadCloser, int64, error) {
	n = min(n, o.size-off)
	if n <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), 0, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+n-1)),
	})
	if err != nil {
		return nil, 0, err
	}
	return out.Body, n, nil
}

func (o *object) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	body, n, err := o.span(o.ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	got, err := io.ReadFull(body, p[:n])
	if err == nil && got < len(p) {
		err = io.EOF
	}
	return got, err
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	body, _, err := o.span(ctx, off, length)
	return body, err
}
