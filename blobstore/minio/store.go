package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/minio/minio-go/v7"
)

// Store keeps the blobs of one sequence store under a key prefix of a bucket.
type Store struct {
	client   *minio.Client
	bucket   string
	root     string
	partSize uint64
	meta     map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithPartSize sets the multipart part size of streamed chunk uploads.
// Zero lets the client pick.
func WithPartSize(n uint64) Option {
	return func(s *Store) { s.partSize = n }
}

// WithUserMetadata attaches metadata to every object the store writes.
func WithUserMetadata(meta map[string]string) Option {
	return func(s *Store) { s.meta = meta }
}

// NewStore returns a Store rooted at root inside bucket, e.g.
// "runs/sample-17". An empty root uses the whole bucket.
func NewStore(client *minio.Client, bucket, root string, opts ...Option) *Store {
	s := &Store{client: client, bucket: bucket, root: strings.Trim(root, "/")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string {
	if s.root == "" {
		return name
	}
	return s.root + "/" + name
}

func (s *Store) putOptions(name string) minio.PutObjectOptions {
	ct := "application/octet-stream"
	if path.Ext(name) == ".json" {
		ct = "application/json"
	}
	return minio.PutObjectOptions{
		ContentType:  ct,
		UserMetadata: s.meta,
		PartSize:     s.partSize,
	}
}

func missing(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Open stats name. Reads through the returned blob use ctx.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	o := &object{ctx: ctx, client: s.client, bucket: s.bucket, key: s.key(name)}
	st, err := s.client.StatObject(ctx, s.bucket, o.key, minio.StatObjectOptions{})
	if missing(err) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.size = st.Size
	return o, nil
}

// Put uploads data in one request with an MD5 check.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	opts := s.putOptions(name)
	opts.SendContentMd5 = true
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), opts)
	return err
}

// Create streams writes into a multipart upload. The object appears when
// Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	u := &upload{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions(name))
		_ = pr.CloseWithError(err)
		u.done <- err
	}()
	return u, nil
}

// Delete removes name. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !missing(err) {
		return err
	}
	return nil
}

// List returns the sorted names below the store root that start with prefix.
// Object listings are already in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := obj.Key
		if s.root != "" {
			name = strings.TrimPrefix(name, s.root+"/")
		}
		names = append(names, name)
	}
	return names, nil
}

type object struct {
	ctx    context.Context
	client *minio.Client
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
	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, off+n-1); err != nil {
		return nil, 0, err
	}
	rc, err := o.client.GetObject(ctx, o.bucket, o.key, opts)
	return rc, n, err
}

func (o *object) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	rc, n, err := o.span(o.ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	got, err := io.ReadFull(rc, p[:n])
	if err == nil && got < len(p) {
		err = io.EOF
	}
	return got, err
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, _, err := o.span(ctx, off, length)
	return rc, err
}

var errAborted = errors.New("minio: upload aborted")

type upload struct {
	pw     *io.PipeWriter
	done   chan error
	closed bool
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }

func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	if u.closed {
		return errors.New("minio: upload already closed")
	}
	u.closed = true
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

// Abort stops the upload so no object is created.
func (u *upload) Abort() error {
	if u.closed {
		return nil
	}
	u.closed = true
	_ = u.pw.CloseWithError(errAborted)
	<-u.done
	return nil
}
