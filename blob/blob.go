package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client        s3PutObjectAPI
	bucket        string
	publicBaseURL string
}

// NewS3Store stores objects in bucket. publicBaseURL is the URL objects are
// served from (a CDN or the bucket website); when empty the virtual-hosted
// bucket URL is used.
func NewS3Store(client s3PutObjectAPI, bucket string, publicBaseURL string) *S3Store {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}

	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put %q in bucket %q: %w", key, s.bucket, err)
	}

	return objectURL(s.publicBaseURL, key), nil
}

// DirStore writes objects below a local directory. Used for LOCAL runs.
type DirStore struct {
	root    string
	baseURL string
}

func NewDirStore(root string, baseURL string) *DirStore {
	return &DirStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (d *DirStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	path := filepath.Join(d.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, filepath.Clean(d.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes the store root", key)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %q: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %q: %w", key, err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(body, size))
	if err != nil {
		return "", fmt.Errorf("failed to write %q: %w", key, err)
	}
	if written != size {
		return "", fmt.Errorf("short write for %q: got %d of %d bytes", key, written, size)
	}

	return objectURL(d.baseURL, key), nil
}

func objectURL(base string, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return base + "/" + strings.Join(segments, "/")
}
