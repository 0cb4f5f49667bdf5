package s3_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formscan/internal/config"
	"formscan/internal/port"
	"formscan/internal/storage/s3"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		b.objects[key] = data
		b.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(b.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newStore(t *testing.T, endpoint string) port.ImageStorage {
	t.Helper()
	store, err := s3.NewImageStore(context.Background(), &config.S3Config{
		Region:    "us-east-1",
		Bucket:    "scans-bucket",
		Endpoint:  endpoint,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return store
}

func TestImageStore_UploadAndDelete(t *testing.T) {
	bucket := newFakeBucket()
	srv := httptest.NewServer(bucket)
	defer srv.Close()
	store := newStore(t, srv.URL)

	body := []byte("\x89PNG fake image")
	out, err := store.Upload(context.Background(), port.UploadInput{
		Key:         "scans/2024/05/01/abc.png",
		Body:        bytes.NewReader(body),
		ContentType: "image/png",
		Size:        int64(len(body)),
	})
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, out.ETag)
	assert.Contains(t, out.Location, "scans-bucket/scans/2024/05/01/abc.png")

	bucket.mu.Lock()
	assert.Contains(t, bucket.objects, "scans-bucket/scans/2024/05/01/abc.png")
	assert.Equal(t, "image/png", bucket.types["scans-bucket/scans/2024/05/01/abc.png"])
	bucket.mu.Unlock()

	require.NoError(t, store.Delete(context.Background(), "scans/2024/05/01/abc.png"))
	bucket.mu.Lock()
	assert.Empty(t, bucket.objects)
	bucket.mu.Unlock()
}

func TestImageStore_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	store := newStore(t, srv.URL)

	_, err := store.Upload(context.Background(), port.UploadInput{
		Key: "scans/x.png", Body: bytes.NewReader([]byte("x")), ContentType: "image/png", Size: 1,
	})
	assert.Error(t, err)
}

func TestImageStore_PresignedURL(t *testing.T) {
	store := newStore(t, "http://localhost:9000")

	url, err := store.GetPresignedURL(context.Background(), "scans/abc.png", 900)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/scans-bucket/scans/abc.png?"))
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestNewImageStore_RequiresBucket(t *testing.T) {
	_, err := s3.NewImageStore(context.Background(), &config.S3Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, s3.ErrNoBucket)
}
