package photostore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineStore_RoundTrip(t *testing.T) {
	store := NewInlineStore()
	ctx := context.Background()

	ref, err := store.Put(ctx, "alice", []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/9j/", ref)

	data, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}

func TestInlineStore_Get(t *testing.T) {
	store := NewInlineStore()

	tests := []struct {
		name    string
		ref     string
		want    []byte
		wantErr bool
	}{
		{name: "plain base64", ref: "aGVsbG8=", want: []byte("hello")},
		{name: "data url", ref: "data:image/png;base64,aGVsbG8=", want: []byte("hello")},
		{name: "empty", ref: "", wantErr: true},
		{name: "garbage", ref: "not base64!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := store.Get(context.Background(), tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestInlineStore_PutEmpty(t *testing.T) {
	_, err := NewInlineStore().Put(context.Background(), "alice", nil, "image/png")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("Alice Smith", "image/png")
	assert.True(t, strings.HasPrefix(key, "photos/alice-smith/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	key = ObjectKey("", "image/jpeg")
	assert.True(t, strings.HasPrefix(key, "photos/anonymous/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
}

// fakeBucket is a path-style S3 endpoint that keeps objects in memory.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<Error><Code>NoSuchKey</Code></Error>`))
			return
		}
		w.Write(body)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store_RoundTrip(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
	server := httptest.NewServer(bucket)
	defer server.Close()

	ctx := context.Background()
	store, err := NewS3Store(ctx, S3Options{
		Bucket:          "photos",
		Endpoint:        server.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		PublicBaseURL:   "https://cdn.example.com",
	})
	require.NoError(t, err)

	ref, err := store.Put(ctx, "bob", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "https://cdn.example.com/photos/bob/"), ref)

	key := strings.TrimPrefix(ref, "https://cdn.example.com/")
	bucket.mu.Lock()
	assert.Equal(t, []byte("png-bytes"), bucket.objects["/photos/"+key])
	assert.Equal(t, "image/png", bucket.types["/photos/"+key])
	bucket.mu.Unlock()

	data, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	// rows written before the bucket existed still decode
	data, err = store.Get(ctx, "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, store.Delete(ctx, ref))
	bucket.mu.Lock()
	_, stillThere := bucket.objects["/photos/"+key]
	bucket.mu.Unlock()
	assert.False(t, stillThere)

	require.NoError(t, store.Delete(ctx, "aGVsbG8="))
}
