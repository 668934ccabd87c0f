package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// id3 header followed by padding, enough for mimetype to sniff audio/mpeg
var mp3Data = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)

func newTestBucket(t *testing.T) *Bucket {
	t.Helper()
	return NewBucket(t.TempDir(), "audio", "http://localhost:8080/")
}

func TestEnsureBucketIsIdempotent(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	require.NoError(t, bucket.EnsureBucket(ctx))
	require.NoError(t, bucket.EnsureBucket(ctx))

	info, err := os.Stat(bucket.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUploadUsesRandomNameWithExtension(t *testing.T) {
	bucket := newTestBucket(t)

	url, err := bucket.Upload(context.Background(), mp3Data, "audio/mpeg", UploadOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/storage/audio/"), url)
	assert.True(t, strings.HasSuffix(url, ".mp3"), url)

	name := bucket.ObjectName(url)
	stored, err := os.ReadFile(filepath.Join(bucket.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, mp3Data, stored)
	assert.Equal(t, int64(len(mp3Data)), bucket.Size(url))
}

func TestUploadSniffsExtensionWithoutContentType(t *testing.T) {
	bucket := newTestBucket(t)

	url, err := bucket.Upload(context.Background(), mp3Data, "", UploadOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".mp3"), url)
}

func TestUploadRetriesOnCollision(t *testing.T) {
	bucket := newTestBucket(t)
	names := []string{"taken", "taken", "free"}
	bucket.newName = func() string {
		name := names[0]
		names = names[1:]
		return name
	}
	require.NoError(t, bucket.EnsureBucket(context.Background()))
	require.NoError(t, os.WriteFile(filepath.Join(bucket.Dir(), "taken.mp3"), []byte("old"), 0644))

	url, err := bucket.Upload(context.Background(), mp3Data, "audio/mpeg", UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/audio/free.mp3", url)

	old, err := os.ReadFile(filepath.Join(bucket.Dir(), "taken.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestUploadNamedObject(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	_, err := bucket.Upload(ctx, mp3Data, "audio/mpeg", UploadOptions{Name: "fixed.mp3"})
	require.NoError(t, err)

	_, err = bucket.Upload(ctx, []byte("second version"), "audio/mpeg", UploadOptions{Name: "fixed.mp3"})
	assert.True(t, apperr.As[*apperr.StorageError](err), "expected StorageError, got %v", err)
	assert.ErrorIs(t, err, ErrObjectExists)

	_, err = bucket.Upload(ctx, []byte("second version"), "audio/mpeg", UploadOptions{Name: "fixed.mp3", Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, int64(len("second version")), bucket.Size(bucket.PublicURL("fixed.mp3")))

	_, err = bucket.Upload(ctx, mp3Data, "audio/mpeg", UploadOptions{Name: "../escape.mp3"})
	assert.True(t, apperr.As[*apperr.StorageError](err))
}

func TestUploadRejectsEmptyData(t *testing.T) {
	_, err := newTestBucket(t).Upload(context.Background(), nil, "audio/mpeg", UploadOptions{})
	assert.True(t, apperr.As[*apperr.StorageError](err))
}

func TestRemove(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	first, err := bucket.Upload(ctx, mp3Data, "audio/mpeg", UploadOptions{})
	require.NoError(t, err)
	second, err := bucket.Upload(ctx, mp3Data, "audio/mpeg", UploadOptions{})
	require.NoError(t, err)

	require.NoError(t, bucket.RemoveURLs(ctx, []string{first, "http://localhost:8080/storage/audio/missing.mp3"}))

	assert.Equal(t, int64(0), bucket.Size(first))
	assert.NotZero(t, bucket.Size(second))

	err = bucket.Remove(ctx, []string{"../outside"})
	assert.True(t, apperr.As[*apperr.StorageError](err))
}

func TestObjectName(t *testing.T) {
	bucket := newTestBucket(t)

	tests := []struct {
		input    string
		expected string
	}{
		{"http://localhost:8080/storage/audio/abc.mp3", "abc.mp3"},
		{"https://cdn.example.com/storage/audio/abc.mp3?x=1", "abc.mp3"},
		{"abc.mp3", "abc.mp3"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, bucket.ObjectName(tt.input), tt.input)
	}
}
