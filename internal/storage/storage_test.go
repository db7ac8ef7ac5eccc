package storage

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3StoreRequiresEndpoint(t *testing.T) {
	_, err := NewS3Store(&config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPublicURLDefaults(t *testing.T) {
	store, err := NewS3Store(&config.Config{S3Endpoint: "minio:9000", S3Bucket: "ads"})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/ads", store.PublicURL())

	store, err = NewS3Store(&config.Config{S3Endpoint: "s3.example.com", S3Bucket: "ads", S3UseSSL: true, S3PublicURL: "https://cdn.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", store.PublicURL())
}

func TestObjectURLRoundTrip(t *testing.T) {
	url := ObjectURL("https://cdn.example.com/", "/ads/1/a.jpg")
	assert.Equal(t, "https://cdn.example.com/ads/1/a.jpg", url)
	assert.Equal(t, "ads/1/a.jpg", KeyFromURL("https://cdn.example.com", url))
	assert.Empty(t, KeyFromURL("https://cdn.example.com", "https://elsewhere.com/x.jpg"))
}
