package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficportal/internal/config"
)

func TestNewObjectStore_Endpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		host     string
		scheme   string
	}{
		{endpoint: "http://minio:9000", host: "minio:9000", scheme: "http"},
		{endpoint: "https://s3.example.com", host: "s3.example.com", scheme: "https"},
		{endpoint: "minio:9000", useSSL: true, host: "minio:9000", scheme: "https"},
		{endpoint: "minio:9000", host: "minio:9000", scheme: "http"},
	}

	for _, tt := range tests {
		store, err := NewObjectStore(config.StorageConfig{
			Endpoint:        tt.endpoint,
			UseSSL:          tt.useSSL,
			AccessKey:       "portal",
			SecretKey:       "portal-secret",
			Region:          "us-east-1",
			BucketSnapshots: "portal-snapshots",
		})
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.host, store.client.EndpointURL().Host, tt.endpoint)
		assert.Equal(t, tt.scheme, store.client.EndpointURL().Scheme, tt.endpoint)
	}
}
