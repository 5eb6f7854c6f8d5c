package awsutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CustomEndpoint(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_URL", "http://localstack:4566")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, endpoint, err := Load(context.Background(), "eu-south-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localstack:4566", endpoint)
	assert.Equal(t, "eu-south-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localstack:4566", *cfg.BaseEndpoint)
}

func TestLoad_DefaultEndpoint(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_URL", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, endpoint, err := Load(context.Background(), "us-east-1")
	require.NoError(t, err)
	assert.Empty(t, endpoint)
	assert.Equal(t, "us-east-1", cfg.Region)
}
