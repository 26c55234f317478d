package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()

	assert.True(t, c.PipelineEnabled)
	assert.Equal(t, "csv", c.Source)
	assert.Equal(t, 0.25, c.TestSize)
	assert.Equal(t, 0.6, c.ExpectedScore)
	assert.Equal(t, 0.0, c.ChangedThreshold)
	assert.Equal(t, "model.gob", c.ModelKey)
	assert.Equal(t, "file", c.ModelStore)
	assert.Equal(t, 10*time.Second, c.StoreTimeout)
	assert.Empty(t, c.KafkaBrokers)
	require.NoError(t, c.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PIPELINE_ENABLED", "false")
	t.Setenv("DATA_SOURCE", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/churn?sslmode=disable")
	t.Setenv("MODEL_STORE", "s3")
	t.Setenv("MODEL_BUCKET", "models")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MODEL_CHANGED_THRESHOLD", "0.02")
	t.Setenv("TEST_SIZE", "not-a-number")

	c := Load()

	assert.False(t, c.PipelineEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
	assert.Equal(t, 0.02, c.ChangedThreshold)
	assert.Equal(t, 0.25, c.TestSize, "unparsable values fall back to the default")
	require.NoError(t, c.Validate())
}

func TestValidateCollectsErrors(t *testing.T) {
	c := Load()
	c.TestSize = 1
	c.Source = "mongo"
	c.ModelStore = "s3"
	c.Bucket = ""

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_SIZE")
	assert.Contains(t, err.Error(), "DATA_SOURCE")
	assert.Contains(t, err.Error(), "MODEL_BUCKET")
}
