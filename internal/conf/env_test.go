package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"true", "true", false},
		{"zero", "0", false},
		{"with spaces", " false ", false},
		{"yes", "yes", true},
		{"empty", "", true},
		{"decimal", "1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvBool(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid boolean value")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvBatchSize(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBatchSize("500"))
	assert.NoError(t, validateEnvBatchSize(" 1 "))
	assert.Error(t, validateEnvBatchSize("0"))
	assert.Error(t, validateEnvBatchSize("10001"))
	assert.Error(t, validateEnvBatchSize("many"))
}

func TestValidateEnvValues(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvUUID("3f2b7c1e-8a8d-4c3e-9a57-7b2d1f0c9e11"))
	assert.Error(t, validateEnvUUID("driver-1"))

	assert.NoError(t, validateEnvURL("https://api.example.com"))
	assert.Error(t, validateEnvURL("ftp://api.example.com"))
	assert.Error(t, validateEnvURL("http://"))

	assert.NoError(t, validateEnvDatastoreType("mysql"))
	assert.Error(t, validateEnvDatastoreType("postgres"))

	assert.NoError(t, validateEnvPort("3306"))
	assert.Error(t, validateEnvPort("70000"))
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	resetViper(t)
	t.Setenv("DRIVESYNC_SYNC_BATCHSIZE", "-4")
	t.Setenv("DRIVESYNC_API_TOKEN", "secret-token")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DRIVESYNC_SYNC_BATCHSIZE")
	assert.NotContains(t, err.Error(), "secret-token")
}
