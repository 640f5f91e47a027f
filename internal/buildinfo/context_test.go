package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Accessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			version:   UnknownValue,
			commit:    UnknownValue,
			buildDate: UnknownValue,
		},
		{
			name:      "empty values",
			ctx:       NewContext("", "", ""),
			version:   UnknownValue,
			commit:    UnknownValue,
			buildDate: UnknownValue,
		},
		{
			name:      "release build",
			ctx:       NewContext("v1.4.0", "3f2a9c1", "2026-09-30T12:00:00Z"),
			version:   "v1.4.0",
			commit:    "3f2a9c1",
			buildDate: "2026-09-30T12:00:00Z",
		},
		{
			name:      "pre-release without date",
			ctx:       NewContext("v1.5.0-rc.1", "a1b2c3d", ""),
			version:   "v1.5.0-rc.1",
			commit:    "a1b2c3d",
			buildDate: UnknownValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.Version())
			assert.Equal(t, tt.commit, tt.ctx.Commit())
			assert.Equal(t, tt.buildDate, tt.ctx.BuildDate())
		})
	}
}

func TestContext_String(t *testing.T) {
	t.Parallel()

	ctx := NewContext("v1.4.0", "3f2a9c1", "")
	assert.Equal(t, "drivesync v1.4.0 (commit 3f2a9c1, built unknown)", ctx.String())
}
