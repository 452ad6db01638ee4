package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GitCommit)
	assert.NotEmpty(t, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestWithBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/jingkaihe/librarian", Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "9b1e0c4"},
			{Key: "vcs.time", Value: "2026-10-02T11:20:05Z"},
			{Key: "GOOS", Value: "linux"},
		},
	}

	tests := []struct {
		name     string
		info     Info
		bi       *debug.BuildInfo
		expected Info
	}{
		{
			name:     "defaults are filled",
			info:     Info{Version: "dev", GitCommit: "unknown", BuildTime: "unknown"},
			bi:       bi,
			expected: Info{Version: "v0.4.0", GitCommit: "9b1e0c4", BuildTime: "2026-10-02T11:20:05Z"},
		},
		{
			name:     "ldflags values win",
			info:     Info{Version: "0.3.1", GitCommit: "7f3c2e1", BuildTime: "2026-09-01T00:00:00Z"},
			bi:       bi,
			expected: Info{Version: "0.3.1", GitCommit: "7f3c2e1", BuildTime: "2026-09-01T00:00:00Z"},
		},
		{
			name:     "devel builds keep dev",
			info:     Info{Version: "dev", GitCommit: "unknown", BuildTime: "unknown"},
			bi:       &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			expected: Info{Version: "dev", GitCommit: "unknown", BuildTime: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.withBuildInfo(tt.bi))
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "0.3.1",
		GitCommit: "7f3c2e1",
		BuildTime: "2026-10-02T11:20:05Z",
		GoVersion: "go1.25.1",
	}
	assert.Equal(t, "librarian 0.3.1 (commit 7f3c2e1, built 2026-10-02T11:20:05Z, go1.25.1)", info.String())
}
