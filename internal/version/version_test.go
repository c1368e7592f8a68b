package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{"2.9.1", "2.0.0", true},
		{"2.0.0", "2.0.0", true},
		{"1.28", "2.0.0", false},
		{"v3.0.0", "2.9.9", true},
		{"garbage", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.version+">="+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVersionGreaterOrEqualThan(tt.version, tt.target))
		})
	}
}

func TestIsVersionGreaterThan(t *testing.T) {
	assert.True(t, IsVersionGreaterThan("0.3.1", "0.3.0"))
	assert.False(t, IsVersionGreaterThan("0.3.0", "0.3.0"))
}

func TestGetMinorVersion(t *testing.T) {
	assert.Equal(t, "2.9", GetMinorVersion("2.9.1"))
	assert.Equal(t, "", GetMinorVersion("not-a-version"))
}

func TestGetCurrentVersion(t *testing.T) {
	assert.Equal(t, DevVersion, GetCurrentVersion("dev"))
	assert.Equal(t, Version, GetCurrentVersion("prod"))
	assert.Contains(t, String("prod"), Version)
}
