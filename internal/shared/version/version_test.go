package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "v1.2.3", Normalize("1.2.3"))
	assert.Equal(t, "v1.2.3", Normalize(" v1.2.3 "))
	assert.Equal(t, "dev", Normalize("dev"))
	assert.Equal(t, "", Normalize(""))
}

func TestIsRelease(t *testing.T) {
	assert.True(t, IsRelease("1.4.0"))
	assert.False(t, IsRelease("v1.4.0-rc.1"))
	assert.False(t, IsRelease("dev"))
	assert.False(t, IsRelease("not-a-version"))
}
