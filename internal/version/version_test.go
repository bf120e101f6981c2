package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolved_PrefersLdflags(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	Version = "v1.2.3"
	assert.Equal(t, "v1.2.3", Resolved())
	assert.Contains(t, String(), "fwbuilder v1.2.3")
}

func TestBuildInfo(t *testing.T) {
	assert.NotEmpty(t, BuildTime)
	assert.NotEmpty(t, GitCommit)
	assert.NotEmpty(t, Resolved())
}
