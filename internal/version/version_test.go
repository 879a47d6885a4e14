package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	prevV, prevSHA, prevTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = prevV, prevSHA, prevTime })

	assert.Equal(t, "skygrid dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "v0.3.0", "abc1234", "2024-05-01T12:00:00Z"
	assert.Equal(t, "skygrid v0.3.0 (abc1234, built 2024-05-01T12:00:00Z)", String())
}
