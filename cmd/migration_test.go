package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalSteps(t *testing.T) {
	n, err := optionalSteps(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = optionalSteps([]string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, bad := range []string{"0", "-1", "two"} {
		_, err = optionalSteps([]string{bad})
		assert.Error(t, err, bad)
	}
}
