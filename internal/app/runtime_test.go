package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-pos/testing"
)

func TestInTestMode(t *testing.T) {
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}
