package textutil_test

import (
	"testing"

	"chanceme-backend/lib/textutil"

	"github.com/stretchr/testify/require"
)

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "a b c", textutil.CollapseWhitespace("  a \n b\t\tc "))
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "harvard university", textutil.NormalizeName("  Harvard\n University "))
}

func TestMatchName(t *testing.T) {
	matchers := []string{"chance me", "results"}
	require.True(t, textutil.MatchName("My RESULTS thread", matchers))
	require.False(t, textutil.MatchName("essay advice", matchers))
}
