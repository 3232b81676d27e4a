package htmlutil_test

import (
	"testing"

	"chanceme-backend/lib/htmlutil"

	"github.com/stretchr/testify/require"
)

func TestFlattenPlainTextPassesThrough(t *testing.T) {
	require.Equal(t, "accepted to mit", htmlutil.Flatten("accepted to mit"))
}

func TestFlattenStripsMarkup(t *testing.T) {
	out := htmlutil.Flatten(`<div><p>accepted to <b>mit</b>!</p><p>gpa 3.9</p></div>`)
	require.Contains(t, out, "accepted to mit!")
	require.Contains(t, out, "gpa 3.9")
	require.NotContains(t, out, "<")
}

func TestFlattenKeepsUnparseableInput(t *testing.T) {
	broken := "a < b and that is all"
	require.Equal(t, broken, htmlutil.Flatten(broken))
}
