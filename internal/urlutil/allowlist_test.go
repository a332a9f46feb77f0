package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowListPrefixes(t *testing.T) {
	t.Parallel()

	al, err := NewAllowList([]string{"https://a.test/docs/", "https://b.test"})
	require.NoError(t, err)

	require.True(t, al.Match("https://a.test/docs"))
	require.True(t, al.Match("https://a.test/docs/intro"))
	require.True(t, al.Match("https://b.test/anything"))
	require.False(t, al.Match("https://a.test/blog"))
	require.False(t, al.Match("https://c.test/docs/intro"))
}

func TestAllowListGlobs(t *testing.T) {
	t.Parallel()

	al, err := NewAllowList([]string{"https://*.example.com/docs/*"})
	require.NoError(t, err)

	require.True(t, al.Match("https://api.example.com/docs/v1"))
	require.False(t, al.Match("https://api.example.com/blog/v1"))
}

func TestAllowListRejectsEmptyAndBadPatterns(t *testing.T) {
	t.Parallel()

	_, err := NewAllowList(nil)
	require.Error(t, err)

	_, err = NewAllowList([]string{"  "})
	require.Error(t, err)

	_, err = NewAllowList([]string{"https://a.test/[bad"})
	require.Error(t, err)
}

func TestAllowListZeroValueMatchesNothing(t *testing.T) {
	t.Parallel()

	var al *AllowList
	require.False(t, al.Match("https://a.test"))
}
