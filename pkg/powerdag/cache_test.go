package powerdag_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-powerdag/pkg/powerdag"
	"github.com/askiada/go-powerdag/pkg/segments"
)

func TestCacheEntryString(t *testing.T) {
	t.Parallel()

	e := powerdag.CacheEntry{
		Label:   powerdag.CacheLabelAny,
		Origin:  powerdag.CacheOriginEmpty,
		Segment: segments.New(873247860, 873248004.5),
		Path:    "H1-POWER_tag-873247860-144.xml",
	}
	assert.Equal(t, "ANY EMPTY 873247860 144.5 H1-POWER_tag-873247860-144.xml", e.String())

	parsed, err := powerdag.ParseCacheEntry(e.String())
	require.NoError(t, err)
	assert.Equal(t, e, parsed)
}

func TestParseCacheEntryMalformed(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		"ANY EMPTY 0 10",
		"ANY EMPTY zero 10 file.xml",
		"ANY EMPTY 0 ten file.xml",
	} {
		_, err := powerdag.ParseCacheEntry(line)
		assert.True(t, errors.Is(err, powerdag.ErrMalformedCacheEntry), line)
	}
}

func TestCacheWriteKeepsOrder(t *testing.T) {
	t.Parallel()

	seg := segments.New(0, 140)
	cache := &powerdag.Cache{}
	for _, path := range []string{"c.xml", "a.xml", "b.xml"} {
		cache.Add(powerdag.CacheLabelAny, powerdag.CacheOriginEmpty, seg, path)
	}

	var buf bytes.Buffer
	n, err := cache.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "ANY EMPTY 0 140 c.xml\nANY EMPTY 0 140 a.xml\nANY EMPTY 0 140 b.xml\n", buf.String())

	path := filepath.Join(t.TempDir(), "nested", "lladd.cache")
	require.NoError(t, cache.WriteFile(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	read, err := powerdag.ReadCache(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.xml", "a.xml", "b.xml"}, read.Paths())
}

func TestReadCacheSkipsBlankLines(t *testing.T) {
	t.Parallel()

	read, err := powerdag.ReadCache(strings.NewReader("\nANY EMPTY 0 10 a.xml\n\n"))
	require.NoError(t, err)
	require.Len(t, read.Entries, 1)
	assert.Equal(t, segments.New(0, 10), read.Entries[0].Segment)

	_, err = powerdag.ReadCache(strings.NewReader("ANY EMPTY 0 10\n"))
	assert.True(t, errors.Is(err, powerdag.ErrMalformedCacheEntry))
}
