package powerdag

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-powerdag/pkg/segments"
)

var ErrMalformedCacheEntry = errors.New("malformed cache entry")

// Default label and origin of the entries written for aggregation jobs.
const (
	CacheLabelAny     = "ANY"
	CacheOriginEmpty  = "EMPTY"
	cacheEntryColumns = 5
)

// CacheEntry is one line of a cache manifest.
type CacheEntry struct {
	Label   string
	Origin  string
	Segment segments.Segment
	Path    string
}

func (e CacheEntry) String() string {
	return fmt.Sprintf("%s %s %s %s %s",
		e.Label, e.Origin,
		segments.FormatTime(e.Segment.Start), segments.FormatTime(e.Segment.Duration()),
		e.Path)
}

// ParseCacheEntry parses a "label origin start duration path" line.
func ParseCacheEntry(line string) (CacheEntry, error) {
	fields := strings.Fields(line)
	if len(fields) != cacheEntryColumns {
		return CacheEntry{}, errors.Wrapf(ErrMalformedCacheEntry, "expected %d columns in %q", cacheEntryColumns, line)
	}

	start, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return CacheEntry{}, errors.Wrapf(ErrMalformedCacheEntry, "start %q", fields[2])
	}
	duration, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return CacheEntry{}, errors.Wrapf(ErrMalformedCacheEntry, "duration %q", fields[3])
	}

	return CacheEntry{
		Label:   fields[0],
		Origin:  fields[1],
		Segment: segments.New(start, start+duration),
		Path:    fields[4],
	}, nil
}

// Cache is an ordered list of entries. Entries are never sorted: the first
// entry is the provenance reference of some consumers.
type Cache struct {
	Entries []CacheEntry
}

// Add appends an entry.
func (c *Cache) Add(label, origin string, seg segments.Segment, path string) {
	c.Entries = append(c.Entries, CacheEntry{
		Label:   label,
		Origin:  origin,
		Segment: seg,
		Path:    path,
	})
}

// Paths returns the path of every entry in order.
func (c *Cache) Paths() []string {
	res := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		res[i] = e.Path
	}

	return res
}

// WriteTo writes the manifest, one entry per line.
func (c *Cache) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range c.Entries {
		n, err := fmt.Fprintln(w, e.String())
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "unable to write cache entry")
		}
	}

	return total, nil
}

// WriteFile writes the manifest to path and syncs it to disk before
// returning, so that a node referencing it never points at a partial file.
func (c *Cache) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "unable to create cache directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create cache %s", path)
	}

	bw := bufio.NewWriter(f)
	if _, err = c.WriteTo(bw); err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "unable to write cache %s", path)
	}

	return nil
}

// ReadCache parses a manifest.
func ReadCache(r io.Reader) (*Cache, error) {
	cache := &Cache{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseCacheEntry(line)
		if err != nil {
			return nil, err
		}
		cache.Entries = append(cache.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read cache")
	}

	return cache, nil
}
