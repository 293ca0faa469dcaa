package target

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// StdinFetcher implements Fetcher by reading a mirror per line from an
// input stream, grounded on original_source/src/targets/stdin.rs's
// read_mirrors / line_to_mirror_info: each line is one or two
// tab-separated fields — a mirror URL, and optionally a two-letter
// country code in either field order. This is the escape hatch spec §4.G
// alludes to with "stdin" as a fetcher source that needs no upstream API.
type StdinFetcher struct {
	PathToTest string
	reader     io.Reader
}

// NewStdinFetcher returns a StdinFetcher reading from r; a nil r defaults
// to os.Stdin.
func NewStdinFetcher(r io.Reader) *StdinFetcher {
	if r == nil {
		r = os.Stdin
	}
	return &StdinFetcher{reader: r}
}

// FetchMirrors implements Fetcher.
func (f *StdinFetcher) FetchMirrors(ctx context.Context, progress chan<- string) ([]speedtest.Mirror, error) {
	scanner := bufio.NewScanner(f.reader)
	var mirrors []speedtest.Mirror
	for scanner.Scan() {
		line := scanner.Text()
		m, ok := parseStdinLine(line, f.PathToTest)
		if !ok {
			emitTarget(progress, fmt.Sprintf("stdin: skipping bad input line: %q", line))
			continue
		}
		mirrors = append(mirrors, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("target: stdin: reading input: %w", err)
	}

	emitTarget(progress, fmt.Sprintf("READ %d MIRRORS FROM STDIN", len(mirrors)))
	if len(mirrors) == 0 {
		return nil, speedtest.ErrNoMirrorsAfterFiltering
	}
	return mirrors, nil
}

// parseStdinLine parses one tab-separated "url[\tcountry]" or
// "country\turl" line into a Mirror, trying both field orders since the
// original format does not fix which column holds the URL.
func parseStdinLine(line, pathToTest string) (speedtest.Mirror, bool) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	switch len(fields) {
	case 1:
		u, err := url.Parse(fields[0])
		if err != nil || u.Scheme == "" {
			return speedtest.Mirror{}, false
		}
		return buildStdinMirror(fields[0], "", pathToTest), true
	case 2:
		if u, err := url.Parse(fields[0]); err == nil && u.Scheme != "" {
			return buildStdinMirror(fields[0], fields[1], pathToTest), true
		}
		if u, err := url.Parse(fields[1]); err == nil && u.Scheme != "" {
			return buildStdinMirror(fields[1], fields[0], pathToTest), true
		}
		return speedtest.Mirror{}, false
	default:
		return speedtest.Mirror{}, false
	}
}

func buildStdinMirror(rawURL, country, pathToTest string) speedtest.Mirror {
	base := strings.TrimSuffix(rawURL, "/")
	return speedtest.Mirror{
		URL:       base,
		URLToTest: base + pathToTest,
		Country:   strings.ToUpper(country),
	}
}
