// Package freshness implements the optional post-speed-test comparator
// spec §9's second open question calls out: after ranking finishes, score
// the surviving mirrors' package-index database against a local reference
// copy so a caller can tell a fast-but-stale mirror from a fast-and-current
// one. It never feeds back into the core engine's ranking (grounded on
// original_source/src/freshness.rs, which runs purely as a separate pass
// over already-selected mirrors).
package freshness

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/mirrorjump/mirrorjump/internal/safety"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// maxDecompressedDBSize bounds a package database after decompression,
// the same defensive cap epel.go's decompress applies to primary.xml.
const maxDecompressedDBSize = 256 << 20

// Result is the outcome of comparing one mirror's package database
// against the reference database, mirroring original_source's
// FreshnessCheckResult.
type Result struct {
	Mirror            speedtest.Mirror
	Score             float64
	PackagesCompared  int
	Err               error
}

// PackageBuildDates maps a package name to its %BUILDDATE% unix timestamp,
// mirroring original_source's PackageBuildDates.
type PackageBuildDates map[string]int64

// LoadReferenceDB reads and decompresses the local reference package
// database at dir/dbFilename, grounded on the teacher's epel.go pattern of
// joining a caller-supplied relative filename under a trusted root with
// safety.SafeJoinUnder before touching the filesystem.
func LoadReferenceDB(dir, dbFilename string) (PackageBuildDates, error) {
	path, err := safety.SafeJoinUnder(dir, dbFilename)
	if err != nil {
		return nil, fmt.Errorf("freshness: resolving reference db path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("freshness: reading reference db %s: %w", path, err)
	}
	return parseDBBytes(data)
}

// CheckMirror downloads mirror.BasePath+".db" over client, compares it
// against reference, and returns a freshness Result. It never returns an
// error from the function itself — failures are recorded on Result.Err,
// matching original_source's check_mirror, which always produces a
// FreshnessCheckResult even on failure so a batch of comparisons can run
// to completion without aborting.
func CheckMirror(ctx context.Context, client *http.Client, mirror speedtest.Mirror, reference PackageBuildDates) Result {
	if mirror.BasePath == "" {
		return Result{Mirror: mirror, Err: fmt.Errorf("freshness: mirror has no BasePath set")}
	}

	dbURL := strings.TrimSuffix(mirror.URL, "/") + "/" + strings.TrimPrefix(mirror.BasePath, "/") + ".db"
	data, err := fetch(ctx, client, dbURL)
	if err != nil {
		return Result{Mirror: mirror, Err: fmt.Errorf("freshness: downloading %s: %w", dbURL, err)}
	}

	pkgs, err := parseDBBytes(data)
	if err != nil {
		return Result{Mirror: mirror, Err: fmt.Errorf("freshness: parsing db: %w", err)}
	}

	score, compared := CalculateFreshnessScore(pkgs, reference)
	return Result{Mirror: mirror, Score: score, PackagesCompared: compared}
}

// fetch downloads url and returns its body, grounded on
// internal/mirror/discovery.go's fetch: URL validation, a context-scoped
// request, and a bounded read.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if _, err := safety.ValidateHTTPURL(url); err != nil {
		return nil, fmt.Errorf("invalid fetch URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "mirrorjump/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	return safety.ReadAllWithLimit(resp.Body, maxDecompressedDBSize)
}

// CalculateFreshnessScore scores mirror against reference: for every
// package present in both, +2 if the mirror's build date is newer, +1 if
// equal, +0 if older. The total is divided by the number of packages
// compared, matching original_source's calculate_freshness_score exactly.
func CalculateFreshnessScore(mirror, reference PackageBuildDates) (score float64, compared int) {
	for pkg, refTS := range reference {
		mirrorTS, ok := mirror[pkg]
		if !ok {
			continue
		}
		compared++
		switch {
		case mirrorTS > refTS:
			score += 2.0
		case mirrorTS == refTS:
			score += 1.0
		}
	}
	if compared == 0 {
		return 0, 0
	}
	return score / float64(compared), compared
}

// parseDBBytes tries zstd, then xz, then gzip, then a raw uncompressed
// tarball, the same order-of-attempts epel.go's decompress uses by magic
// number before falling through to "assume already decompressed".
func parseDBBytes(data []byte) (PackageBuildDates, error) {
	if decoder, err := zstd.NewReader(bytes.NewReader(data)); err == nil {
		defer decoder.Close()
		if buf, err := safety.ReadAllWithLimit(decoder, maxDecompressedDBSize); err == nil {
			if pkgs, err := parseTar(buf); err == nil {
				return pkgs, nil
			}
		}
	}

	if reader, err := xz.NewReader(bytes.NewReader(data)); err == nil {
		if buf, err := safety.ReadAllWithLimit(reader, maxDecompressedDBSize); err == nil {
			if pkgs, err := parseTar(buf); err == nil {
				return pkgs, nil
			}
		}
	}

	if reader, err := gzip.NewReader(bytes.NewReader(data)); err == nil {
		defer reader.Close()
		if buf, err := safety.ReadAllWithLimit(reader, maxDecompressedDBSize); err == nil {
			if pkgs, err := parseTar(buf); err == nil {
				return pkgs, nil
			}
		}
	}

	return parseTar(data)
}

// parseTar walks a tar archive looking for "*/desc" entries (one per
// package, Arch Linux repo-database layout), extracting each package's
// %BUILDDATE% marker.
func parseTar(data []byte) (PackageBuildDates, error) {
	pkgs := make(PackageBuildDates)
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}
		name := hdr.Name
		if !strings.HasSuffix(name, "/desc") && name != "desc" {
			continue
		}
		contents, err := safety.ReadAllWithLimit(tr, 1<<20)
		if err != nil {
			continue
		}
		ts, ok := extractBuildDate(contents)
		if !ok {
			continue
		}
		pkgName := packageNameFromDescPath(name)
		pkgs[pkgName] = ts
	}
	return pkgs, nil
}

// extractBuildDate finds the line following a bare "%BUILDDATE%" marker
// and parses it as a unix timestamp.
func extractBuildDate(desc []byte) (int64, bool) {
	lines := strings.Split(string(desc), "\n")
	for i := 0; i < len(lines)-1; i++ {
		if strings.TrimSpace(lines[i]) == "%BUILDDATE%" {
			ts, err := strconv.ParseInt(strings.TrimSpace(lines[i+1]), 10, 64)
			if err != nil {
				return 0, false
			}
			return ts, true
		}
	}
	return 0, false
}

// packageNameFromDescPath pulls the package name out of a "pkgname/desc"
// tar entry path.
func packageNameFromDescPath(name string) string {
	trimmed := strings.TrimSuffix(name, "/desc")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 {
		return "unknown"
	}
	return parts[len(parts)-1]
}
