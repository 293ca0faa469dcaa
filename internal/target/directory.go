package target

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mirrorjump/mirrorjump/internal/safety"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// hrefRegex extracts href values from HTML anchor tags, the same
// lightweight pattern the teacher used for OCP's directory listings rather
// than a full HTML parser — directory indexes are a fixed, simple shape
// that a regex handles without pulling in a DOM library.
var hrefRegex = regexp.MustCompile(`href="([^"]+)"`)

// DirectoryFetcher implements Fetcher for a flat file of mirror base URLs
// served as an Apache/nginx "Index of /" directory listing, one line per
// <a href> pointing at a mirror hostname. Country is left empty for every
// mirror this fetcher returns — a plain directory listing carries no
// geography, so every mirror lands in the engine's unlabeled pool and is
// only reached by the fallback stage (§4.E).
type DirectoryFetcher struct {
	client     *http.Client
	listingURL string
	testPath   string
}

// NewDirectoryFetcher returns a DirectoryFetcher over a directory listing
// at listingURL; testPath is appended to each discovered mirror base URL
// to build URLToTest (e.g. "/repodata/repomd.xml" or a known-large file
// name served by every mirror in the listing).
func NewDirectoryFetcher(listingURL, testPath string) *DirectoryFetcher {
	return &DirectoryFetcher{client: safety.NewHTTPClient(0), listingURL: listingURL, testPath: testPath}
}

// FetchMirrors implements Fetcher.
func (f *DirectoryFetcher) FetchMirrors(ctx context.Context, progress chan<- string) ([]speedtest.Mirror, error) {
	emitTarget(progress, "directory: fetching "+f.listingURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("target: directory: building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("target: directory: %w", speedtest.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("target: directory: unexpected status %d: %w", resp.StatusCode, speedtest.ErrFetch)
	}

	body, err := safety.ReadAllWithLimit(resp.Body, 16<<20)
	if err != nil {
		return nil, fmt.Errorf("target: directory: reading response: %w", err)
	}

	base, err := url.Parse(f.listingURL)
	if err != nil {
		return nil, fmt.Errorf("target: directory: parsing listing URL: %w", err)
	}

	mirrors := parseDirectoryListing(body, base, f.testPath)
	if len(mirrors) == 0 {
		return nil, speedtest.ErrNoMirrorsAfterFiltering
	}
	return mirrors, nil
}

// extractHrefs pulls directory-entry hrefs out of an HTML index page,
// skipping the parent-directory link and any non-directory anchor (one
// not ending in "/").
func extractHrefs(data []byte) []string {
	matches := hrefRegex.FindAllSubmatch(data, -1)
	var result []string
	for _, m := range matches {
		href := string(m[1])
		if href == "../" || href == "/" {
			continue
		}
		if !strings.HasSuffix(href, "/") {
			continue
		}
		result = append(result, strings.TrimSuffix(href, "/"))
	}
	return result
}

// parseDirectoryListing resolves each directory entry against base and
// builds a country-less Mirror for it.
func parseDirectoryListing(data []byte, base *url.URL, testPath string) []speedtest.Mirror {
	var mirrors []speedtest.Mirror
	for _, href := range extractHrefs(data) {
		ref, err := url.Parse(href + "/")
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		mirrorURL := strings.TrimSuffix(resolved.String(), "/")
		mirrors = append(mirrors, speedtest.Mirror{
			URL:       mirrorURL,
			URLToTest: mirrorURL + testPath,
		})
	}
	return mirrors
}
