package target

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/mirrorjump/mirrorjump/internal/safety"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// repomdSuffix is stripped from a metalink resource URL to obtain the
// mirror's base repository URL; it is re-appended to build URLToTest, so
// the probe measures exactly the file the metalink described.
const repomdSuffix = "/repodata/repomd.xml"

// DefaultEPELMetalinkURL builds the Fedora metalink endpoint for one EPEL
// major version and architecture, matching the URL the teacher's
// mirror.Discovery.EPELMirrors built from metalinkBaseURL.
func DefaultEPELMetalinkURL(version int, arch string) string {
	return fmt.Sprintf("https://mirrors.fedoraproject.org/metalink?repo=epel-%d&arch=%s", version, arch)
}

// metalinkXML structs model the Metalink 3.0 XML format (RFC 5854), the
// format Fedora/EPEL publishes its mirror lists in.
type metalinkXML struct {
	XMLName xml.Name         `xml:"metalink"`
	Files   metalinkFilesXML `xml:"files"`
}

type metalinkFilesXML struct {
	File []metalinkFileXML `xml:"file"`
}

type metalinkFileXML struct {
	Name      string               `xml:"name,attr"`
	Resources metalinkResourcesXML `xml:"resources"`
}

type metalinkResourcesXML struct {
	URLs []metalinkURLXML `xml:"url"`
}

type metalinkURLXML struct {
	Protocol   string `xml:"protocol,attr"`
	Type       string `xml:"type,attr"`
	Location   string `xml:"location,attr"`
	Preference int    `xml:"preference,attr"`
	URL        string `xml:",chardata"`
}

// MetalinkFetcher implements Fetcher against a Metalink 3.0 XML mirror
// list. It is the fetcher registered for the "epel" target but works for
// any metalink-publishing repository.
type MetalinkFetcher struct {
	client *http.Client
	url    string
}

// NewMetalinkFetcher returns a MetalinkFetcher for the given metalink
// document URL.
func NewMetalinkFetcher(metalinkURL string) *MetalinkFetcher {
	return &MetalinkFetcher{client: safety.NewHTTPClient(0), url: metalinkURL}
}

// FetchMirrors implements Fetcher.
func (f *MetalinkFetcher) FetchMirrors(ctx context.Context, progress chan<- string) ([]speedtest.Mirror, error) {
	emitTarget(progress, "metalink: fetching "+f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("target: metalink: building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("target: metalink: %w", speedtest.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("target: metalink: unexpected status %d: %w", resp.StatusCode, speedtest.ErrFetch)
	}

	body, err := safety.ReadAllWithLimit(resp.Body, 16<<20)
	if err != nil {
		return nil, fmt.Errorf("target: metalink: reading response: %w", err)
	}

	mirrors, err := parseMetalink(body)
	if err != nil {
		return nil, fmt.Errorf("target: metalink: parsing response: %w", err)
	}
	if len(mirrors) == 0 {
		return nil, speedtest.ErrNoMirrorsAfterFiltering
	}
	return mirrors, nil
}

// parseMetalink parses a Metalink 3.0 XML document into Mirrors, sorted by
// the document's own preference attribute (descending) so that a caller
// taking firstN mirrors per country, as the jump scheduler does, keeps the
// metalink publisher's preferred mirror for each country.
func parseMetalink(data []byte) ([]speedtest.Mirror, error) {
	var ml metalinkXML
	if err := xml.Unmarshal(data, &ml); err != nil {
		return nil, err
	}

	type scored struct {
		mirror     speedtest.Mirror
		preference int
	}
	var scoredMirrors []scored
	for _, file := range ml.Files.File {
		for _, u := range file.Resources.URLs {
			if u.Protocol != "http" && u.Protocol != "https" {
				continue
			}
			base := strings.TrimSpace(u.URL)
			base = strings.TrimSuffix(base, repomdSuffix)
			scoredMirrors = append(scoredMirrors, scored{
				mirror: speedtest.Mirror{
					URL:       base,
					URLToTest: base + repomdSuffix,
					Country:   strings.ToUpper(u.Location),
				},
				preference: u.Preference,
			})
		}
	}

	sort.SliceStable(scoredMirrors, func(i, j int) bool {
		return scoredMirrors[i].preference > scoredMirrors[j].preference
	})

	mirrors := make([]speedtest.Mirror, len(scoredMirrors))
	for i, s := range scoredMirrors {
		mirrors[i] = s.mirror
	}
	return mirrors, nil
}
