package target

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/mirrorjump/mirrorjump/internal/safety"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// debianMirrorListURL is the canonical Debian mirror list page: one <h3>
// per country, followed by a <tt><a href> site block per mirror and a
// "Packages over HTTP(S):" text node pointing at the package tree URL.
const debianMirrorListURL = "https://www.debian.org/mirror/list-full"

// DebianFetcher implements Fetcher by walking the Debian mirror list HTML
// page with an XPath query, grounded on the sibling-node traversal in
// other_examples' krlanguet/debian-mirror-selector (itself walking the
// same #content country/site/"Packages over" block shape the original
// Rust targets/debian.rs scrapes with the `select` crate).
type DebianFetcher struct {
	client *http.Client
	url    string
}

// NewDebianFetcher returns a DebianFetcher over the canonical mirror list
// page.
func NewDebianFetcher() *DebianFetcher {
	return &DebianFetcher{client: safety.NewHTTPClient(0), url: debianMirrorListURL}
}

// FetchMirrors implements Fetcher.
func (f *DebianFetcher) FetchMirrors(ctx context.Context, progress chan<- string) ([]speedtest.Mirror, error) {
	emitTarget(progress, "debian: fetching "+f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("target: debian: building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("target: debian: %w", speedtest.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("target: debian: unexpected status %d: %w", resp.StatusCode, speedtest.ErrFetch)
	}

	doc, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("target: debian: parsing HTML: %w", err)
	}

	mirrors, err := parseDebianMirrorList(doc)
	if err != nil {
		return nil, fmt.Errorf("target: debian: %w", err)
	}
	if len(mirrors) == 0 {
		return nil, speedtest.ErrNoMirrorsAfterFiltering
	}
	return mirrors, nil
}

// parseDebianMirrorList walks the #content node's children, tracking the
// most recently seen <h3> country heading and emitting one Mirror per
// "Packages over HTTP(S):" text node whose following <tt><a> anchor points
// into a /debian/ tree.
func parseDebianMirrorList(doc *html.Node) ([]speedtest.Mirror, error) {
	content := htmlquery.FindOne(doc, `//div[@id="content"]`)
	if content == nil {
		return nil, fmt.Errorf("could not locate #content element")
	}

	var mirrors []speedtest.Mirror
	country := ""

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "h3" {
				country = countryCodeFromName(strings.TrimSpace(htmlquery.InnerText(c)))
			}
			if c.Type == html.TextNode {
				text := strings.TrimSpace(c.Data)
				if strings.HasPrefix(text, "Packages over HTTP") {
					if href, ok := nextAnchorHref(c); ok && strings.Contains(href, "/debian/") {
						url := strings.TrimSuffix(href, "/")
						mirrors = append(mirrors, speedtest.Mirror{
							URL:       url,
							URLToTest: url + "/dists/stable/main/binary-amd64/Packages.gz",
							Country:   country,
						})
					}
				}
			}
			walk(c)
		}
	}
	walk(content)

	return mirrors, nil
}

// nextAnchorHref looks at a text node's following siblings for the next
// <tt> element and returns its first <a href>, matching the page's
// "Packages over HTTP: <tt><a href=...>...</a></tt>" layout.
func nextAnchorHref(n *html.Node) (string, bool) {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == "h3" {
			return "", false
		}
		if s.Type != html.ElementNode || s.Data != "tt" {
			continue
		}
		a := htmlquery.FindOne(s, ".//a")
		if a == nil {
			return "", false
		}
		return htmlquery.SelectAttr(a, "href"), true
	}
	return "", false
}

// debianCountryNames maps the English country names the mirror list page's
// <h3> headings use to the 2-letter codes country.Graph keys on. A name
// absent from this table yields an empty Mirror.Country, the same
// "couldn't place on the graph" bucket metalink.go/stdin.go fall back to
// for a mirror with no usable country signal, rather than a
// graph-incompatible string silently never being visited.
var debianCountryNames = map[string]string{
	"argentina":              "AR",
	"australia":              "AU",
	"austria":                "AT",
	"belarus":                "BY",
	"belgium":                "BE",
	"bosnia and herzegovina": "BA",
	"brazil":                 "BR",
	"bulgaria":               "BG",
	"canada":                 "CA",
	"chile":                  "CL",
	"china":                  "CN",
	"colombia":               "CO",
	"croatia":                "HR",
	"czech republic":         "CZ",
	"denmark":                "DK",
	"ecuador":                "EC",
	"estonia":                "EE",
	"finland":                "FI",
	"france":                 "FR",
	"georgia":                "GE",
	"germany":                "DE",
	"greece":                 "GR",
	"hong kong":              "HK",
	"hungary":                "HU",
	"iceland":                "IS",
	"india":                  "IN",
	"indonesia":              "ID",
	"ireland":                "IE",
	"israel":                 "IL",
	"italy":                  "IT",
	"japan":                  "JP",
	"kazakhstan":             "KZ",
	"kenya":                  "KE",
	"south korea":            "KR",
	"korea, republic of":     "KR",
	"latvia":                 "LV",
	"lithuania":              "LT",
	"luxembourg":             "LU",
	"malaysia":               "MY",
	"mexico":                 "MX",
	"moldova":                "MD",
	"monaco":                 "MC",
	"morocco":                "MA",
	"netherlands":            "NL",
	"new caledonia":          "NC",
	"new zealand":            "NZ",
	"norway":                 "NO",
	"paraguay":               "PY",
	"philippines":            "PH",
	"poland":                 "PL",
	"portugal":               "PT",
	"romania":                "RO",
	"russia":                 "RU",
	"russian federation":     "RU",
	"serbia":                 "RS",
	"singapore":              "SG",
	"slovakia":               "SK",
	"slovenia":               "SI",
	"south africa":           "ZA",
	"spain":                  "ES",
	"sweden":                 "SE",
	"switzerland":            "CH",
	"taiwan":                 "TW",
	"thailand":               "TH",
	"turkey":                 "TR",
	"ukraine":                "UA",
	"united kingdom":         "GB",
	"united states":          "US",
	"vietnam":                "VN",
}

// countryCodeFromName resolves an <h3> country heading to its 2-letter
// code, case-insensitively. Unknown names return "".
func countryCodeFromName(name string) string {
	return debianCountryNames[strings.ToLower(name)]
}
