package target

import (
	"net/url"
	"testing"
)

const sampleDirectoryListing = `<html>
<head><title>Index of /pub/mirrors/</title></head>
<body>
<h1>Index of /pub/mirrors/</h1>
<pre><a href="../">../</a>
<a href="mirror-a/">mirror-a/</a>
<a href="mirror-b/">mirror-b/</a>
<a href="README.txt">README.txt</a>
</pre>
</body>
</html>`

func TestExtractHrefs(t *testing.T) {
	hrefs := extractHrefs([]byte(sampleDirectoryListing))
	if len(hrefs) != 2 {
		t.Fatalf("expected 2 directory hrefs, got %d: %v", len(hrefs), hrefs)
	}
	if hrefs[0] != "mirror-a" || hrefs[1] != "mirror-b" {
		t.Errorf("unexpected hrefs: %v", hrefs)
	}
}

func TestParseDirectoryListing(t *testing.T) {
	base, err := url.Parse("https://listing.example.org/pub/mirrors/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mirrors := parseDirectoryListing([]byte(sampleDirectoryListing), base, "/repodata/repomd.xml")
	if len(mirrors) != 2 {
		t.Fatalf("expected 2 mirrors, got %d: %+v", len(mirrors), mirrors)
	}

	if mirrors[0].URL != "https://listing.example.org/pub/mirrors/mirror-a" {
		t.Errorf("unexpected URL: %s", mirrors[0].URL)
	}
	if mirrors[0].URLToTest != mirrors[0].URL+"/repodata/repomd.xml" {
		t.Errorf("unexpected URLToTest: %s", mirrors[0].URLToTest)
	}
	if mirrors[0].Country != "" {
		t.Errorf("expected no country for a plain directory listing, got %q", mirrors[0].Country)
	}
}

func TestParseDirectoryListingEmpty(t *testing.T) {
	base, _ := url.Parse("https://listing.example.org/pub/mirrors/")
	mirrors := parseDirectoryListing([]byte(`<html><body><a href="../">../</a></body></html>`), base, "/x")
	if len(mirrors) != 0 {
		t.Errorf("expected 0 mirrors, got %d", len(mirrors))
	}
}
