package target

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
)

const sampleDebianMirrorListHTML = `<html><body>
<div id="content">
<h3>Germany</h3>
<p>Packages over HTTP: <tt><a href="http://ftp.de.debian.org/debian/">http://ftp.de.debian.org/debian/</a></tt></p>
<h3>United States</h3>
<p>Packages over HTTP: <tt><a href="http://ftp.us.debian.org/debian/">http://ftp.us.debian.org/debian/</a></tt></p>
<p>Packages over HTTP: <tt><a href="http://unrelated.example.org/other/">http://unrelated.example.org/other/</a></tt></p>
</div>
</body></html>`

func TestParseDebianMirrorList(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(sampleDebianMirrorListHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mirrors, err := parseDebianMirrorList(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mirrors) != 2 {
		t.Fatalf("expected 2 mirrors (the /other/ entry has no /debian/ in its href), got %d: %+v", len(mirrors), mirrors)
	}

	if mirrors[0].Country != "DE" || mirrors[0].URL != "http://ftp.de.debian.org/debian" {
		t.Errorf("unexpected first mirror: %+v", mirrors[0])
	}
	if mirrors[1].Country != "US" {
		t.Errorf("unexpected second mirror country: %s", mirrors[1].Country)
	}
	if !strings.HasSuffix(mirrors[0].URLToTest, "Packages.gz") {
		t.Errorf("unexpected URLToTest: %s", mirrors[0].URLToTest)
	}
}

func TestParseDebianMirrorListNoContent(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(`<html><body><p>no content div here</p></body></html>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := parseDebianMirrorList(doc); err == nil {
		t.Fatal("expected an error when #content is missing")
	}
}

func TestDebianFormatter(t *testing.T) {
	f := DebianFormatter{Release: "bookworm", Components: []string{"main", "contrib"}}
	if got := f.FormatComment("hello"); got != "# hello" {
		t.Errorf("unexpected comment: %q", got)
	}
	mirror := mirrorForFormatterTest("http://ftp.de.debian.org/debian")
	if got := f.FormatMirror(mirror); got != "deb http://ftp.de.debian.org/debian bookworm main contrib" {
		t.Errorf("unexpected formatted mirror line: %q", got)
	}
}

func TestDebianFormatterDefaults(t *testing.T) {
	f := DebianFormatter{}
	mirror := mirrorForFormatterTest("http://ftp.de.debian.org/debian")
	if got := f.FormatMirror(mirror); got != "deb http://ftp.de.debian.org/debian stable main" {
		t.Errorf("unexpected formatted mirror line with defaults: %q", got)
	}
}
