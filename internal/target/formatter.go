package target

import (
	"fmt"
	"strings"

	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// PlainFormatter renders a bare mirror URL per line and a "##"-prefixed
// comment, the shape most package managers' plain mirrorlist files expect
// (pacman's /etc/pacman.d/mirrorlist, yum/dnf's .repo mirrorlist files).
type PlainFormatter struct{}

// FormatComment implements Formatter.
func (PlainFormatter) FormatComment(message string) string {
	return "## " + message
}

// FormatMirror implements Formatter.
func (PlainFormatter) FormatMirror(mirror speedtest.Mirror) string {
	return mirror.URL
}

// DebianFormatter renders apt sources.list-style "deb <url> <suite>
// <components...>" lines, grounded on original_source/src/targets/debian.rs's
// display_mirror (same "type uri suite components" shape, options
// omitted since SPEC_FULL has no per-arch pinning flag).
type DebianFormatter struct {
	Release    string
	Components []string
}

// FormatComment implements Formatter.
func (DebianFormatter) FormatComment(message string) string {
	return "# " + message
}

// FormatMirror implements Formatter.
func (f DebianFormatter) FormatMirror(mirror speedtest.Mirror) string {
	release := f.Release
	if release == "" {
		release = "stable"
	}
	components := strings.Join(f.Components, " ")
	if components == "" {
		components = "main"
	}
	return fmt.Sprintf("deb %s %s %s", mirror.URL, release, components)
}
