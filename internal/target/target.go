// Package target implements the Fetcher/Formatter ports of spec §4.G: the
// external collaborators the core speed-test engine consumes but does not
// know how to build itself. Each concrete fetcher knows how to turn one
// distribution's mirror-list format (a JSON API, a metalink XML document,
// an HTML directory listing, a plain directory index, or stdin) into the
// engine's neutral []speedtest.Mirror; formatters turn a ranked result back
// into the output lines a package manager's config file expects.
package target

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// Fetcher retrieves the candidate mirror list for one target. The engine
// only consumes the returned slice; it never cares how it was produced.
type Fetcher interface {
	FetchMirrors(ctx context.Context, progress chan<- string) ([]speedtest.Mirror, error)
}

// Formatter renders a progress/informational comment and a single ranked
// mirror as output lines, in whatever syntax the target's package manager
// expects for its mirrorlist/sources file.
type Formatter interface {
	FormatComment(message string) string
	FormatMirror(mirror speedtest.Mirror) string
}

// Target bundles a named Fetcher with the Formatter that should render its
// output; the two are registered together since a target's output syntax
// is intrinsic to the target (an apt "deb" line only makes sense for a
// Debian-family fetcher), matching the teacher's one-provider-per-name
// registration model.
type Target struct {
	Fetcher   Fetcher
	Formatter Formatter
}

// Registry is a name-keyed lookup of Targets, adapted from the teacher's
// provider.Registry: same Register/Get/Names shape, narrowed to the two
// methods spec §4.G names plus construction-time registration.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds a named Target, overwriting any prior registration under
// the same name.
func (r *Registry) Register(name string, t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[name] = t
}

// Get resolves a registered Target by name.
func (r *Registry) Get(name string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	return t, ok
}

// Names returns every registered target name, sorted for stable CLI help
// output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry builds the Registry with every adapter that needs no
// configuration, keyed by the name the --target flag accepts. The
// DirectoryFetcher is not registered here, since it needs a listing URL.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("archlinux", Target{Fetcher: NewArchLinuxFetcher(), Formatter: PlainFormatter{}})
	r.Register("debian", Target{Fetcher: NewDebianFetcher(), Formatter: DebianFormatter{Release: "stable", Components: []string{"main"}}})
	r.Register("epel", Target{Fetcher: NewMetalinkFetcher(DefaultEPELMetalinkURL(9, "x86_64")), Formatter: PlainFormatter{}})
	r.Register("stdin", Target{Fetcher: NewStdinFetcher(nil), Formatter: PlainFormatter{}})
	return r
}

// ErrUnknownTarget is returned by the CLI layer when --target names a
// target absent from the Registry.
type ErrUnknownTarget struct {
	Name string
}

func (e *ErrUnknownTarget) Error() string {
	return fmt.Sprintf("target: unknown target %q", e.Name)
}
