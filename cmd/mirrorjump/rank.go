package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mirrorjump/mirrorjump/internal/config"
	"github.com/mirrorjump/mirrorjump/internal/country"
	"github.com/mirrorjump/mirrorjump/internal/freshness"
	"github.com/mirrorjump/mirrorjump/internal/safety"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
	"github.com/mirrorjump/mirrorjump/internal/store"
	"github.com/mirrorjump/mirrorjump/internal/target"
	"github.com/spf13/cobra"
)

var (
	rankTarget         string
	rankOutFile        string
	rankProtocols      []string
	rankPerMirrorTO    time.Duration
	rankMinPerMirror   time.Duration
	rankMaxPerMirror   time.Duration
	rankMinBytes       int64
	rankEps            float64
	rankEpsChecks      int
	rankConcurrency    int
	rankConcurrencyU   int
	rankMaxJumps       int
	rankEntryCountry   string
	rankNeighbors      int
	rankTestMirrors    int
	rankRetestTop      int
	rankDisableFallback bool
	rankCompareFresh   bool
	rankReferenceDBDir string
)

// newRankCmd builds the rank command, spec §6/§7's outer orchestration:
// fetch the target's mirror list, run the engine's jump/re-test pipeline,
// format the survivors, and write them out.
func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank a target's mirrors by measured download speed",
		Long: `rank fetches a distribution's mirror list, country-jumps across it to
sample candidates, re-tests the strongest ones serially, and writes the
ranked mirror list to stdout or --out-file.`,
		Example: `  mirrorjump rank --target archlinux
  mirrorjump rank --target debian --out-file /etc/apt/sources.list.d/mirrorjump.list
  mirrorjump rank --target archlinux --entry-country JP --max-jumps 4`,
		RunE: rankRun,
	}

	flags := cmd.Flags()
	flags.StringVar(&rankTarget, "target", "", "mirror target to rank (archlinux, debian, epel, stdin, directory)")
	flags.StringVar(&rankOutFile, "out-file", "", "write the ranked mirror list here instead of stdout")
	flags.StringSliceVar(&rankProtocols, "protocol", nil, "restrict mirrors to these URL schemes (default: http, https)")
	flags.DurationVar(&rankPerMirrorTO, "per-mirror-timeout", 0, "per-mirror probe timeout")
	flags.DurationVar(&rankMinPerMirror, "min-per-mirror", 0, "minimum time spent probing a mirror")
	flags.DurationVar(&rankMaxPerMirror, "max-per-mirror", 0, "maximum time spent probing a mirror")
	flags.Int64Var(&rankMinBytes, "min-bytes-per-mirror", 0, "minimum bytes to download before a probe counts as successful")
	flags.Float64Var(&rankEps, "eps", 0, "early-stop convergence threshold")
	flags.IntVar(&rankEpsChecks, "eps-checks", 0, "number of recent chunk speeds the eps convergence check is computed over")
	flags.IntVar(&rankConcurrency, "concurrency", 0, "concurrent probes per jump batch")
	flags.IntVar(&rankConcurrencyU, "concurrency-for-unlabeled", 0, "concurrent probes for unlabeled mirrors")
	flags.IntVar(&rankMaxJumps, "max-jumps", 0, "maximum number of country jumps")
	flags.StringVar(&rankEntryCountry, "entry-country", "", "country code to start jumping from")
	flags.IntVar(&rankNeighbors, "country-neighbors-per-country", 0, "neighboring countries considered per jump")
	flags.IntVar(&rankTestMirrors, "country-test-mirrors-per-country", 0, "mirrors sampled per visited country")
	flags.IntVar(&rankRetestTop, "top-mirrors-number-to-retest", 0, "number of top mirrors serially re-tested")
	flags.BoolVar(&rankDisableFallback, "disable-untested-fallback", false, "fail instead of falling back to untested mirrors")
	flags.BoolVar(&rankCompareFresh, "compare-freshness", false, "score surviving mirrors against a local reference package database")
	flags.StringVar(&rankReferenceDBDir, "reference-db-dir", "", "directory holding the freshness reference database")

	return cmd
}

func rankRun(cmd *cobra.Command, args []string) error {
	log := logger
	if log == nil {
		log = slog.Default()
	}

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	targetName := rankTarget
	if targetName == "" {
		targetName = globalCfg.Output.Target
	}

	registry, err := buildRegistry(globalCfg)
	if err != nil {
		return fmt.Errorf("building target registry: %w", err)
	}
	tgt, ok := registry.Get(targetName)
	if !ok {
		return &target.ErrUnknownTarget{Name: targetName}
	}

	engineCfg, err := resolveEngineConfig(cmd)
	if err != nil {
		return fmt.Errorf("resolving engine config: %w", err)
	}

	disableFallback := rankDisableFallback || globalCfg.Engine.DisableUntestedFallback
	compareFresh := rankCompareFresh || globalCfg.Output.CompareFreshness
	referenceDBDir := rankReferenceDBDir
	if referenceDBDir == "" {
		referenceDBDir = globalCfg.Output.ReferenceDBDir
	}
	outFile := rankOutFile
	if outFile == "" {
		outFile = globalCfg.Output.OutFile
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("fetching mirror list", "target", targetName)
	progress := make(chan string, 256)
	go drainProgress(progress, quiet)

	mirrors, err := tgt.Fetcher.FetchMirrors(ctx, progress)
	close(progress)
	if err != nil {
		if errors.Is(err, speedtest.ErrNoMirrorsAfterFiltering) {
			return err
		}
		return fmt.Errorf("%w: %v", speedtest.ErrFetch, err)
	}

	mirrors = filterByProtocol(mirrors, engineCfg.Protocols)
	if len(mirrors) == 0 {
		return speedtest.ErrNoMirrorsAfterFiltering
	}

	graph := country.DefaultGraph()
	engine := speedtest.NewEngine(engineCfg, graph)
	go drainProgress(engine.Progress(), quiet)

	start := time.Now()
	result, err := engine.Run(ctx, mirrors)
	if err != nil {
		if errors.Is(err, speedtest.ErrSpeedTestsFailed) && !disableFallback {
			log.Warn("all speed tests failed, falling back to untested mirror order", "error", err)
			result = &speedtest.Result{Mirrors: untestedFallback(mirrors)}
		} else {
			return err
		}
	}

	if len(result.Mirrors) == 0 {
		return speedtest.ErrSpeedTestsFailed
	}

	if compareFresh {
		runFreshnessComparison(ctx, log, referenceDBDir, result.Mirrors)
	}

	if err := writeRanked(outFile, tgt.Formatter, result.Mirrors); err != nil {
		return fmt.Errorf("writing ranked output: %w", err)
	}

	top := result.Mirrors[0]
	log.Info("rank complete",
		"target", targetName,
		"jumps", engine.Tracker().Snapshot().Jumps,
		"results", len(result.Mirrors),
		"top_mirror", top.Mirror.URL,
		"top_speed_bps", top.Speed(),
		"elapsed", time.Since(start),
	)

	if globalStore != nil {
		run := &store.Run{
			StartedAt:    start,
			Target:       targetName,
			EntryCountry: engineCfg.EntryCountry,
			Jumps:        engine.Tracker().Snapshot().Jumps,
			ResultCount:  len(result.Mirrors),
			TopMirrorURL: top.Mirror.URL,
			TopSpeedBps:  top.Speed(),
		}
		if err := globalStore.CreateRun(run); err != nil {
			log.Warn("failed to record run history", "error", err)
		}
	}

	return nil
}

// directoryTargetConfig is the YAML shape of the "directory" block under
// targets in the config file, parsed generically via
// config.ParseTargetConfig the same way the teacher parsed per-provider
// config blocks.
type directoryTargetConfig struct {
	ListingURL string `yaml:"listing_url"`
	TestPath   string `yaml:"test_path"`
}

// buildRegistry returns the default target registry, additionally
// registering "directory" when the config file defines a targets.directory
// block — a directory listing carries no fixed upstream URL the way
// archlinux/debian/epel do, so it only becomes available once a config
// file supplies the listing URL and test path it needs.
func buildRegistry(cfg *config.Config) (*target.Registry, error) {
	registry := target.DefaultRegistry()

	raw, ok := cfg.Targets["directory"]
	if !ok {
		return registry, nil
	}

	dirCfg, err := config.ParseTargetConfig[directoryTargetConfig](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing targets.directory config: %w", err)
	}
	if dirCfg.ListingURL == "" {
		return nil, fmt.Errorf("targets.directory.listing_url is required")
	}

	registry.Register("directory", target.Target{
		Fetcher:   target.NewDirectoryFetcher(dirCfg.ListingURL, dirCfg.TestPath),
		Formatter: target.PlainFormatter{},
	})
	return registry, nil
}

// resolveEngineConfig builds a speedtest.Config from the loaded file config
// with any explicitly-set CLI flags overriding it, the same override
// pattern as the teacher's --data-dir override of globalCfg.Server.DataDir.
func resolveEngineConfig(cmd *cobra.Command) (speedtest.Config, error) {
	cfg, err := globalCfg.Engine.ToEngineConfig()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("protocol") {
		cfg.Protocols = rankProtocols
	}
	if flags.Changed("per-mirror-timeout") {
		cfg.PerMirrorTimeout = rankPerMirrorTO
	}
	if flags.Changed("min-per-mirror") {
		cfg.MinPerMirror = rankMinPerMirror
	}
	if flags.Changed("max-per-mirror") {
		cfg.MaxPerMirror = rankMaxPerMirror
	}
	if flags.Changed("min-bytes-per-mirror") {
		cfg.MinBytesPerMirror = rankMinBytes
	}
	if flags.Changed("eps") {
		cfg.Eps = rankEps
	}
	if flags.Changed("eps-checks") {
		cfg.EpsChecks = rankEpsChecks
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = rankConcurrency
	}
	if flags.Changed("concurrency-for-unlabeled") {
		cfg.ConcurrencyForUnlabeled = rankConcurrencyU
	}
	if flags.Changed("max-jumps") {
		cfg.MaxJumps = rankMaxJumps
	}
	if flags.Changed("entry-country") {
		cfg.EntryCountry = rankEntryCountry
	}
	if flags.Changed("country-neighbors-per-country") {
		cfg.CountryNeighborsPerCountry = rankNeighbors
	}
	if flags.Changed("country-test-mirrors-per-country") {
		cfg.CountryTestMirrorsPerCountry = rankTestMirrors
	}
	if flags.Changed("top-mirrors-number-to-retest") {
		cfg.TopMirrorsNumberToRetest = rankRetestTop
	}

	return cfg, nil
}

// filterByProtocol drops mirrors whose URL scheme isn't in allowed. An
// empty allowed list means http and https are both accepted.
func filterByProtocol(mirrors []speedtest.Mirror, allowed []string) []speedtest.Mirror {
	schemes := allowed
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	set := make(map[string]bool, len(schemes))
	for _, s := range schemes {
		set[strings.ToLower(s)] = true
	}

	filtered := make([]speedtest.Mirror, 0, len(mirrors))
	for _, m := range mirrors {
		u, err := url.Parse(m.URL)
		if err != nil {
			continue
		}
		if set[strings.ToLower(u.Scheme)] {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// untestedFallback returns mirrors in their fetcher-supplied order wrapped
// as zero-speed results, used when every probe failed and the caller has
// not set --disable-untested-fallback.
func untestedFallback(mirrors []speedtest.Mirror) []speedtest.SpeedTestResult {
	results := make([]speedtest.SpeedTestResult, 0, len(mirrors))
	for _, m := range mirrors {
		results = append(results, speedtest.SpeedTestResult{Mirror: m})
	}
	return results
}

// writeRanked renders the ranked mirror list via formatter and writes it
// to path, or stdout when path is empty.
func writeRanked(path string, formatter target.Formatter, results []speedtest.SpeedTestResult) error {
	var b strings.Builder
	b.WriteString(formatter.FormatComment(fmt.Sprintf("generated by mirrorjump on %s", time.Now().UTC().Format(time.RFC3339))))
	b.WriteString("\n")
	for _, r := range results {
		b.WriteString(formatter.FormatMirror(r.Mirror))
		b.WriteString("\n")
	}

	if path == "" {
		_, err := fmt.Print(b.String())
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// runFreshnessComparison scores every ranked result that has a BasePath
// against a local reference database, logging failures instead of aborting the rank run since
// spec §9 treats this as an optional post-step that never feeds back into
// ranking.
func runFreshnessComparison(ctx context.Context, log *slog.Logger, dir string, results []speedtest.SpeedTestResult) {
	if dir == "" {
		log.Warn("compare-freshness requested but no reference-db-dir configured")
		return
	}

	reference, err := freshness.LoadReferenceDB(dir, "reference.db")
	if err != nil {
		log.Warn("failed to load freshness reference database", "error", err)
		return
	}

	client := safety.NewHTTPClient(30 * time.Second)
	for _, r := range results {
		if r.Mirror.BasePath == "" {
			continue
		}
		res := freshness.CheckMirror(ctx, client, r.Mirror, reference)
		if res.Err != nil {
			log.Warn("freshness check failed", "mirror", r.Mirror.URL, "error", res.Err)
			continue
		}
		log.Info("freshness score", "mirror", r.Mirror.URL, "score", res.Score, "compared", res.PackagesCompared)
	}
}

// drainProgress prints progress lines unless quiet is set, and always
// drains the channel so producers never block on a full buffer.
func drainProgress(ch <-chan string, quiet bool) {
	for line := range ch {
		if !quiet {
			fmt.Fprintln(os.Stderr, line)
		}
	}
}
