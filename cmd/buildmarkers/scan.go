package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/buildmarkers/internal/collector"
	"github.com/dshills/buildmarkers/internal/config"
	"github.com/dshills/buildmarkers/internal/linedecoder"
	"github.com/dshills/buildmarkers/internal/logging"
	"github.com/dshills/buildmarkers/internal/marker"
	"github.com/dshills/buildmarkers/internal/matcher"
	"github.com/dshills/buildmarkers/internal/resolve"
)

const readChunkSize = 32 * 1024

type scanOptions struct {
	matchers    []string
	encoding    string
	workspace   string
	luaProvider string
	format      string
	follow      bool
}

func newScanCmd() *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Scan build output for problems",
		Long: `Scan reads build output from a file, or from stdin when the file is "-"
or omitted, and prints the problems found by the selected matchers.

With --follow the file is scanned again whenever it or a --config file
changes. Problems that disappear from the output are retracted.`,
		Example: `  go vet ./... 2>&1 | buildmarkers scan --matcher go
  buildmarkers scan build.log --matcher gcc --workspace ./src
  buildmarkers scan build.log --config matchers.yaml --follow`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runScan(cmd, input, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.matchers, "matcher", "m", nil, "problem matcher name; repeatable")
	cmd.Flags().StringVarP(&opts.encoding, "encoding", "e", "utf-8", "input encoding")
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "workspace folder for relative file locations (default: current directory)")
	cmd.Flags().StringVar(&opts.luaProvider, "lua-provider", "", "Lua script defining resolve(path) to map file paths to resources")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "rescan the file when it or a config file changes")
	return cmd
}

func runScan(cmd *cobra.Command, input string, opts scanOptions) error {
	log := newLogger(cmd)

	if opts.follow && input == "-" {
		return errors.New("--follow requires a file argument")
	}

	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	colored, err := colorEnabled(colorMode, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd.OutOrStdout(), opts.format, colored)
	if err != nil {
		return err
	}

	workspace := opts.workspace
	if workspace == "" {
		if workspace, err = os.Getwd(); err != nil {
			return fmt.Errorf("determining workspace: %w", err)
		}
	}
	if workspace, err = filepath.Abs(workspace); err != nil {
		return fmt.Errorf("resolving workspace: %w", err)
	}

	resolverOpts := []resolve.Option{resolve.WithWorkspaceFolder(workspace)}
	if opts.luaProvider != "" {
		provider, err := resolve.LoadLuaProvider(opts.luaProvider)
		if err != nil {
			return err
		}
		defer provider.Close()
		resolverOpts = append(resolverOpts, resolve.WithURIProvider(provider.Resolve))
	}

	s := &scanner{
		log:      log,
		encoding: opts.encoding,
		resolver: resolve.NewFileResolver(resolverOpts...),
		printer:  p,
	}
	if opts.follow {
		s.sink = marker.NewMemoryService(marker.WithChangeHandler(p.printChange))
	} else {
		s.sink = marker.NewMemoryService()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reload := func() error {
		reg, loaded, err := loadRegistry(cmd, log)
		if err != nil {
			return err
		}
		matchers, err := selectMatchers(reg, opts.matchers, loaded.Matchers)
		if err != nil {
			return err
		}
		s.matchers = matchers
		return nil
	}
	if err := reload(); err != nil {
		return err
	}

	if !opts.follow {
		return s.scanInput(ctx, cmd.InOrStdin(), input)
	}
	configs, _ := cmd.Flags().GetStringSlice("config")
	return s.follow(ctx, input, configs, reload)
}

// scanner runs collectors over build output into one marker sink.
type scanner struct {
	log      *logging.Logger
	encoding string
	resolver resolve.Resolver
	matchers []*matcher.ProblemMatcher
	sink     *marker.MemoryService
	printer  *printer
	runs     int
}

// lineCollector is implemented by both collector kinds.
type lineCollector interface {
	ProcessLine(line string) error
	Done() error
	NumberOfMatches() int
	RunID() string
}

func (s *scanner) scanInput(ctx context.Context, stdin io.Reader, input string) error {
	if input == "-" {
		return s.scanOnce(ctx, stdin)
	}
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return s.scanOnce(ctx, f)
}

// scanOnce runs one collector over r and prints the sink afterwards.
func (s *scanner) scanOnce(ctx context.Context, r io.Reader) error {
	start := time.Now()
	s.runs++

	c, err := s.collect(ctx, r)
	if err != nil {
		return err
	}
	s.log.WithField("run", c.RunID()).Debug("scan finished: %d matches in %s", c.NumberOfMatches(), time.Since(start))

	return s.printer.printRun(report{
		Run:      s.runs,
		Markers:  s.sink.Read(marker.Filter{}),
		Summary:  s.sink.Summary(),
		Matches:  c.NumberOfMatches(),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	})
}

// collect decodes r into lines and feeds them to a new collector. The
// collector has delivered everything when collect returns.
func (s *scanner) collect(ctx context.Context, r io.Reader) (lineCollector, error) {
	dec, err := linedecoder.New(s.encoding)
	if err != nil {
		return nil, err
	}

	opts := []collector.Option{
		collector.WithLogger(s.log),
		collector.WithResolver(s.resolver),
		collector.WithEventHandler(func(ev collector.Event) {
			s.log.Info("%s: %s", ev.Owner, ev.Kind)
		}),
	}
	var c lineCollector
	if hasWatching(s.matchers) {
		wc := collector.NewWatchingCollector(ctx, s.matchers, s.sink, opts...)
		if err := wc.AboutToStart(); err != nil {
			return nil, err
		}
		c = wc
	} else {
		c = collector.NewStartStopCollector(ctx, s.matchers, s.sink, opts...)
	}

	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			_ = c.Done()
			return nil, err
		}
		n, readErr := r.Read(buf)
		for _, line := range dec.Write(buf[:n]) {
			if err := c.ProcessLine(line); err != nil {
				return nil, err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = c.Done()
			return nil, fmt.Errorf("reading input: %w", readErr)
		}
	}
	if line, ok := dec.End(); ok {
		if err := c.ProcessLine(line); err != nil {
			return nil, err
		}
	}
	if err := c.Done(); err != nil {
		return nil, err
	}
	return c, nil
}

func hasWatching(matchers []*matcher.ProblemMatcher) bool {
	for _, m := range matchers {
		if m.Watching != nil {
			return true
		}
	}
	return false
}

// follow scans input, then scans it again after every change to input or
// one of configs until ctx is done. Config changes reload the matchers.
func (s *scanner) follow(ctx context.Context, input string, configs []string, reload func() error) error {
	w, err := config.NewWatcher(config.WithWatcherLogger(s.log))
	if err != nil {
		return err
	}
	defer w.Close()

	for _, path := range append([]string{input}, configs...) {
		if err := w.Add(path); err != nil {
			return err
		}
	}
	configSet := make(map[string]bool, len(configs))
	for _, path := range configs {
		if abs, err := filepath.Abs(path); err == nil {
			configSet[abs] = true
		}
	}

	// changes carries whether a config file changed; one pending rescan is
	// enough since every rescan reads the whole file.
	changes := make(chan bool, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(ctx, func(paths []string) {
			reloadConfig := false
			for _, p := range paths {
				reloadConfig = reloadConfig || configSet[p]
			}
			select {
			case changes <- reloadConfig:
			default:
				if reloadConfig {
					// Upgrade the pending rescan to a reload.
					select {
					case <-changes:
					default:
					}
					changes <- true
				}
			}
		})
	})

	g.Go(func() error {
		if err := s.scanInput(ctx, nil, input); err != nil && !isMissing(err) {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case reloadConfig := <-changes:
				if reloadConfig {
					if err := s.reloadMatchers(reload); err != nil {
						s.log.Error("reloading matchers: %v", err)
						continue
					}
				}
				if err := s.scanInput(ctx, nil, input); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					if isMissing(err) {
						s.log.Warn("%v", err)
						continue
					}
					return err
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reloadMatchers applies a matcher reload. On success the sink is cleared
// since markers of removed or renamed matchers would never be retracted.
func (s *scanner) reloadMatchers(reload func() error) error {
	if err := reload(); err != nil {
		return err
	}
	s.sink.Clear()
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
