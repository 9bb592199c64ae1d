package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"reelkeeper/internal/config"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/parser"
)

// Options configures a pipeline.
type Options struct {
	Workers       int
	QueueCapacity int
	Parser        *parser.Chain
	Logger        *slog.Logger
}

// OptionsFromConfig returns options sized from the scan configuration.
func OptionsFromConfig(cfg config.Scan, logger *slog.Logger) Options {
	return Options{
		Workers:       cfg.Workers,
		QueueCapacity: cfg.QueueCapacity,
		Logger:        logger,
	}
}

// Pipeline wires the scanner, parser workers, and collector.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a pipeline, filling unset options with defaults.
func New(opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueCapacity < 1 {
		opts.QueueCapacity = 1
	}
	if opts.Parser == nil {
		opts.Parser = parser.Default()
	}
	return &Pipeline{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "pipeline"),
	}
}

// Result is the collector's output.
type Result struct {
	Files    []*media.ScannedFile
	Stats    Stats
	Duration time.Duration
}

// Run scans root with filters and returns every parsed file sorted by path.
func (p *Pipeline) Run(ctx context.Context, root string, filters Filters) (Result, error) {
	start := time.Now()
	scanner := NewScanner(filters, p.opts.Logger)
	pool := &parserPool{chain: p.opts.Parser, logger: p.logger}

	in := NewQueue[FileDescriptor](p.opts.QueueCapacity)
	out := NewQueue[*media.ScannedFile](p.opts.QueueCapacity)

	g, gctx := errgroup.WithContext(ctx)

	var scanStats ScanStats
	g.Go(func() error {
		defer in.Close()
		stats, err := scanner.Scan(gctx, root, in)
		scanStats = stats
		return err
	})

	g.Go(func() error {
		var workers errgroup.Group
		for i := 0; i < p.opts.Workers; i++ {
			workers.Go(func() error {
				return pool.run(gctx, in, out)
			})
		}
		err := workers.Wait()
		out.Close()
		return err
	})

	var files []*media.ScannedFile
	g.Go(func() error {
		for {
			file, err := out.Get(gctx)
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}
			if err != nil {
				return err
			}
			files = append(files, file)
		}
	})

	err := g.Wait()
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	result := Result{
		Files: files,
		Stats: Stats{
			Scan:        scanStats,
			Parser:      pool.counters.snapshot(),
			InputQueue:  in.Stats(),
			OutputQueue: out.Stats(),
			Collected:   len(files),
		},
		Duration: time.Since(start),
	}
	logger := logging.WithContext(ctx, p.logger)
	if err != nil {
		logger.Warn("scan interrupted",
			logging.String("root", root),
			logging.Int("collected", len(files)),
			logging.Error(err),
		)
		return result, err
	}
	logger.Info("scan complete",
		logging.String("root", root),
		logging.Int64("dirs", scanStats.DirsScanned),
		logging.Int64("admitted", scanStats.FilesAdmitted),
		logging.Int64("parse_errors", result.Stats.Parser.Errors),
		logging.Duration("elapsed", result.Duration),
	)
	return result, nil
}
