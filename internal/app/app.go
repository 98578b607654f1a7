package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"datatime/internal/bodyfile"
	"datatime/internal/config"
	"datatime/internal/encryption"
	"datatime/internal/index"
	"datatime/internal/source"
	"datatime/internal/timeline"
	"datatime/internal/tz"
)

// ErrNoReadableInput is returned by Run when not a single input could be read.
var ErrNoReadableInput = errors.New("no input could be read")

// Options carries the process-level settings that do not live in the config
// file.
type Options struct {
	LogPath    string // explicit diagnostics file; overrides log_dir
	Verbose    bool
	Stdin      io.Reader
	Stderr     io.Writer
	Passphrase encryption.PassphraseFunc
	IDs        IDGenerator
}

// DTApp is the application layer between the CLI and the timeline service.
// It constructs all dependencies from config and manages the index and log
// file lifecycle on Close.
type DTApp struct {
	cfg     *config.Config
	index   timeline.Index
	service *timeline.Service
	opener  *source.Router
	logger  timeline.Logger
	op      *Operation
	logFile *os.File
}

// SettingsFromConfig validates the timeline section and converts it into
// engine settings.
func SettingsFromConfig(cfg config.TimelineConfig) (timeline.Settings, error) {
	kinds, err := timeline.ParseKindSet(cfg.Kinds)
	if err != nil {
		return timeline.Settings{}, err
	}
	dr, err := timeline.NewDateRange(cfg.StartDate, cfg.EndDate)
	if err != nil {
		return timeline.Settings{}, err
	}
	mode, err := timeline.ParseMode(cfg.Mode)
	if err != nil {
		return timeline.Settings{}, err
	}
	return timeline.Settings{
		Kinds:     kinds,
		DateRange: dr,
		Mode:      mode,
		Options: timeline.Options{
			HideSize:  cfg.HideSize,
			HideTime:  cfg.HideTime,
			TrimName:  cfg.TrimName,
			AllFields: cfg.AllFields,
		},
	}, nil
}

// NewDTApp creates a fully wired DTApp from the given config. Every
// configuration error is reported here, before any input is read.
// The caller must call Close when done.
func NewDTApp(cfg *config.Config, opts Options) (*DTApp, error) {
	settings, err := SettingsFromConfig(cfg.Timeline)
	if err != nil {
		return nil, fmt.Errorf("invalid timeline settings: %w", err)
	}

	zone := tz.UTC()
	if strings.TrimSpace(cfg.Timeline.Timezone) != "" {
		if zone, err = tz.Parse(cfg.Timeline.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
	}

	// Reject a bad separator/qualifier pair up front.
	if _, err := bodyfile.NewReader(strings.NewReader(""), cfg.Input.FieldSeparator, cfg.Input.Qualifier); err != nil {
		return nil, fmt.Errorf("invalid input settings: %w", err)
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	op := NewOperation(opts.IDs.New())
	sl, logFile, err := newLogger(opts.Stderr, logPathFor(opts.LogPath, cfg.LogDir), op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	idx, err := index.NewIndexFromConfig(cfg.Index, bodyfile.Decode)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("creating index: %w", err)
	}

	encCfg, passphrase := cfg.Encryption, opts.Passphrase
	opener := source.NewOpenerFromConfig(cfg, opts.Stdin, func() (source.Decryptor, error) {
		d, err := encryption.NewDecryptorFromConfig(encCfg, passphrase)
		if err != nil {
			return nil, err
		}
		return d, nil
	})

	logger.Debug("run configured",
		"timezone", zone.String(), "mode", settings.Mode.String(),
		"kinds", strings.Join(settings.Kinds.Names(), ""), "range", settings.DateRange.String(),
		"index", cfg.Index.Type)

	return &DTApp{
		cfg:     cfg,
		index:   idx,
		service: timeline.NewService(settings, zone, idx, logger),
		opener:  opener,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}, nil
}

// Operation returns the record of the current run.
func (a *DTApp) Operation() *Operation { return a.op }

// Run reads every input into the timeline and renders it to w. An input that
// cannot be opened or read is logged and skipped, keeping any rows it produced
// before the failure. Run fails only when no input could be read at all. No inputs means standard input.
func (a *DTApp) Run(ctx context.Context, inputs []string, w io.Writer) error {
	if len(inputs) == 0 {
		inputs = []string{source.Stdin}
	}

	for _, input := range inputs {
		names, err := a.opener.Expand(ctx, []string{input})
		if err != nil {
			a.fail(input, timeline.IngestStats{}, err)
			continue
		}
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				a.op.Status = "error"
				return err
			}
			stats, err := a.ingest(ctx, name)
			if err != nil {
				a.fail(name, stats, err)
				continue
			}
			a.op.Record(name, stats, nil)
		}
	}

	if !a.op.Ingested() {
		a.op.Status = "error"
		return ErrNoReadableInput
	}

	rows, err := a.service.Render(w)
	if err != nil {
		a.op.Status = "error"
		return err
	}

	totals := a.op.Totals()
	a.logger.Info("timeline rendered",
		"rows", rows, "sources", a.op.Succeeded(), "failed", a.op.Failed(),
		"records", totals.Rows, "skipped", totals.Skipped)
	return nil
}

func (a *DTApp) ingest(ctx context.Context, name string) (timeline.IngestStats, error) {
	rc, err := a.opener.Open(ctx, name)
	if err != nil {
		return timeline.IngestStats{}, err
	}
	defer rc.Close()

	rd, err := bodyfile.NewReader(rc, a.cfg.Input.FieldSeparator, a.cfg.Input.Qualifier)
	if err != nil {
		return timeline.IngestStats{}, err
	}
	return a.service.Ingest(name, rd)
}

func (a *DTApp) fail(name string, stats timeline.IngestStats, err error) {
	a.op.Record(name, stats, err)
	a.logger.Error("cannot read input", "source", name, "error", err)
}

// Close releases the index and the log file.
func (a *DTApp) Close() error {
	var firstErr error
	if err := a.index.Close(); err != nil {
		firstErr = fmt.Errorf("closing index: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

// GenerateIdentity creates a passphrase-protected age identity at path and
// returns its recipient.
func GenerateIdentity(path string, prompt io.Writer) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("identity already exists at %s", path)
	}
	pass, err := NewPassphrase(prompt)
	if err != nil {
		return "", err
	}
	return encryption.GenerateIdentity(path, pass)
}
