// Package trainer builds Markov models from collected chat logs. It walks the
// collector's log directory, feeds every message into a chain per channel (or
// one global chain), and atomically replaces the model files on disk.
package trainer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/subculture-collective/chatterchain/markov"
	"github.com/subculture-collective/chatterchain/telemetry"
)

// Options configures one training run.
type Options struct {
	LogDir string
	OutDir string
	Order  int
	// Channels restricts training to these channels, producing one model per
	// channel. Empty trains a single "model" over everything found.
	Channels []string
	// Authored prefixes each sentence with "login:" so the model learns who
	// says what.
	Authored bool
	// FineTunePath seeds each chain from an existing model instead of
	// starting empty.
	FineTunePath string
	// Checkpoint additionally writes a date-stamped copy next to the model.
	Checkpoint bool
	// AfterDate skips log files older than this ISO date (inclusive floor).
	AfterDate string
}

// logFile is one discovered collector log.
type logFile struct {
	channel string
	date    string
	path    string
}

// Run trains and saves every requested model. Failures on individual log
// files abort the run; partially trained models are never written.
func Run(ctx context.Context, opts Options) error {
	telemetry.Init()
	if opts.Order == 0 {
		opts.Order = 2
	}
	files, err := collectLogs(opts.LogDir, opts.AfterDate)
	if err != nil {
		return err
	}
	slog.Info("collected logs", slog.Int("files", len(files)), slog.String("dir", opts.LogDir), slog.String("component", "trainer"))

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	if len(opts.Channels) == 0 {
		return trainOne(ctx, opts, "model", nil, files)
	}
	for _, channel := range opts.Channels {
		var subset []logFile
		for _, f := range files {
			if f.channel == channel {
				subset = append(subset, f)
			}
		}
		if err := trainOne(ctx, opts, channel, []string{channel}, subset); err != nil {
			return err
		}
	}
	return nil
}

func trainOne(ctx context.Context, opts Options, name string, channels []string, files []logFile) error {
	chain, err := newChain(opts)
	if err != nil {
		return err
	}
	meta, _ := json.Marshal(map[string]any{
		"channels": strings.Join(channels, ","),
		"order":    chain.Order(),
		"trained":  time.Now().UTC().Format(time.RFC3339),
	})
	chain.SetMetadata(string(meta))

	var sentences int64
	dur := telemetry.TimeFunc(telemetry.TrainingDuration, func() {
		for _, f := range files {
			if ctx.Err() != nil {
				return
			}
			n, ferr := feedFile(chain, f.path, opts.Authored)
			if ferr != nil {
				err = ferr
				return
			}
			sentences += n
		}
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stats := chain.Stats()
	slog.Info("training completed",
		slog.String("model", name),
		slog.Int64("sentences", sentences),
		slog.Int("vocabulary", stats.Vocabulary),
		slog.Int("nodes", stats.Nodes),
		slog.Duration("took", dur),
		slog.String("component", "trainer"))

	return saveModel(chain, name, opts.OutDir, opts.Checkpoint)
}

func newChain(opts Options) (*markov.Chain, error) {
	if opts.FineTunePath == "" {
		return markov.New(opts.Order, "")
	}
	f, err := os.Open(opts.FineTunePath)
	if err != nil {
		return nil, fmt.Errorf("open fine-tune model: %w", err)
	}
	defer func() { _ = f.Close() }()
	chain, err := markov.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load fine-tune model: %w", err)
	}
	return chain, nil
}

// collectLogs finds <channel>/<date>.log files below dir.
func collectLogs(dir, afterDate string) ([]logFile, error) {
	var out []logFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".log") {
			return nil
		}
		date := strings.TrimSuffix(d.Name(), ".log")
		if afterDate != "" && date < afterDate {
			return nil
		}
		out = append(out, logFile{
			channel: filepath.Base(filepath.Dir(path)),
			date:    date,
			path:    path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk log dir %s: %w", dir, err)
	}
	return out, nil
}

// feedFile feeds one collector log file line by line and returns the number
// of sentences fed. Lines that don't match the collector format are skipped.
func feedFile(chain *markov.Chain, path string, authored bool) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var count int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		login, text, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		if authored {
			chain.Feed(login + ": " + text)
		} else {
			chain.Feed(text)
		}
		telemetry.SentencesTrained.Inc()
		count++
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("read log file %s: %w", path, err)
	}
	return count, nil
}

// parseLine splits a "channel,HH:MM:SS,login,text" collector line. The text
// field may itself contain commas.
func parseLine(line string) (login, text string, ok bool) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 {
		return "", "", false
	}
	text = strings.TrimSpace(parts[3])
	if text == "" {
		return "", "", false
	}
	return parts[2], text, true
}

// saveModel writes <name>.chain atomically, plus an optional date-stamped
// checkpoint.
func saveModel(chain *markov.Chain, name, outDir string, checkpoint bool) error {
	var buf bytes.Buffer
	if err := chain.Save(&buf); err != nil {
		return fmt.Errorf("serialize model %s: %w", name, err)
	}
	if checkpoint {
		stamped := filepath.Join(outDir, fmt.Sprintf("%s-%s.chain", name, time.Now().UTC().Format("2006-01-02")))
		if err := atomic.WriteFile(stamped, bytes.NewReader(buf.Bytes())); err != nil {
			return fmt.Errorf("write checkpoint %s: %w", stamped, err)
		}
	}
	path := filepath.Join(outDir, name+".chain")
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("write model %s: %w", path, err)
	}
	slog.Info("model saved", slog.String("path", path), slog.Int("bytes", buf.Len()), slog.String("component", "trainer"))
	return nil
}
