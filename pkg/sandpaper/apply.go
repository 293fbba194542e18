package sandpaper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbroadley/sandpaper/internal/config"
	"github.com/tbroadley/sandpaper/internal/logging"
	"github.com/tbroadley/sandpaper/internal/metrics"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	_ "github.com/tbroadley/sandpaper/internal/storage/all"
	"github.com/tbroadley/sandpaper/internal/transformer"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// DefaultJob labels the metrics of runs that do not set WithJob.
const DefaultJob = "sandpaper"

type applyOptions struct {
	sheet      string
	table      string
	reader     config.Options
	writer     config.Options
	terminator string
	logger     *slog.Logger
	job        string
}

// ApplyOption configures one Apply run.
type ApplyOption func(*applyOptions)

// WithSheet selects the sheet or table read from multi-table sources. It
// overrides a ?sheet= or ?table= parameter of the source location.
func WithSheet(name string) ApplyOption {
	return func(o *applyOptions) { o.sheet = name }
}

// WithTable names the table written to SQL destinations.
func WithTable(name string) ApplyOption {
	return func(o *applyOptions) { o.table = name }
}

// WithReaderOption sets one reader option, such as auto_detect_datetime.
func WithReaderOption(key string, v any) ApplyOption {
	return func(o *applyOptions) { o.reader[key] = v }
}

// WithReaderOptions merges opts into the reader options.
func WithReaderOptions(opts map[string]any) ApplyOption {
	return func(o *applyOptions) {
		for k, v := range opts {
			o.reader[k] = v
		}
	}
}

// WithWriterOption sets one writer option, such as delimiter.
func WithWriterOption(key string, v any) ApplyOption {
	return func(o *applyOptions) { o.writer[key] = v }
}

// WithLineTerminator sets the line ending of text destinations.
func WithLineTerminator(t string) ApplyOption {
	return func(o *applyOptions) { o.terminator = t }
}

// WithLogger logs the run to l instead of the context or default logger.
func WithLogger(l *slog.Logger) ApplyOption {
	return func(o *applyOptions) { o.logger = l }
}

// WithJob sets the job label of the run's metrics.
func WithJob(job string) ApplyOption {
	return func(o *applyOptions) { o.job = job }
}

// DefaultReaderOptions returns the reader options every run starts from:
// integers and floats are detected, datetimes are not.
func DefaultReaderOptions() config.Options {
	return config.Options{
		parser.OptAutoDetectInt:      true,
		parser.OptAutoDetectFloat:    true,
		parser.OptAutoDetectDatetime: false,
	}
}

func newApplyOptions(ctx context.Context, opts []ApplyOption) applyOptions {
	term, _ := config.Config{}.Terminator()
	o := applyOptions{
		reader:     DefaultReaderOptions(),
		writer:     config.Options{},
		terminator: term,
		job:        DefaultJob,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = logging.FromContext(ctx)
	}
	return o
}

// Apply reads every record of the table at from, runs the rules over each in
// registration order and writes the results to to, replacing it. It returns
// the destination location.
//
// All records are read before anything is written, so from and to may be the
// same file. Resources opened for the run are released on every exit path.
func (s *SandPaper) Apply(ctx context.Context, from, to string, opts ...ApplyOption) (dst string, err error) {
	if s.err != nil {
		return "", s.err
	}
	o := newApplyOptions(ctx, opts)
	chain, err := s.chain()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	log := o.logger.With("run_id", uuid.NewString(), "sandpaper", s.Name())
	log.Info("apply: start", "from", from, "to", to, "rules", len(s.rules))

	sess := storage.NewSession()
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("release resources: %w", cerr)
			} else {
				log.Warn("apply: release resources", "error", cerr)
			}
		}
	}()

	begin := time.Now()
	out, err := s.transform(ctx, sess, chain, from, o)
	metrics.RecordStep(o.job, metrics.StepTransform, err, time.Since(begin))
	if err != nil {
		log.Error("apply: transform failed", "error", err)
		return "", err
	}

	start := time.Now()
	err = write(ctx, sess, to, out, o)
	metrics.RecordStep(o.job, metrics.StepWrite, err, time.Since(start))
	if err != nil {
		log.Error("apply: write failed", "error", err)
		return "", err
	}
	metrics.RecordRecords(o.job, metrics.KindWritten, int64(len(out)))

	log.Info("apply: done", "records", len(out), "elapsed", time.Since(begin))
	return to, nil
}

func (s *SandPaper) transform(ctx context.Context, sess *storage.Session, chain transformer.Chain, from string, o applyOptions) ([]*records.Record, error) {
	loc, backend, err := storage.Locate(from)
	if err != nil {
		return nil, fmt.Errorf("locate source: %w", err)
	}
	if o.sheet != "" {
		loc.Sheet = o.sheet
	}
	rr, err := backend.Open(ctx, sess, loc, storage.ReadOptions{Options: o.reader})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", from, err)
	}
	out, err := run(ctx, chain, rr, o.logger)
	metrics.RecordRecords(o.job, metrics.KindRead, int64(len(out)))
	return out, err
}

func write(ctx context.Context, sess *storage.Session, to string, recs []*records.Record, o applyOptions) error {
	loc, backend, err := storage.Locate(to)
	if err != nil {
		return fmt.Errorf("locate destination: %w", err)
	}
	if o.table != "" {
		loc.Sheet = o.table
	}
	wo := storage.WriteOptions{LineTerminator: o.terminator, Options: o.writer}
	if err := backend.Write(ctx, sess, loc, recs, wo); err != nil {
		return fmt.Errorf("write %s: %w", to, err)
	}
	return nil
}

// run drains rr through chain. On error it returns the records read so far.
func run(ctx context.Context, chain transformer.Chain, rr parser.RecordReader, log *slog.Logger) ([]*records.Record, error) {
	var out []*records.Record
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read record %d: %w", i, err)
		}
		res, err := chain.Apply(rec)
		if err != nil {
			return out, fmt.Errorf("record %d: %w", i, err)
		}
		if log.Enabled(ctx, slog.LevelDebug) {
			log.Debug("apply: record", "index", i, "record", res)
		}
		out = append(out, res)
	}
}

// Transform runs the rules over recs in memory and returns the results. recs
// may be modified.
func (s *SandPaper) Transform(ctx context.Context, recs []*records.Record) ([]*records.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	chain, err := s.chain()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	out, err := run(ctx, chain, parser.Slice(recs), logging.FromContext(ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}
