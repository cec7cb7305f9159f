// Package refresh fetches the configured calendar sources and transcodes
// each of them into a value tree.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"icstable/internal/config"
	"icstable/internal/ics"
	appLog "icstable/internal/log"
	"icstable/internal/metrics"
	"icstable/internal/transcode"
	"icstable/internal/value"
)

// Output is the transcoded form of one source.
type Output struct {
	Source    ics.Source
	Value     value.Value
	Summary   transcode.Summary
	FromCache bool
}

// Runner ties a fetcher to the transcoder.
type Runner struct {
	fetcher *ics.Fetcher
	strict  bool
}

func NewRunner(fetcher *ics.Fetcher, strict bool) *Runner {
	return &Runner{fetcher: fetcher, strict: strict}
}

// SourcesFromConfig converts configured sources, skipping those without URL.
func SourcesFromConfig(cfg *config.Config) []ics.Source {
	in := cfg.SourcesWithURL()
	out := make([]ics.Source, 0, len(in))
	for _, s := range in {
		out = append(out, ics.Source{ID: s.ID, URL: s.URL})
	}
	return out
}

// Run fetches and transcodes every source. Fetch failures are returned in
// the error slice; parse failures stay inside each output value.
func (r *Runner) Run(ctx context.Context, sources []ics.Source, origin string) ([]Output, []error) {
	fetched, errs := r.fetcher.FetchAll(ctx, sources)

	outs := make([]Output, 0, len(fetched))
	for _, res := range fetched {
		start := time.Now()
		head := value.Span{Start: 0, End: len(res.Body)}
		// Feeds are served as RFC 5545 files, so folding is honoured.
		v := transcode.FromICS(string(res.Body), head, ics.Options{Folded: true, Strict: r.strict})
		sum := transcode.Summarize(v)
		metrics.Observe(origin, sum, time.Since(start))

		appLog.Info("source transcoded",
			"id", res.Source.ID,
			"documents", sum.Documents,
			"failed", sum.Failed,
			"from_cache", res.FromCache,
		)
		outs = append(outs, Output{
			Source:    res.Source,
			Value:     v,
			Summary:   sum,
			FromCache: res.FromCache,
		})
	}
	return outs, errs
}

// WriteOutputs writes <dir>/<source id>.<format> for each output,
// replacing files atomically.
func WriteOutputs(dir string, outs []Output, format value.Format) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var errs []error
	for _, o := range outs {
		name := config.FileStem(o.Source.ID) + "." + string(format)
		if err := writeOne(filepath.Join(dir, name), o.Value, format); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func writeOne(path string, v value.Value, format value.Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".icstable-out-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := value.Encode(tmp, v, format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
