// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package processor

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"jsoncfg/tool/internal/jsonc"

	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
)

type Config struct {
	Patterns   []string
	Extensions []string
	Options    jsonc.Options
	// Write replaces each file with its stripped content instead of
	// returning the output.
	Write       bool
	Concurrency int
	// CachePath enables the content-hash cache in write mode.
	CachePath string
	Force     bool
}

type Result struct {
	Path    string
	Output  []byte
	Changed bool
	Skipped bool
}

type Summary struct {
	Results   []Result
	Processed int
	Changed   int
	Skipped   int
}

type Processor struct {
	config Config
	store  FileStore
}

func NewProcessor(config Config, store FileStore) *Processor {
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if store == nil {
		store = NewOSFileStore()
	}

	return &Processor{
		config: config,
		store:  store,
	}
}

// Run expands the configured patterns and processes every match.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	files, err := ExpandPatterns(p.config.Patterns, p.config.Extensions)
	if err != nil {
		return nil, err
	}
	if p.config.CachePath != "" {
		if files, err = withoutFile(files, p.config.CachePath); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %v", p.config.Patterns)
	}
	klog.V(3).Infof("Matched %d file(s)", len(files))

	return p.ProcessFiles(ctx, files)
}

// ProcessFiles strips files concurrently. Failures of single files do not
// stop the others; they are returned together with the partial summary.
func (p *Processor) ProcessFiles(ctx context.Context, files []string) (*Summary, error) {
	var cache *Cache
	if p.config.Write && p.config.CachePath != "" {
		var err error
		if cache, err = LoadCache(p.store, p.config.CachePath, p.config.Options); err != nil {
			return nil, err
		}
	}

	results := make([]*Result, len(files))
	errs := make([]error, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.config.Concurrency)
	for i, file := range files {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			result, err := p.processFile(file, cache)
			if err != nil {
				klog.Warningf("Fail to process %s: %s", file, err.Error())
				errs[i] = fmt.Errorf("%s: %w", file, err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, result := range results {
		if result == nil {
			continue
		}
		summary.Results = append(summary.Results, *result)
		if result.Skipped {
			summary.Skipped++
			continue
		}
		summary.Processed++
		if result.Changed {
			summary.Changed++
		}
	}

	if cache != nil {
		// cache save failures are not fatal
		if err := cache.Save(p.store, p.config.CachePath); err != nil {
			klog.Warningf("Fail to save cache: %s", err.Error())
		}
	}
	klog.V(1).Infof("Processed %d file(s), %d changed, %d skipped", summary.Processed, summary.Changed, summary.Skipped)

	return summary, utilerrors.NewAggregate(errs)
}

// withoutFile drops path from files, which are absolute.
func withoutFile(files []string, path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
	}

	kept := files[:0]
	for _, file := range files {
		if file != abs {
			kept = append(kept, file)
		}
	}

	return kept, nil
}

func (p *Processor) processFile(path string, cache *Cache) (*Result, error) {
	data, err := p.store.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if cache != nil && !p.config.Force && cache.Unchanged(path, data) {
		klog.V(5).Infof("Skip %s since it is not changed since the last run", path)
		return &Result{Path: path, Skipped: true}, nil
	}

	out := []byte(jsonc.Strip(string(data), &p.config.Options))
	result := &Result{
		Path:    path,
		Output:  out,
		Changed: !bytes.Equal(out, data),
	}

	if p.config.Write && result.Changed {
		if err := p.store.WriteFile(path, out); err != nil {
			return nil, err
		}
		klog.V(3).Infof("Stripped comments from %s", path)
	}
	if cache != nil {
		cache.Record(path, out)
	}

	return result, nil
}
