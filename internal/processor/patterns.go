// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"k8s.io/apimachinery/pkg/util/sets"
)

var DefaultExtensions = []string{".json", ".jsonc"}

// ExpandPatterns resolves file paths and doublestar globs into a sorted list
// of absolute paths. Glob hits are filtered by extension; paths named
// literally are always kept and must exist.
func ExpandPatterns(patterns []string, extensions []string) ([]string, error) {
	allowed := sets.New[string]()
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed.Insert(ext)
	}

	matches := sets.New[string]()
	for _, pattern := range patterns {
		pattern = filepath.FromSlash(pattern)

		if !hasGlobMeta(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", pattern, err)
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%s is a directory, use a glob such as %s", pattern, filepath.Join(pattern, "**", "*.json"))
			}
			if err := insertAbs(matches, pattern); err != nil {
				return nil, err
			}
			continue
		}

		hits, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand glob %q: %w", pattern, err)
		}
		for _, hit := range hits {
			if !isRegularFile(hit) {
				continue
			}
			if allowed.Len() > 0 && !allowed.Has(strings.ToLower(filepath.Ext(hit))) {
				continue
			}
			if err := insertAbs(matches, hit); err != nil {
				return nil, err
			}
		}
	}

	return sets.List(matches), nil
}

func insertAbs(set sets.Set[string], path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
	}
	set.Insert(abs)

	return nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
