package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultSettleDelay is how long a file must stay unchanged before it is
// reported.
const DefaultSettleDelay = 500 * time.Millisecond

// Options configures the watcher.
type Options struct {
	IgnorePatterns []string
	SettleDelay    time.Duration
	IgnoreHidden   bool
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}

	// nil means unset; an explicit empty slice keeps IgnoreHidden as given.
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.part",
			"*.crdownload",
			"Thumbs.db",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore reports whether rel, a path relative to a watched root, is
// hidden or matches an ignore pattern. In-flight object store writes use
// hidden temp names and are skipped here.
func (o *Options) shouldIgnore(rel string) bool {
	if o.IgnoreHidden {
		for _, part := range strings.Split(filepath.Clean(rel), string(filepath.Separator)) {
			if strings.HasPrefix(part, ".") && part != "." && part != ".." {
				return true
			}
		}
	}

	base := filepath.Base(rel)
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
