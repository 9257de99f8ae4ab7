// Package scrapeerr defines the error taxonomy shared across the scraping
// pipeline. Each kind is a sentinel wrapped with context via
// fmt.Errorf("...: %w", ...), so callers match with errors.Is against the
// sentinels below rather than type assertions.
package scrapeerr

import "errors"

var (
	// ErrNetwork marks transport or HTTP failure after retries are exhausted.
	ErrNetwork = errors.New("network error")
	// ErrParse marks a selector/normalizer failure confined to one field.
	ErrParse = errors.New("parse error")
	// ErrCacheCorruption marks an unreadable persisted cache file.
	ErrCacheCorruption = errors.New("cache corruption")
	// ErrExclusionSkip is informational: a URL matched the exclusion policy.
	ErrExclusionSkip = errors.New("excluded by policy")
	// ErrValidation marks a QC Gate violation surfaced in the errors bucket,
	// never raised as a Go error — defined here only so callers share one
	// vocabulary when formatting ErrorRecord.detail strings.
	ErrValidation = errors.New("validation issue")
	// ErrCancelled propagates a run-wide cancellation request.
	ErrCancelled = errors.New("run cancelled")
)
