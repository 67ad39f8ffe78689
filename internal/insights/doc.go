// Package insights compares church activity across two equal time windows
// and turns the changes into short, human-readable observations.
//
// Thresholds and message templates live in a YAML table (an embedded
// default, optionally overridden from disk and hot-reloaded with a
// Watcher). Messages use positional arguments so a template can reorder
// or omit them:
//
//	%[1]s metric label
//	%[2]s change, e.g. +12.5%
//	%[3]d window length in days
//	%[4]s current value
package insights
