// Package validate performs client-facing checks on a selected file
// before it is spooled and relayed. Enforcement here is advisory; the
// conversion backend remains authoritative for its own limits.
package validate

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// ErrNoFile is returned when validation runs without a selection.
var ErrNoFile = errors.New("validate: no file selected")

// warnFraction is the proportion of the limit at which the usage
// indicator switches to the warning tier.
const warnFraction = 0.8

// FileInfo describes a selected file. It is ephemeral: created on
// selection or drop, replaced whenever a new file is chosen.
type FileInfo struct {
	Name        string
	SizeBytes   int64
	ContentType string
}

// Limits configures validation. MaxBytes comes from deployment
// configuration; the original service varies it by target (200MB on
// the VPS variant), so it is never a constant here.
type Limits struct {
	// MaxBytes is the maximum accepted file size. Zero means no limit.
	MaxBytes int64

	// Extensions is the lowercase allowlist of file extensions without
	// the leading dot. Empty means all extensions are accepted.
	Extensions []string
}

// Report is the accepted-file summary rendered as contextual feedback
// next to the submit control.
type Report struct {
	Name string

	// SizeMB is the file size in megabytes rounded to two decimals.
	SizeMB float64

	// LimitMB is the configured limit in megabytes, zero when unlimited.
	LimitMB float64

	// Fraction is SizeBytes over MaxBytes, in [0, 1]. Zero when the
	// limit is unset.
	Fraction float64

	// Warn is set when usage exceeds 80% of the limit.
	Warn bool
}

// Label returns the submit-control caption for a pending file.
func (r Report) Label() string {
	return fmt.Sprintf("%s (%.2f MB)", r.Name, r.SizeMB)
}

// SizeError reports a rejected oversized file. Its message names both
// the actual size and the configured limit.
type SizeError struct {
	SizeMB  float64
	LimitMB float64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("file is %.2f MB, which exceeds the %.2f MB limit", e.SizeMB, e.LimitMB)
}

// ExtensionError reports a file type outside the allowlist.
type ExtensionError struct {
	Extension string
	Allowed   []string
}

func (e *ExtensionError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("file type %s is not supported; allowed types: %s",
		ext, strings.Join(e.Allowed, ", "))
}

// Check validates a selected file against the configured limits.
// On rejection the caller must clear the selection and must not
// submit. Check is deterministic: re-validating the same file yields
// the same Report and the same error.
func Check(file FileInfo, limits Limits) (Report, error) {
	if file.Name == "" {
		return Report{}, ErrNoFile
	}

	if len(limits.Extensions) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Name), "."))
		if !contains(limits.Extensions, ext) {
			return Report{}, &ExtensionError{Extension: ext, Allowed: limits.Extensions}
		}
	}

	sizeMB := roundMB(file.SizeBytes)
	if limits.MaxBytes > 0 && file.SizeBytes > limits.MaxBytes {
		return Report{}, &SizeError{SizeMB: sizeMB, LimitMB: roundMB(limits.MaxBytes)}
	}

	report := Report{
		Name:   file.Name,
		SizeMB: sizeMB,
	}
	if limits.MaxBytes > 0 {
		report.LimitMB = roundMB(limits.MaxBytes)
		report.Fraction = float64(file.SizeBytes) / float64(limits.MaxBytes)
		report.Warn = report.Fraction > warnFraction
	}
	return report, nil
}

// roundMB converts bytes to megabytes rounded to two decimals.
func roundMB(bytes int64) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return math.Round(mb*100) / 100
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
