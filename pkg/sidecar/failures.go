package sidecar

import (
	"fmt"
	"strings"
	"time"

	"github.com/tstromberg/picmeta/pkg/safeio"
	"github.com/tstromberg/picmeta/pkg/schema"
)

// FailureLog is an append-only record of sidecars that failed validation.
type FailureLog struct {
	Path string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Record appends one line: timestamp, file and message, tab separated.
func (l *FailureLog) Record(file, msg string) error {
	if l == nil || l.Path == "" {
		return nil
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	msg = strings.ReplaceAll(msg, "\n", " ")
	line := fmt.Sprintf("%s\t%s\t%s", now().UTC().Format(time.RFC3339), file, msg)
	if err := safeio.AppendLine(l.Path, line); err != nil {
		return fmt.Errorf("append %s: %w", l.Path, err)
	}
	return nil
}

// ValidateFile validates the sidecar at file, recording any failure to log.
// A validation failure is not an error: it returns false with a nil error.
func ValidateFile(v *schema.Validator, file string, log *FailureLog) (bool, error) {
	doc, err := safeio.ReadJSON(file)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", file, err)
	}

	res, err := v.Validate(doc)
	if err != nil {
		return false, err
	}
	if res.Valid {
		return true, nil
	}

	if err := log.Record(file, res.Error()); err != nil {
		return false, err
	}
	return false, nil
}
