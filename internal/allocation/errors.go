package allocation

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("kayıt bulunamadı")

// ValidationError: hatalı girdi, hiçbir yazma yapılmadan döner
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type ShortageLine struct {
	GroupName string `json:"group_name"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// ShortageError carries per-line required/available detail for every line
// that could not be covered across all tiers.
type ShortageError struct {
	Lines []ShortageLine
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s (gerekli %d, mevcut %d)", l.GroupName, l.Required, l.Available))
	}
	return "yetersiz arz: " + strings.Join(parts, ", ")
}

// ConflictError: tekrarlanan anahtar veya kilitli/terminal kayıt değişikliği
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ConsistencyError describes an invariant violation that was clamped to a
// safe value. It is reported alongside results, not returned as a failure.
type ConsistencyError struct {
	GroupName string `json:"group_name"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
	Message   string `json:"message"`
}

func (e *ConsistencyError) Error() string { return e.Message }
