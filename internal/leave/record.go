// Package leave defines the leave-request record produced by document
// extraction and consumed by batch analysis.
package leave

import "strings"

// UnknownIdentity is the shared identity for records that carry neither a
// roll number nor a student name.
const UnknownIdentity = "unknown"

// Display fallbacks for missing fields.
const (
	UnknownName   = "Unknown"
	NotApplicable = "N/A"
)

// Record is a single extracted leave request.
//
// Optional fields are pointers so that an absent field can be told apart
// from an empty one. Reason is required by analysis: a nil Reason means the
// field was never extracted.
type Record struct {
	StudentName *string `json:"student_name"`
	RollNumber  *string `json:"roll_number"`
	Date        *string `json:"date"`
	Reason      *string `json:"reason"`
	RawText     string  `json:"raw_text,omitempty"`
}

// String returns a pointer to s. Useful when building records by hand.
func String(s string) *string {
	return &s
}

// HasReason reports whether the reason field is present (possibly empty).
func (r Record) HasReason() bool {
	return r.Reason != nil
}

// ReasonText returns the reason, or "" when absent.
func (r Record) ReasonText() string {
	return deref(r.Reason)
}

// DateText returns the date, or "" when absent.
func (r Record) DateText() string {
	return deref(r.Date)
}

// Identity returns the grouping key for the submitter: roll number if
// present, else student name, else UnknownIdentity.
func (r Record) Identity() string {
	if roll := strings.TrimSpace(deref(r.RollNumber)); roll != "" {
		return roll
	}
	if name := strings.TrimSpace(deref(r.StudentName)); name != "" {
		return name
	}
	return UnknownIdentity
}

// DisplayName returns the student name or "Unknown".
func (r Record) DisplayName() string {
	return orDefault(r.StudentName, UnknownName)
}

// DisplayRoll returns the roll number or "N/A".
func (r Record) DisplayRoll() string {
	return orDefault(r.RollNumber, NotApplicable)
}

// DisplayDate returns the date or "N/A".
func (r Record) DisplayDate() string {
	return orDefault(r.Date, NotApplicable)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
