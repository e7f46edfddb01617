package media

import (
	"errors"

	"github.com/samber/lo"
)

// MaxFileSize is the largest admissible file, inclusive.
const MaxFileSize int64 = 50 * 1024 * 1024

// AllowedTypes lists the declared types the detection backend accepts.
var AllowedTypes = []string{"image/jpeg", "image/png", "video/mp4"}

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("file exceeds the maximum size")
)

// Reason explains why a file was rejected.
type Reason string

const (
	ReasonUnsupportedType Reason = "unsupported_type"
	ReasonTooLarge        Reason = "too_large"
)

// Message is the user-facing text for a rejection.
func (r Reason) Message() string {
	switch r {
	case ReasonUnsupportedType:
		return "Invalid file type. Please upload JPG, PNG, or MP4."
	case ReasonTooLarge:
		return "File is too large. Maximum size is 50MB."
	default:
		return ""
	}
}

// Verdict is the outcome of an admission check. Reason is empty when the
// file was accepted.
type Verdict struct {
	Accepted bool
	Reason   Reason
}

// Err returns nil for an accepted file and the matching sentinel otherwise.
func (v Verdict) Err() error {
	switch {
	case v.Accepted:
		return nil
	case v.Reason == ReasonTooLarge:
		return ErrTooLarge
	default:
		return ErrUnsupportedType
	}
}

// Validate decides whether a file with the given declared type and byte
// size may be submitted. The type is checked first, so a file that fails
// both checks is reported as an unsupported type.
func Validate(declaredType string, size int64) Verdict {
	if !lo.Contains(AllowedTypes, declaredType) {
		return Verdict{Reason: ReasonUnsupportedType}
	}
	if size > MaxFileSize {
		return Verdict{Reason: ReasonTooLarge}
	}
	return Verdict{Accepted: true}
}

// ValidateFile is Validate applied to a File.
func ValidateFile(f File) Verdict {
	return Validate(f.Type, f.Size)
}
