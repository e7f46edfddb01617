// Package analysis owns the lifecycle of a single media analysis: it submits
// an admitted file to the detection backend, normalizes the reply into a
// Result and tracks the live state for presentation.
package analysis

import (
	"errors"
	"strings"

	"github.com/jmerrifield20/synthscan/internal/media"
)

// Verdict is the backend's binary authenticity call.
type Verdict string

const (
	VerdictReal        Verdict = "REAL"
	VerdictAIGenerated Verdict = "AI-GENERATED"
)

// ErrUnknownVerdict is returned when the backend verdict is missing or not
// one of the two recognised values.
var ErrUnknownVerdict = errors.New("unrecognised verdict")

// ParseVerdict accepts the wire literals REAL and AI-GENERATED, ignoring
// case and '-', '_' or space separators.
func ParseVerdict(s string) (Verdict, error) {
	key := strings.ToUpper(strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.TrimSpace(s)))
	switch key {
	case "REAL":
		return VerdictReal, nil
	case "AIGENERATED":
		return VerdictAIGenerated, nil
	default:
		return "", ErrUnknownVerdict
	}
}

// Result is the canonical outcome of one completed analysis. It is built
// once by Normalize and never modified afterwards.
type Result struct {
	// OriginalPreview is a data URI of the input as the backend saw it.
	// Empty when the backend sent none.
	OriginalPreview string `json:"original_preview,omitempty"`
	// ProcessedPreview is a data URI of the frequency heatmap (images) or
	// motion consistency plot (video).
	ProcessedPreview string  `json:"processed_preview"`
	Verdict          Verdict `json:"verdict"`
	// Confidence is the probability of synthetic origin, in [0,1].
	Confidence  float64    `json:"confidence"`
	Details     string     `json:"details"`
	Explanation string     `json:"explanation"`
	Kind        media.Kind `json:"kind"`
}

// PreviewLabel names the processed preview for display.
func (r *Result) PreviewLabel() string {
	if r.Kind == media.KindVideo {
		return "Motion Consistency Plot"
	}
	return "Frequency Heatmap"
}
