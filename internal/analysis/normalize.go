package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/jmerrifield20/synthscan/internal/media"
	"github.com/jmerrifield20/synthscan/pkg/client"
)

// ModelName identifies the backend model in synthesized details.
const ModelName = "RandomForest (DSP)"

// defaultPreviewPrefix is prepended to previews sent as bare base64.
const defaultPreviewPrefix = "data:image/png;base64,"

const (
	explanationAIGenerated = "The DSP pipeline detected significant high-frequency artifacts or temporal jitter."
	explanationReal        = "The file exhibits natural frequency distribution consistent with authentic media."
)

// Normalize converts a backend reply into a Result.
//
// Every optional field has a fallback, so the only failure is a verdict
// outside {REAL, AI-GENERATED}, which is reported as ErrUnknownVerdict
// rather than forwarded.
func Normalize(raw *client.RawResponse, fileName, declaredType string) (*Result, error) {
	if raw == nil {
		raw = &client.RawResponse{}
	}

	verdict, err := ParseVerdict(deref(raw.Verdict))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, deref(raw.Verdict))
	}

	details := deref(raw.Details)
	if details == "" {
		details = fmt.Sprintf("Model: %s | Input: %s", ModelName, fileName)
	}

	explanation := deref(raw.Explanation)
	if explanation == "" {
		explanation = defaultExplanation(verdict)
	}

	return &Result{
		OriginalPreview:  previewRef(raw.Original),
		ProcessedPreview: previewRef(raw.Processed),
		Verdict:          verdict,
		Confidence:       normalizeConfidence(raw.Confidence),
		Details:          details,
		Explanation:      explanation,
		Kind:             media.KindOf(declaredType),
	}, nil
}

func defaultExplanation(v Verdict) string {
	if v == VerdictAIGenerated {
		return explanationAIGenerated
	}
	return explanationReal
}

// normalizeConfidence returns 0 for a missing or non-finite score and
// clamps finite scores into [0,1].
func normalizeConfidence(c *float64) float64 {
	if c == nil || math.IsNaN(*c) || math.IsInf(*c, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, *c))
}

// previewRef turns a preview value into a data URI. Values that already
// carry a data: prefix are kept as they are.
func previewRef(p *string) string {
	v := deref(p)
	if v == "" || strings.HasPrefix(v, "data:") {
		return v
	}
	return defaultPreviewPrefix + v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
