// Package risk turns a synthetic-origin confidence score into the discrete
// tier the presentation layer colours its verdict with.
package risk

// Tier is a presentation bucket derived from a confidence score.
type Tier string

const (
	Safe    Tier = "safe"
	Warning Tier = "warning"
	Danger  Tier = "danger"
)

// Lower bounds of the higher tiers. Each bound belongs to the tier above it.
const (
	WarningThreshold = 0.30
	DangerThreshold  = 0.60
)

// Classify maps a confidence in [0,1] to its tier:
//
//	[0.00, 0.30) → safe
//	[0.30, 0.60) → warning
//	[0.60, 1.00] → danger
func Classify(confidence float64) Tier {
	switch {
	case confidence >= DangerThreshold:
		return Danger
	case confidence >= WarningThreshold:
		return Warning
	default:
		return Safe
	}
}

// Rank orders tiers from least to most severe. Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case Safe:
		return 0
	case Warning:
		return 1
	case Danger:
		return 2
	default:
		return -1
	}
}

func (t Tier) String() string { return string(t) }
