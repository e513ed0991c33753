package engine

import (
	"encoding/json"
	"fmt"
)

// Status is the four-valued traffic-light classification for a gate.
type Status string

const (
	StatusGreen Status = "GREEN"
	StatusAmber Status = "AMBER"
	StatusRed   Status = "RED"
	StatusGrey  Status = "GREY" // not applicable / not assessed
)

// rank orders statuses worst-first for composite comparisons. GREY is outside
// the ordering and handled explicitly by the aggregator.
func (s Status) rank() int {
	switch s {
	case StatusRed:
		return 0
	case StatusAmber:
		return 1
	case StatusGreen:
		return 2
	default:
		return 3
	}
}

// AtLeast reports whether s is no worse than min. GREY never satisfies any
// minimum.
func (s Status) AtLeast(min Status) bool {
	if s == StatusGrey {
		return false
	}
	return s.rank() >= min.rank()
}

// Severity of a finding.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityActionRequired
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityActionRequired:
		return "action_required"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "info":
		*s = SeverityInfo
	case "action_required":
		*s = SeverityActionRequired
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("engine: unknown severity %q", v)
	}
	return nil
}

// Finding is one issue raised by an evaluator.
type Finding struct {
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Remediation string   `json:"remediation,omitempty"`
}

// Result is the output of a single evaluator for one run.
type Result struct {
	EvaluatorID string             `json:"evaluatorId"`
	Score       float64            `json:"score"` // 0..100
	Status      Status             `json:"status"`
	Findings    []Finding          `json:"findings,omitempty"`
	SubScores   map[string]float64 `json:"subScores,omitempty"` // consumed by dependent evaluators
}

// ActionItems counts findings at or above action-required severity.
func (r Result) ActionItems() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity >= SeverityActionRequired {
			n++
		}
	}
	return n
}

// Results maps evaluator id to its computed result for the current run.
type Results map[string]Result

// Sub returns a named sub-score from an upstream result. The second return
// is false when the upstream result or sub-score is absent.
func (rs Results) Sub(evaluatorID, name string) (float64, bool) {
	r, ok := rs[evaluatorID]
	if !ok {
		return 0, false
	}
	v, ok := r.SubScores[name]
	return v, ok
}

// clampScore bounds a raw rubric score into [0,100].
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// bandStatus maps a percentage score onto the standard thresholds:
// >=95 GREEN, >=70 AMBER, else RED.
func bandStatus(score float64) Status {
	switch {
	case score >= 95:
		return StatusGreen
	case score >= 70:
		return StatusAmber
	default:
		return StatusRed
	}
}
