package leave

import "fmt"

type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeWarning OutcomeKind = "warning"
	OutcomeError   OutcomeKind = "error"
)

func (k OutcomeKind) rank() int {
	switch k {
	case OutcomeWarning:
		return 1
	case OutcomeError:
		return 2
	}
	return 0
}

type Outcome struct {
	ID       string      `json:"id"`
	Kind     OutcomeKind `json:"kind"`
	Message  string      `json:"message"`
	Warnings []string    `json:"warnings,omitempty"`
}

func success(id, msg string) Outcome {
	return Outcome{ID: id, Kind: OutcomeSuccess, Message: msg}
}

func warning(id, msg string) Outcome {
	return Outcome{ID: id, Kind: OutcomeWarning, Message: msg}
}

func failure(id, msg string) Outcome {
	return Outcome{ID: id, Kind: OutcomeError, Message: msg}
}

// warn downgrades a successful outcome and appends a follow-up problem.
func (o *Outcome) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
	if o.Kind == OutcomeSuccess {
		o.Kind = OutcomeWarning
	}
}

type Summary struct {
	Kind    OutcomeKind         `json:"kind"`
	Message string              `json:"message"`
	Counts  map[OutcomeKind]int `json:"counts"`
}

type BatchResult struct {
	Operation string    `json:"operation"`
	Outcomes  []Outcome `json:"outcomes"`
	Summary   Summary   `json:"summary"`
}

// Counts flattens the summary counts for metrics.
func (b BatchResult) Counts() map[string]int {
	out := make(map[string]int, len(b.Summary.Counts))
	for k, v := range b.Summary.Counts {
		out[string(k)] = v
	}
	return out
}

// foldBatch applies fn to each distinct id in order and collects the outcomes. One element's
// failure never stops its siblings.
func foldBatch(operation, noun, verb string, ids []string, fn func(id string) Outcome) BatchResult {
	seen := make(map[string]struct{}, len(ids))
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		outcomes = append(outcomes, fn(id))
	}
	return BatchResult{Operation: operation, Outcomes: outcomes, Summary: summarize(noun, verb, outcomes)}
}

func summarize(noun, verb string, outcomes []Outcome) Summary {
	s := Summary{Kind: OutcomeSuccess, Counts: map[OutcomeKind]int{}}
	for _, o := range outcomes {
		s.Counts[o.Kind]++
		if o.Kind.rank() > s.Kind.rank() {
			s.Kind = o.Kind
		}
	}
	ok := s.Counts[OutcomeSuccess]
	switch s.Kind {
	case OutcomeSuccess:
		s.Message = fmt.Sprintf("%d %s %s successfully", ok, noun, verb)
	default:
		s.Message = fmt.Sprintf("%d of %d %s %s; %d warning(s), %d error(s)",
			ok, len(outcomes), noun, verb, s.Counts[OutcomeWarning], s.Counts[OutcomeError])
	}
	return s
}
