package domain

import "slices"

// TrialSummary aggregates the non-ignored trials of an experiment. Mean, Min,
// Max and Median are zero when no trial counts.
type TrialSummary struct {
	Count              int     `json:"count"`
	Ignored            int     `json:"ignored"`
	Sum                float64 `json:"sum"`
	Mean               float64 `json:"mean"`
	Min                float64 `json:"min"`
	Max                float64 `json:"max"`
	Median             float64 `json:"median"`
	RequiredNumOfTrial int     `json:"requiredNumOfTrial"`
	Reached            bool    `json:"reached"`
}

// Summary computes statistics over the trials that are not ignored.
func (e *Experiment[R]) Summary() TrialSummary {
	s := TrialSummary{RequiredNumOfTrial: e.header.RequiredNumOfTrial}

	values := make([]float64, 0, len(e.trials))
	for _, t := range e.trials {
		if t.ignored {
			s.Ignored++
			continue
		}
		values = append(values, float64(t.result))
	}

	s.Count = len(values)
	s.Reached = s.Count >= s.RequiredNumOfTrial
	if s.Count == 0 {
		return s
	}

	slices.Sort(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	for _, v := range values {
		s.Sum += v
	}
	s.Mean = s.Sum / float64(s.Count)

	mid := s.Count / 2
	if s.Count%2 == 1 {
		s.Median = values[mid]
	} else {
		s.Median = values[mid-1] + (values[mid]-values[mid-1])/2
	}
	return s
}
