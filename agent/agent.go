// Package agent contains the pipeline stages and the envelope types they
// exchange. Every stage returns a structured Output; confidence 0.0 with an
// empty result is the canonical failure signal, and no stage ever lets an
// error escape its Run boundary.
package agent

import "strconv"

// Input is passed between stages. Query is the original user question and
// is never mutated; Context is the upstream stage's textual output.
type Input struct {
	Query    string
	Context  string
	Metadata map[string]string
}

// Output is one stage's result. Metadata always carries a "source" tag
// naming the producing stage and, on failure, an "error" cause.
type Output struct {
	Result     string            `json:"result"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata"`
}

// Failed reports the canonical stage-failure signal.
func (o Output) Failed() bool {
	return o.Confidence == 0.0
}

func failure(source, cause string) Output {
	return Output{
		Result:     "",
		Confidence: 0.0,
		Metadata: map[string]string{
			"source": source,
			"error":  cause,
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func itoa(n int) string { return strconv.Itoa(n) }
