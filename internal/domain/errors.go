package domain

import "fmt"

// NormalizationError reports one source row whose mandatory fields could not
// be parsed. The row is dropped and counted; the run continues.
type NormalizationError struct {
	Table  string `json:"table"`
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s line %d: %s: %s", e.Table, e.Line, e.Field, e.Reason)
}

// SourceUnavailableError is fatal for the run: a mandatory table could not
// be fetched from the tabular source. No partial metrics are emitted.
type SourceUnavailableError struct {
	Table string
	Err   error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: table %q: %v", e.Table, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// MatchAmbiguityError records a composite-key collision that could not be
// resolved by the configured policy. The transaction involved is classified
// Unsettled conservatively and the run continues.
type MatchAmbiguityError struct {
	Channel    Channel `json:"channel"`
	Key        string  `json:"key"`
	Candidates int     `json:"candidates"`
}

func (e *MatchAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous match on %s: key %q has %d candidates", e.Channel, e.Key, e.Candidates)
}

// DataIntegrityError is fatal for the run: the source data violates an
// invariant the engine refuses to repair silently (for example the same
// transaction reference landing in two channel partitions).
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return "data integrity: " + e.Reason
}
