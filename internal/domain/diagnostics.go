package domain

// Diagnostics aggregates the recovered (non-fatal) errors of one run. It is
// surfaced alongside RunMetrics so a caller can tell a clean run from one
// that dropped rows or hit ambiguous matches. It deliberately carries no
// run identifier: two runs over identical source data must serialize
// identically.
type Diagnostics struct {
	DroppedRows         int                  `json:"dropped_rows"`
	ExcludedUnsuccess   int                  `json:"excluded_unsuccessful"`
	ExcludedOutOfWindow int                  `json:"excluded_out_of_window"`
	UnclassifiedCount   int                  `json:"unclassified_count"`
	Ambiguities         int                  `json:"match_ambiguities"`
	RowErrors           []NormalizationError  `json:"row_errors,omitempty"`
	AmbiguityErrors     []MatchAmbiguityError `json:"ambiguity_errors,omitempty"`
}

// AddRowError counts a dropped row and retains its detail for the report.
func (d *Diagnostics) AddRowError(e *NormalizationError) {
	d.DroppedRows++
	d.RowErrors = append(d.RowErrors, *e)
}

// AddAmbiguity counts an unresolved match collision.
func (d *Diagnostics) AddAmbiguity(e *MatchAmbiguityError) {
	d.Ambiguities++
	d.AmbiguityErrors = append(d.AmbiguityErrors, *e)
}
