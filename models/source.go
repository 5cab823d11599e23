package models

// SourceState tags the outcome of acquiring one source.
type SourceState int

const (
	// Unavailable means the source failed to load; there is no table.
	Unavailable SourceState = iota
	// Empty means the source was queried but produced no rows.
	Empty
	// Present means the source produced at least one row.
	Present
)

func (s SourceState) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case Empty:
		return "empty"
	case Present:
		return "present"
	}
	return "unknown"
}

// SourceResult is the tagged result every acquisition step yields.
type SourceResult struct {
	Name  string
	State SourceState
	Table *Table
	Err   error
}

func UnavailableSource(name string, err error) SourceResult {
	return SourceResult{Name: name, State: Unavailable, Err: err}
}

func EmptySource(name string) SourceResult {
	return SourceResult{Name: name, State: Empty}
}

func PresentSource(name string, t *Table) SourceResult {
	return SourceResult{Name: name, State: Present, Table: t}
}

// FromTable classifies a loader's return values: an error is Unavailable,
// a nil or row-less table is Empty, anything else is Present.
func FromTable(name string, t *Table, err error) SourceResult {
	if err != nil {
		return UnavailableSource(name, err)
	}
	if t.Len() == 0 {
		return EmptySource(name)
	}
	return PresentSource(name, t)
}

// IsPresent reports whether the result carries rows to join.
func (r SourceResult) IsPresent() bool {
	return r.State == Present && r.Table != nil
}
