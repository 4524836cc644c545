package pipeline

// Reason codes for skipped units. Every skip carries one; a run never
// silently drops a unit.
const (
	ReasonInvocation = "invocation"
	ReasonRefusal    = "refusal"
	ReasonMalformed  = "malformed"
	ReasonWrite      = "write"
	ReasonUnknown    = "error"
)

// Skip records one unit left unconverted and why.
type Skip struct {
	Name   string
	Reason string
	Err    error
}

// Stats reports the outcome of a run.
type Stats struct {
	Total       int
	Converted   int
	AlreadyDone int
	Skipped     []Skip
}

// Clean reports whether the run left no unit behind.
func (s *Stats) Clean() bool {
	return len(s.Skipped) == 0
}
