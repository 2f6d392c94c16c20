package types

// SpecFailure describes a single failing assertion within a spec file.
type SpecFailure struct {
	Title string `json:"title" yaml:"title"`
	Err   string `json:"err,omitempty" yaml:"err,omitempty"`
}

// SpecResult is the normalized outcome of running one test file.
// Results from both plugin contracts (batch and per-file) are reduced
// to this shape.
type SpecResult struct {
	FilePath string        `json:"specFile" yaml:"specFile"`
	Pass     bool          `json:"pass" yaml:"pass"`
	Tests    int           `json:"tests,omitempty" yaml:"tests,omitempty"`
	Failures []SpecFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// AllPassing reports whether every result in the list passes.
func AllPassing(results []SpecResult) bool {
	for _, result := range results {
		if !result.Pass {
			return false
		}
	}
	return true
}
