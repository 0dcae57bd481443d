package faults

import "encoding/json"

// Failure is one isolated, non-fatal problem recorded during a run.
type Failure struct {
	Path  string
	Phase string
	Kind  string
	Err   error
}

// NewFailure records err against path, deriving the kind from the marker.
func NewFailure(phase, path string, err error) Failure {
	return Failure{Path: path, Phase: phase, Kind: Kind(err), Err: err}
}

// Message returns the error text, or an empty string for a nil error.
func (f Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path    string `json:"path"`
		Phase   string `json:"phase"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{f.Path, f.Phase, f.Kind, f.Message()})
}
