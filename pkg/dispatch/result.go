package dispatch

import (
	"github.com/offlinefirst/deskpilot/pkg/textsearch"
	"github.com/offlinefirst/deskpilot/pkg/vision"
)

// Result is the sealed outcome of one dispatched action. Input actions with no
// payload to report return Done.
type Result interface {
	result()
}

// Done reports successful completion with nothing to return.
type Done struct{}

// Frame carries captured screen bytes.
type Frame struct {
	Data   []byte `json:"data"`
	Format string `json:"format"`
}

// Position reports the pointer location.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FileData carries bytes read from the host.
type FileData struct {
	Data []byte `json:"data"`
}

// Recognition wraps a vision result returned by an ocr action.
type Recognition struct {
	vision.Result
}

// TextMatches reports the outcome of a find_text action.
type TextMatches struct {
	Found   bool               `json:"found"`
	Matches []textsearch.Match `json:"matches,omitempty"`
}

// AugmentedFrame is a capture with independent optional enhancements. A nil
// enhancement was either not requested or failed; failures are listed in
// Diagnostics.
type AugmentedFrame struct {
	Frame       Frame                `json:"frame"`
	Text        *vision.Result       `json:"text,omitempty"`
	Regions     *vision.RegionResult `json:"regions,omitempty"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}

func (Done) result()           {}
func (Frame) result()          {}
func (Position) result()       {}
func (FileData) result()       {}
func (Recognition) result()    {}
func (TextMatches) result()    {}
func (AugmentedFrame) result() {}
