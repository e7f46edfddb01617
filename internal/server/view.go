package server

import (
	"github.com/jmerrifield20/synthscan/internal/analysis"
	"github.com/jmerrifield20/synthscan/internal/media"
	"github.com/jmerrifield20/synthscan/internal/risk"
)

// stateView is the JSON form of an analysis.State.
type stateView struct {
	Phase      analysis.Phase   `json:"phase"`
	Submission uint64           `json:"submission,omitempty"`
	File       *fileView        `json:"file,omitempty"`
	Result     *analysis.Result `json:"result,omitempty"`
	Risk       risk.Tier        `json:"risk,omitempty"`
	Error      *errorView       `json:"error,omitempty"`
}

type fileView struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Size      int64      `json:"size"`
	SizeHuman string     `json:"size_human"`
	Kind      media.Kind `json:"kind"`
}

type errorView struct {
	Kind    analysis.ErrorKind `json:"kind"`
	Message string             `json:"message"`
}

func newStateView(s analysis.State) stateView {
	v := stateView{
		Phase:      s.Phase,
		Submission: s.Submission,
		Result:     s.Result,
		Risk:       s.Risk,
	}
	if s.File != nil {
		v.File = &fileView{
			Name:      s.File.Name,
			Type:      s.File.Type,
			Size:      s.File.Size,
			SizeHuman: media.FormatSize(s.File.Size),
			Kind:      s.File.Kind(),
		}
	}
	if s.Err != analysis.ErrorNone {
		v.Error = &errorView{Kind: s.Err, Message: s.Err.Message()}
	}
	return v
}
