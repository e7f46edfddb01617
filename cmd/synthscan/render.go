package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/jmerrifield20/synthscan/internal/analysis"
	"github.com/jmerrifield20/synthscan/internal/media"
	"github.com/jmerrifield20/synthscan/internal/risk"
)

var tierColors = map[risk.Tier]*color.Color{
	risk.Safe:    color.New(color.FgGreen, color.Bold),
	risk.Warning: color.New(color.FgYellow, color.Bold),
	risk.Danger:  color.New(color.FgRed, color.Bold),
}

func renderText(w io.Writer, st analysis.State) error {
	if st.Phase == analysis.PhaseFailed {
		_, err := fmt.Fprintf(w, "%s %s\n", color.RedString("Analysis failed:"), st.Err.Message())
		return err
	}
	if st.Phase != analysis.PhaseSucceeded {
		_, err := fmt.Fprintln(w, st.String())
		return err
	}

	res := st.Result
	c, ok := tierColors[st.Risk]
	if !ok {
		c = color.New(color.Bold)
	}

	fmt.Fprintf(w, "%s  %s\n", c.Sprint(res.Verdict), c.Sprintf("[%s risk]", st.Risk))
	fmt.Fprintf(w, "AI probability: %s\n\n", c.Sprintf("%.1f%%", res.Confidence*100))
	fmt.Fprintln(w, res.Explanation)
	fmt.Fprintf(w, "> %s\n\n", res.Details)

	preview := "none"
	if res.ProcessedPreview != "" {
		preview = "included (use --format json)"
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"Filename", st.File.Name})
	table.Append([]string{"Size", media.FormatSize(st.File.Size)})
	table.Append([]string{"Type", st.File.Type})
	table.Append([]string{"Model", analysis.ModelName})
	table.Append([]string{res.PreviewLabel(), preview})
	table.Render()
	return nil
}

type jsonFile struct {
	Name string     `json:"name"`
	Type string     `json:"type"`
	Size int64      `json:"size"`
	Kind media.Kind `json:"kind"`
}

type jsonReport struct {
	Phase   analysis.Phase   `json:"phase"`
	File    *jsonFile        `json:"file,omitempty"`
	Result  *analysis.Result `json:"result,omitempty"`
	Risk    risk.Tier        `json:"risk,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

func renderJSON(w io.Writer, st analysis.State) error {
	report := jsonReport{
		Phase:   st.Phase,
		Result:  st.Result,
		Risk:    st.Risk,
		Error:   string(st.Err),
		Message: st.Err.Message(),
	}
	if st.File != nil {
		report.File = &jsonFile{
			Name: st.File.Name,
			Type: st.File.Type,
			Size: st.File.Size,
			Kind: st.File.Kind(),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
