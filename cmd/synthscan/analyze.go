package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/synthscan/internal/analysis"
	"github.com/jmerrifield20/synthscan/internal/media"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyse a JPG, PNG or MP4 file for signs of AI generation",
	Long: `Analyze uploads one file to the detection backend and prints its verdict.

Files are checked locally first: only JPG, PNG and MP4 up to 50MB are sent.

  synthscan analyze portrait.png
  synthscan analyze --format json clip.mp4`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "Output format: text or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "text" && analyzeFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", analyzeFormat)
	}

	f, err := media.FromPath(args[0])
	if err != nil {
		return err
	}
	if verdict := media.ValidateFile(f); !verdict.Accepted {
		return fmt.Errorf("%s: %s", f.Name, verdict.Reason.Message())
	}

	c, err := newBackendClient()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	orch := analysis.New(c, logger)
	id := orch.Submit(ctx, f)
	if analyzeFormat == "text" {
		fmt.Fprintf(os.Stderr, "Analyzing %s (%s)...\n", f.Name, media.FormatSize(f.Size))
	}

	st, err := orch.Wait(ctx, id)
	if err != nil {
		return fmt.Errorf("wait for analysis: %w", err)
	}

	switch analyzeFormat {
	case "json":
		err = renderJSON(os.Stdout, st)
	default:
		err = renderText(os.Stdout, st)
	}
	if err != nil {
		return err
	}
	if st.Phase == analysis.PhaseFailed {
		return errReported
	}
	return nil
}
