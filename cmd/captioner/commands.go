package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/captions"
	"github.com/cdaprod/captioner/internal/pipeline"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var modelSize string
	var maxChars int

	cmd := &cobra.Command{
		Use:   "generate <project> <video-rel-path>",
		Short: "Transcribe a project video and write its caption artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-chars") && maxChars < 1 {
				return apperr.Validation("max-chars must be at least 1")
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			paths, err := svc.Generate(cmd.Context(), pipeline.Request{
				Project:      args[0],
				VideoRelPath: args[1],
				ModelSize:    modelSize,
				MaxChars:     maxChars,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), paths)
		},
	}
	cmd.Flags().StringVar(&modelSize, "model", "", "Whisper model size (default from config)")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Maximum characters per caption line (default from config)")
	return cmd
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <project> <video-rel-path>",
		Short: "Show the artifact set for the current bytes of a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			paths, err := svc.Lookup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), paths)
		},
	}
}

func newDeriveURLCommand(ctx *commandContext) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "derive-url <media-url>",
		Short: "Print the SRT URL a media URL maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := ctx.resolver(mode)
			if err != nil {
				return err
			}
			srtURL, err := resolver.SRTURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), srtURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "SRT map mode: side_by_side or captions_dir (default from config)")
	return cmd
}

func newCuesCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cues <media-url>",
		Short: "Fetch and list the cues for a media URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := ctx.resolver(mode)
			if err != nil {
				return err
			}
			srtURL, decoded, err := resolver.Cues(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{"media_url": args[0], "srt_url": srtURL, "cues": decoded})
			}
			if len(decoded) == 0 {
				fmt.Fprintf(out, "No cues at %s\n", srtURL)
				return nil
			}
			rows := make([][]string, 0, len(decoded))
			for i, cue := range decoded {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					captions.FormatMillis(cue.StartMs),
					captions.FormatMillis(cue.EndMs),
					strings.ReplaceAll(cue.Text, "\n", " / "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "Text"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "SRT map mode (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newActiveCommand(ctx *commandContext) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "active <media-url> <t-ms>",
		Short: "Print the cue shown at a playback position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tMs, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || tMs < 0 {
				return apperr.Validation("t-ms must be a non-negative integer")
			}
			resolver, err := ctx.resolver(mode)
			if err != nil {
				return err
			}
			_, cue, ok, err := resolver.Active(cmd.Context(), args[0], tMs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "(no active cue)")
				return nil
			}
			fmt.Fprintf(out, "%s --> %s\n%s\n", captions.FormatMillis(cue.StartMs), captions.FormatMillis(cue.EndMs), cue.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "SRT map mode (default from config)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
