package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunefetch/internal/logging"
	"tunefetch/internal/preflight"
	"tunefetch/internal/scratch"
	"tunefetch/internal/workflow"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, external tools and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := useColor(out)
			problems := 0

			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					problems++
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if groups, err := scratch.List(cfg.Paths.ScratchDir); err == nil && len(groups) > 0 {
				var size int64
				for _, g := range groups {
					size += g.Size
				}
				detail := fmt.Sprintf("%d item(s), %s, oldest %s", len(groups), humanize.IBytes(uint64(size)), humanize.Time(groups[0].ModTime))
				fmt.Fprintln(out, renderStatusLine("Leftovers", statusWarn, detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Tools", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := [][]string{}
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				location, detail := status.Path, status.Description
				if !status.Available {
					location, detail = status.Command, status.Detail
				}
				if status.Missing() {
					problems++
				}
				rows = append(rows, []string{status.Name, location, yesNo(status.Available), yesNo(status.Optional), detail})
			}
			fmt.Fprintln(out, renderTable(toolColumns, rows))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			pipeline := buildPipeline(cfg, logging.NewNop())
			status := workflow.NewManager(cfg, pipeline, logging.NewNop()).Status(cmd.Context())
			seen := map[string]bool{}
			for _, handler := range append(pipeline.Remote, pipeline.Local...) {
				name := handler.Descriptor().Name
				if seen[name] {
					continue
				}
				seen[name] = true
				health := status.StageHealth[name]
				kind := statusOK
				if !health.Ready {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(name, kind, health.Detail, colorize))
			}

			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			fmt.Fprintln(out, "\nAll checks passed")
			return nil
		},
	}
}
