// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/gateway"
	"github.com/jeranaias/yukti/internal/ollama"
	"github.com/jeranaias/yukti/internal/pipeline"
)

type statusReport struct {
	pipeline.Status
	ConfigFile string             `json:"config_file,omitempty"`
	Models     []ollama.ModelInfo `json:"models,omitempty"`
}

func newStatusCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the model server and show the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gw := gateway.FromConfig(a.cfg)
			orch := pipeline.New(a.cfg, gw)

			report := statusReport{
				Status:     orch.Status(ctx),
				ConfigFile: a.configPath,
			}
			if report.GatewayReachable {
				// A listing failure only leaves Models empty.
				report.Models, _ = gw.Client().ListModels(ctx)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

// printStatus renders a status snapshot as aligned text.
func printStatus(w io.Writer, st pipeline.Status) {
	fmt.Fprintln(w, SectionStyle.Render("Status"))
	fmt.Fprintln(w, StatusLine(st.GatewayReachable, "Ollama server", st.Config.OllamaHost))
	if st.GatewayReachable {
		fmt.Fprintln(w, StatusLine(st.ModelReady, "Model", st.Model))
	}
	fmt.Fprintln(w, KeyValue("Session", st.State.String()))
	fmt.Fprintln(w, KeyValue("Memory", fmt.Sprintf("%d/%d (%.0f%%)",
		st.Memory.Count, st.Memory.Capacity, st.Memory.UtilizationPercent)))
}

func printReport(w io.Writer, r statusReport) {
	fmt.Fprintln(w, TitleStyle.Render(config.ProjectName+" v"+config.Version))
	printStatus(w, r.Status)

	fmt.Fprintln(w, SectionStyle.Render("Configuration"))
	configFile := r.ConfigFile
	if configFile == "" {
		configFile = "(defaults)"
	}
	fmt.Fprintln(w, KeyValue("Config file", configFile))
	fmt.Fprintln(w, KeyValue("Assistant", r.Config.AssistantName))
	fmt.Fprintln(w, KeyValue("Temperature", strconv.FormatFloat(r.Config.Temperature, 'f', -1, 64)))
	fmt.Fprintln(w, KeyValue("Max tokens", strconv.Itoa(r.Config.MaxResponseLength)))

	if !r.GatewayReachable {
		fmt.Fprintln(w)
		fmt.Fprintln(w, pipeline.SetupHint(pipeline.InitResult{}, r.Model))
		return
	}

	fmt.Fprintln(w, SectionStyle.Render("Installed models"))
	if len(r.Models) == 0 {
		fmt.Fprintln(w, DimStyle.Render("  none (pull one with: ollama pull "+r.Model+")"))
		return
	}
	for _, m := range r.Models {
		marker := "  "
		if m.Name == r.Model {
			marker = SuccessStyle.Render("* ")
		}
		fmt.Fprintf(w, "%s%-32s %s\n", marker, m.Name, DimStyle.Render(m.FormatSize()))
	}
	if !r.ModelReady {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render(IconWarn)+" "+pipeline.SetupHint(pipeline.InitResult{GatewayReachable: true}, r.Model))
	}
}
