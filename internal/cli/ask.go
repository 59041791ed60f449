// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/yukti/internal/pipeline"
	"github.com/jeranaias/yukti/internal/session"
)

// maxStdinPrompt bounds a prompt read from a pipe.
const maxStdinPrompt = 1 << 20

type askResult struct {
	Prompt     string  `json:"prompt"`
	Response   string  `json:"response"`
	Model      string  `json:"model"`
	DurationMS float64 `json:"duration_ms"`
	SessionID  string  `json:"session_id"`
}

func newAskCommand(a *app) *cobra.Command {
	var (
		asJSON bool
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask a single question and print the answer",
		Long: `Ask a single question and print the answer.

The prompt is taken from the arguments, or from stdin when no arguments are
given and stdin is not a terminal.`,
		Example: `  yukti ask "What is a goroutine?"
  echo "Explain TCP slow start" | yukti ask
  yukti ask --json "Compare maps and slices"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := askPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAsk(cmd, a, prompt, asJSON, raw)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without Markdown rendering")
	return cmd
}

// askPrompt joins args, falling back to stdin when it is piped.
func askPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if IsTTY() {
		return "", errors.New("no prompt given (usage: yukti ask <prompt>)")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxStdinPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("empty prompt on stdin")
	}
	return prompt, nil
}

func runAsk(cmd *cobra.Command, a *app, prompt string, asJSON, raw bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store := openStore(a.cfg)
	if store != nil {
		defer store.Close()
	}

	id := session.NewID()
	orch := newOrchestrator(a.cfg, store, id)

	res := orch.Initialize(ctx)
	if !res.Success {
		if asJSON {
			_ = writeJSON(out, struct {
				pipeline.InitResult
				Hint string `json:"hint,omitempty"`
			}{res, pipeline.SetupHint(res, a.cfg.Ollama.Model)})
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), StatusLine(false, res.Message, ""))
			if hint := pipeline.SetupHint(res, a.cfg.Ollama.Model); hint != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), hint)
			}
		}
		return errors.New("initialization failed")
	}

	start := time.Now()
	reply := orch.Respond(ctx, prompt)
	elapsed := time.Since(start)

	if asJSON {
		return writeJSON(out, askResult{
			Prompt:     prompt,
			Response:   reply,
			Model:      a.cfg.Ollama.Model,
			DurationMS: float64(elapsed.Microseconds()) / 1000,
			SessionID:  id,
		})
	}

	if raw || !IsStdoutTTY() {
		fmt.Fprintln(out, reply)
		return nil
	}
	fmt.Fprintln(out, renderMarkdown(reply))
	fmt.Fprintln(os.Stderr, DimStyle.Render(fmt.Sprintf("%s in %s", a.cfg.Ollama.Model, elapsed.Round(100*time.Millisecond))))
	return nil
}
