// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/export"
	"github.com/jeranaias/yukti/internal/pipeline"
	"github.com/jeranaias/yukti/internal/session"
	"github.com/jeranaias/yukti/internal/storage"
	"github.com/jeranaias/yukti/internal/util"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

Commands inside the chat:
  /help       Show commands
  /clear      Forget the conversation so far
  /status     Show model server and memory status
  /history    Show remembered exchanges
  /export     Write the transcript (.md, .json or .html)
  /quit       Exit (Ctrl+D also works)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, a)
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with persistent input history.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(dir, "chat_history")}

	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatSession is one REPL conversation.
type chatSession struct {
	id    string
	cfg   *config.Config
	orch  *pipeline.Orchestrator
	store *storage.Store
	out   io.Writer
	turns int
	start time.Time
}

func runChat(cmd *cobra.Command, a *app) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(a.cfg)
	if store != nil {
		defer store.Close()
	}

	id := session.NewID()
	cs := &chatSession{
		id:    id,
		cfg:   a.cfg,
		orch:  newOrchestrator(a.cfg, store, id),
		store: store,
		out:   cmd.OutOrStdout(),
		start: time.Now(),
	}

	if err := cs.initialize(ctx); err != nil {
		return err
	}

	reader := newLineReader()
	defer reader.Close()

	fmt.Fprintln(cs.out, AssistantStyle.Render(a.cfg.Assistant.Name+":")+" "+cs.orch.Greeting())
	fmt.Fprintln(cs.out, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(cs.out)

	for {
		input, err := reader.Prompt("You: ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			// io.EOF on Ctrl+D
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := cs.command(ctx, input); quit {
				break
			}
			continue
		}

		cs.respond(ctx, input)
		if ctx.Err() != nil {
			break
		}
	}

	cs.summary()
	return nil
}

// initialize probes the model server and prints setup help on failure.
func (cs *chatSession) initialize(ctx context.Context) error {
	fmt.Fprintln(cs.out, TitleStyle.Render(config.ProjectName+" v"+config.Version))
	fmt.Fprintln(cs.out, DimStyle.Render("Connecting to "+cs.cfg.Ollama.URL+" ..."))

	res := cs.orch.Initialize(ctx)
	if res.Success {
		fmt.Fprintln(cs.out, StatusLine(true, res.Message, cs.cfg.Ollama.Model))
		fmt.Fprintln(cs.out)
		return nil
	}

	fmt.Fprintln(cs.out, StatusLine(false, res.Message, ""))
	if hint := pipeline.SetupHint(res, cs.cfg.Ollama.Model); hint != "" {
		fmt.Fprintln(cs.out)
		fmt.Fprintln(cs.out, hint)
	}
	return errors.New("initialization failed")
}

func (cs *chatSession) respond(ctx context.Context, input string) {
	start := time.Now()
	fmt.Fprint(cs.out, DimStyle.Render("thinking..."))
	reply := cs.orch.Respond(ctx, input)
	fmt.Fprint(cs.out, "\r\033[K")

	fmt.Fprintln(cs.out, AssistantStyle.Render(cs.cfg.Assistant.Name+":"))
	fmt.Fprintln(cs.out, renderMarkdown(reply))
	fmt.Fprintln(cs.out, DimStyle.Render(time.Since(start).Round(100*time.Millisecond).String()))
	fmt.Fprintln(cs.out)
	cs.turns++
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command handles a /command and reports whether the chat should end.
func (cs *chatSession) command(ctx context.Context, input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h", "/?":
		cs.help()
	case "/clear", "/c":
		cs.orch.Reset()
		fmt.Fprintln(cs.out, SuccessStyle.Render("Conversation cleared."))
	case "/status", "/s":
		printStatus(cs.out, cs.orch.Status(ctx))
	case "/history":
		cs.history()
	case "/export":
		cs.export(ctx, arg)
	default:
		fmt.Fprintln(cs.out, WarningStyle.Render("Unknown command: "+name)+" "+DimStyle.Render("(try /help)"))
	}
	fmt.Fprintln(cs.out)
	return false
}

func (cs *chatSession) help() {
	cmds := []struct{ name, desc string }{
		{"/help", "Show this help"},
		{"/clear", "Forget the conversation so far"},
		{"/status", "Show model server and memory status"},
		{"/history", "Show remembered exchanges"},
		{"/export [file]", "Write the transcript (.md, .json or .html)"},
		{"/quit", "Exit the chat"},
	}
	fmt.Fprintln(cs.out, SectionStyle.Render("Commands"))
	for _, c := range cmds {
		fmt.Fprintf(cs.out, "  %s %s\n", CommandStyle.Render(fmt.Sprintf("%-16s", c.name)), c.desc)
	}
}

func (cs *chatSession) history() {
	exchanges := cs.orch.Exchanges()
	if len(exchanges) == 0 {
		fmt.Fprintln(cs.out, DimStyle.Render("No conversation yet."))
		return
	}
	width := TerminalWidth() - 12
	fmt.Fprintln(cs.out, Separator(width))
	for i, ex := range exchanges {
		fmt.Fprintf(cs.out, "%s %s\n", DimStyle.Render(fmt.Sprintf("%2d. %s", i+1, ex.Timestamp.Format("15:04"))),
			util.TruncateWidth(util.FirstLine(ex.User), width))
		fmt.Fprintf(cs.out, "    %s\n", DimStyle.Render(util.TruncateWidth(util.FirstLine(ex.Assistant), width)))
	}
	fmt.Fprintln(cs.out, Separator(width))
	stats := cs.orch.MemoryStats()
	fmt.Fprintln(cs.out, DimStyle.Render(fmt.Sprintf("%d of %d remembered", stats.Count, stats.Capacity)))
}

func (cs *chatSession) export(ctx context.Context, path string) {
	if cs.store == nil {
		fmt.Fprintln(cs.out, WarningStyle.Render("Transcript storage is disabled."))
		return
	}
	t, err := cs.store.Transcript(ctx, cs.id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		fmt.Fprintln(cs.out, DimStyle.Render("Nothing to export yet."))
		return
	}
	if err != nil {
		fmt.Fprintln(cs.out, ErrorStyle.Render("Export failed: ")+err.Error())
		return
	}
	t.Assistant = cs.cfg.Assistant.Name

	if path == "" {
		path = "yukti-" + time.Now().Format("20060102-150405") + ".md"
	}
	if err := export.ToFile(t, path); err != nil {
		fmt.Fprintln(cs.out, ErrorStyle.Render("Export failed: ")+err.Error())
		return
	}
	fmt.Fprintln(cs.out, SuccessStyle.Render("Transcript written to "+path))
}

func (cs *chatSession) summary() {
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, DimStyle.Render(fmt.Sprintf("Session %s: %d messages in %s",
		cs.id, cs.turns, time.Since(cs.start).Round(time.Second))))
	fmt.Fprintln(cs.out, AssistantStyle.Render(cs.cfg.Assistant.Name+":")+" Goodbye!")
}
