// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the yukti command-line interface.
//
// Commands:
//
//	yukti chat             interactive chat REPL
//	yukti ask <prompt>     one-shot question
//	yukti status [--json]  model server and configuration report
//	yukti serve [--addr]   HTTP + WebSocket API
//	yukti config show|init|path
//	yukti version
//
// Global flags --config, --log-level, --log-file, --model and --url apply to
// every command. A .env file in the working directory is loaded before the
// configuration so YUKTI_* variables can live there.
//
// Output goes to the command's writer (cmd.OutOrStdout) so commands can be
// exercised from tests. Colors are disabled for non-TTY output and when
// NO_COLOR is set.
package cli
