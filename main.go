// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command yukti is a local AI chat assistant backed by Ollama.
package main

import (
	"os"

	"github.com/jeranaias/yukti/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
