// Command voicenav drives a web page with spoken pt-BR commands.
//
// Subcommands:
//
//	voicenav run              open the configured page and serve the surfaces
//	voicenav parse <frase>    show how an utterance is parsed
//	voicenav find <descrição> list the page elements matching a description
//	voicenav mcp              serve the session as an MCP server on stdio
package main

import (
	"context"
	"fmt"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "voicenav:", err)
		os.Exit(1)
	}
}
