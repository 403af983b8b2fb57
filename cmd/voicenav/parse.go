package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voicenav/internal/intent"
)

var errUnrecognized = errors.New("comando não reconhecido")

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <frase>",
		Short:   "Show how an utterance is parsed, without touching a page",
		Example: `  voicenav parse preencher email com a@b.c`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			utterance := strings.Join(args, " ")
			c, rule, ok := intent.New().ParseRule(utterance)
			if !ok {
				return fmt.Errorf("%w: %q", errUnrecognized, utterance)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule:   %s\n", rule)
			fmt.Fprintf(out, "action: %s (%s)\n", c.Action, c.Action.Verb())
			fmt.Fprintf(out, "target: %s\n", c.Target)
			fmt.Fprintf(out, "value:  %s\n", c.Value)
			return nil
		},
	}
}
