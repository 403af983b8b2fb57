package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voicenav/internal/config"
)

// options holds the persistent flags shared by all subcommands.
type options struct {
	configPath string
	envFiles   []string
	level      *slog.LevelVar
}

func newRootCmd() *cobra.Command {
	opts := &options{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:   "voicenav",
		Short: "Navegação de páginas web por comandos de voz em português",
		Long: `voicenav turns spoken pt-BR commands ("clicar em enviar",
"preencher email com a@b.c", "rolar para baixo") into actions on a web page.

Utterances arrive from a browser-side recognizer over a websocket, from stdin
in console mode, or from an agent through MCP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so stdout stays free for the console and MCP.
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: opts.level})))
			return config.LoadDotEnv(opts.envFiles...)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "voicenav.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	root.AddCommand(
		newRunCmd(opts),
		newParseCmd(),
		newFindCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// loadConfig reads the config file and applies VOICENAV_* overrides. A
// missing file is only an error when the path was given explicitly.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		slog.Debug("no config file, using defaults", "path", o.configPath)
		cfg = &config.Config{}
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file %q not found", o.configPath)
	case err != nil:
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	o.level.Set(cfg.Server.LogLevel.Level())
	return cfg, nil
}
