// Command scene-export is a Stash plugin that exports scene metadata to a
// timestamped JSON file. Run without arguments it speaks the plugin
// protocol on stdin/stdout; the run subcommand drives the same export
// against a server directly.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Sternrassler/stash-scene-export/pkg/config"
	"github.com/Sternrassler/stash-scene-export/pkg/export"
	"github.com/Sternrassler/stash-scene-export/pkg/logging"
	"github.com/Sternrassler/stash-scene-export/pkg/plugin"
	"github.com/Sternrassler/stash-scene-export/pkg/stash"
)

// exportAllMode is the task mode Stash sends for the export button.
const exportAllMode = "exportAll"

func main() {
	app := &cli.App{
		Name:   "scene-export",
		Usage:  "export Stash scene metadata to a JSON file",
		Action: pluginAction,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an export against a Stash server without the plugin protocol",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Stash GraphQL endpoint",
						Value: "http://localhost:9999/graphql",
					},
					&cli.StringFlag{
						Name:  "api-key",
						Usage: "Stash API key",
					},
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "directory for the metadata file",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "catalog page size",
					},
					&cli.StringFlag{
						Name:  "settings",
						Usage: "settings override file",
						Value: config.SettingsFile,
					},
				},
				Action: runAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pluginAction handles one plugin invocation from Stash. Every failure is
// reported as the error field of the single stdout object; the process
// still exits zero so Stash reads the structured message instead of a
// broken pipe.
func pluginAction(c *cli.Context) error {
	logWriter := &plugin.LogWriter{Out: os.Stderr}

	in, err := plugin.ReadInput(os.Stdin)
	if err != nil {
		return finish(plugin.Output{Error: err.Error()})
	}

	settingsPath := config.SettingsFile
	if in.ServerConnection.PluginDir != "" {
		settingsPath = filepath.Join(in.ServerConnection.PluginDir, config.SettingsFile)
	}

	settings, err := config.Load(settingsPath)
	if err != nil {
		return finish(plugin.Output{Error: err.Error()})
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(settings.LogLevel),
		Output: logWriter,
	})

	if err := config.EnsureSettingsFile(settingsPath); err != nil {
		logger.Warn().Err(err).Msg("Could not write default settings file")
	}

	if err := config.EnsureOutputDir(settings.OutputDir); err != nil {
		return finish(plugin.Output{Error: err.Error()})
	}

	config.ClearTempDir(settings.TempDir, logger)

	if err := config.ClearLogFile(settings.LogFile); err != nil {
		logger.Warn().Err(err).Msg("Could not clear log file")
	}

	if !in.Args.HasMode(exportAllMode) {
		logger.Debug().Str("mode", in.Args.Mode).Msg("No recognized task mode")
		return finish(plugin.Output{Output: "ok"})
	}

	logger.Info().Msg("Running exportAll")

	client, err := stash.FromConnection(in.ServerConnection)
	if err != nil {
		return finish(plugin.Output{Error: err.Error()})
	}

	path, err := runExport(c.Context, client, settings, logger, logWriter.Progress)
	if err != nil {
		logger.Error().Err(err).Msg("Export failed")
		return finish(plugin.Output{Error: err.Error()})
	}

	if path == "" {
		logger.Info().Msg("No scenes to export")
	} else {
		logger.Info().Str("path", path).Msg("Export written")
	}

	return finish(plugin.Output{Output: "ok"})
}

// runAction drives the same export from the command line, for use outside
// a Stash plugin installation.
func runAction(c *cli.Context) error {
	settings, err := config.Load(c.String("settings"))
	if err != nil {
		return err
	}

	if c.IsSet("url") {
		settings.StashURL = c.String("url")
	}
	if c.IsSet("output-dir") {
		settings.OutputDir = c.String("output-dir")
	}
	if c.IsSet("page-size") {
		settings.PageSize = c.Int("page-size")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(settings.LogLevel),
		Pretty: true,
	})

	if err := config.EnsureOutputDir(settings.OutputDir); err != nil {
		return err
	}

	cfg := stash.DefaultConfig(settings.StashURL)
	cfg.APIKey = c.String("api-key")

	client, err := stash.New(cfg)
	if err != nil {
		return err
	}

	path, err := runExport(c.Context, client, settings, logger, nil)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if path == "" {
		fmt.Fprintln(c.App.Writer, "no scenes to export")
		return nil
	}

	fmt.Fprintln(c.App.Writer, path)
	return nil
}

// runExport wires the extractor to the reader and persists the result.
// Returns the empty string when the catalog is empty; no file is written.
func runExport(ctx context.Context, reader export.SceneReader, settings config.Settings, logger zerolog.Logger, progress export.ProgressFunc) (string, error) {
	cfg := export.DefaultConfig()
	cfg.PageSize = settings.PageSize
	cfg.Progress = progress

	ex, err := export.New(reader, cfg)
	if err != nil {
		return "", err
	}

	records, err := ex.Run(ctx)
	if err != nil {
		return "", err
	}

	if len(records) == 0 {
		return "", nil
	}

	path, err := export.WriteMetadata(settings.OutputDir, records)
	if err != nil {
		return "", err
	}

	logger.Debug().Str("path", path).Int("scenes", len(records)).Msg("Saved metadata file")
	return path, nil
}

// finish writes the single structured plugin result to stdout.
func finish(out plugin.Output) error {
	return plugin.WriteOutput(os.Stdout, out)
}
