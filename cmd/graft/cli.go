package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/graft-sh/graft/internal/analyzer"
	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/ops"
	"github.com/graft-sh/graft/internal/prompt"
	"github.com/graft-sh/graft/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, files fileset.Provider, a analyzer.Analyzer, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "graft",
		Usage:   "Prompt version control and suggestion lifecycle",
		Version: Version,
		Commands: []*cli.Command{
			snapshotCmd(db, files),
			versionsCmd(db),
			showCmd(db),
			rollbackCmd(db, files),
			diffCmd(db),
			exportCmd(db, cfg, baseDir),
			cleanupCmd(db, cfg),
			analyzeCmd(db, cfg, a),
			analysesCmd(db),
			suggestionsCmd(db),
			applyCmd(db, files),
			rejectCmd(db),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// snapshotCmd creates the snapshot command.
func snapshotCmd(db *sql.DB, files fileset.Provider) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Snapshot the current prompt files as a new version",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Human-readable version label (becomes the version ID)"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "What changed since the last version"},
		},
		Action: func(c *cli.Context) error {
			input := ops.SnapshotInput{
				CreatedBy: prompt.CreatedByManual,
			}
			if label := c.String("label"); label != "" {
				input.Label = &label
			}
			if desc := c.String("description"); desc != "" {
				input.Changes = []prompt.Change{{
					File:        "*",
					Description: desc,
					Timestamp:   time.Now().UTC().Format(time.RFC3339),
				}}
			}

			output, err := ops.Snapshot(db, files, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// versionsCmd creates the versions command.
func versionsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "versions",
		Usage: "List stored versions, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: ops.DefaultListLimit, Usage: "Maximum versions to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListVersions(db, ops.ListVersionsInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a version including its file contents",
		ArgsUsage: "<version-id>",
		Action: func(c *cli.Context) error {
			snapshot, err := ops.GetVersion(db, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(snapshot)
		},
	}
}

// rollbackCmd creates the rollback command.
func rollbackCmd(db *sql.DB, files fileset.Provider) *cli.Command {
	return &cli.Command{
		Name:      "rollback",
		Usage:     "Restore prompt files to a stored version",
		ArgsUsage: "<version-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-backup", Usage: "Skip the automatic pre-rollback backup"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Rollback(db, files, ops.RollbackInput{
				VersionID:    c.Args().First(),
				CreateBackup: !c.Bool("no-backup"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// diffCmd creates the diff command.
func diffCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare two versions file by file",
		ArgsUsage: "<from-version> <to-version>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("diff requires <from-version> and <to-version>"))
			}
			output, err := ops.Diff(db, ops.DiffInput{
				From: c.Args().Get(0),
				To:   c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a version's files to a directory",
		ArgsUsage: "<version-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Target directory (default: ~/.graft/exports/<version-id>)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(db, cfg, baseDir, ops.ExportInput{
				VersionID: c.Args().First(),
				Path:      c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// cleanupCmd creates the cleanup command.
func cleanupCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	keepDefault := config.DefaultConfig().KeepVersions
	if cfg != nil {
		keepDefault = cfg.KeepVersions
	}
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete old versions beyond the keep count",
		Description: "Deletes all but the newest --keep versions. Backups referenced by\n" +
			"pending suggestions are not exempt; apply or reject pending suggestions\n" +
			"before cleaning up if you want their backups kept.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "keep", Aliases: []string{"k"}, Value: keepDefault, Usage: "Number of most recent versions to keep"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Cleanup(db, ops.CleanupInput{KeepCount: c.Int("keep")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// analyzeCmd creates the analyze command.
func analyzeCmd(db *sql.DB, cfg *config.Config, a analyzer.Analyzer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run the analyzer over recent activity and store suggestions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context", Aliases: []string{"c"}, Value: "default", Usage: "Context whose history to analyze"},
			&cli.BoolFlag{Name: "background", Usage: "Acknowledge immediately and report the result on stderr"},
		},
		Action: func(c *cli.Context) error {
			if a == nil {
				return outputError(errors.NewAnalysisFailed(nil))
			}

			input := ops.TriggerAnalysisInput{
				ContextID:  c.String("context"),
				MaxHistory: cfg.MaxHistory,
			}

			if c.Bool("background") {
				// Ack first, then finish the analysis before the process exits.
				if err := outputJSON(map[string]any{"background": true, "status": "started"}); err != nil {
					return err
				}
				if _, err := ops.TriggerAnalysis(c.Context, db, a, input); err != nil {
					log.Printf("background analysis failed: %v", err)
				}
				return nil
			}

			output, err := ops.TriggerAnalysis(c.Context, db, a, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// analysesCmd creates the analyses command.
func analysesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "analyses",
		Usage: "List stored analyses, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: ops.DefaultListLimit, Usage: "Maximum analyses to return"},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Substring to search analysis content for"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				analysis, err := ops.GetAnalysis(db, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				return outputJSON(analysis)
			}

			output, err := ops.ListAnalyses(db, ops.ListAnalysesInput{
				Limit:  c.Int("limit"),
				Search: c.String("search"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// suggestionsCmd creates the suggestions command.
func suggestionsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "suggestions",
		Usage: "List suggestions, or extract them from one analysis",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "analysis", Aliases: []string{"a"}, Usage: "Extract and list suggestions for this analysis"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by status: pending|applied|rejected"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: ops.DefaultListLimit, Usage: "Maximum suggestions to return"},
		},
		Action: func(c *cli.Context) error {
			if analysisID := c.String("analysis"); analysisID != "" {
				output, err := ops.Extract(db, analysisID)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.ListSuggestions(db, ops.ListSuggestionsInput{
				Status: prompt.Status(c.String("status")),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// applyCmd creates the apply command.
func applyCmd(db *sql.DB, files fileset.Provider) *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply an approved suggestion to its target prompt file",
		ArgsUsage: "<suggestion-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "analysis", Aliases: []string{"a"}, Required: true, Usage: "Analysis the suggestion belongs to"},
			&cli.BoolFlag{Name: "approve", Usage: "Confirm the apply (required)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Apply(db, files, ops.ApplyInput{
				SuggestionID: c.Args().First(),
				AnalysisID:   c.String("analysis"),
				Approved:     c.Bool("approve"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// rejectCmd creates the reject command.
func rejectCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "reject",
		Usage:     "Reject a pending suggestion",
		ArgsUsage: "<suggestion-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Reject(db, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Interface to bind"},
			&cli.IntFlag{Name: "port", Value: 8850, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gErr, ok := err.(*errors.GraftError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
