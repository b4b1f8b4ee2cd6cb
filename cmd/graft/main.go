package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/graft-sh/graft/internal/analyzer"
	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"snapshot": true, "versions": true, "show": true, "rollback": true,
	"diff": true, "export": true, "cleanup": true,
	"analyze": true, "analyses": true,
	"suggestions": true, "apply": true, "reject": true,
	"serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
               __ _
   __ _ _ _ __ _/ _| |_
  / _` + "`" + ` | '_/ _` + "`" + ` |  _|  _|
  \__, |_| \__,_|_|  \__|
  |___/

  Prompt version control and suggestion lifecycle

  Usage: graft <command> [options]
         graft --help

  MCP server mode requires piped input.`)
}

// resolvePromptsDir resolves the configured prompts directory against baseDir.
func resolvePromptsDir(cfg *config.Config, baseDir string) string {
	if filepath.IsAbs(cfg.PromptsDir) {
		return cfg.PromptsDir
	}
	return filepath.Join(baseDir, cfg.PromptsDir)
}

// buildAnalyzer constructs the ollama analyzer. A nil analyzer is returned
// when construction fails so the rest of the tooling keeps working without it.
func buildAnalyzer(cfg *config.Config, baseDir string, files fileset.Provider) analyzer.Analyzer {
	history := analyzer.NewFileHistory(filepath.Join(baseDir, "history"))
	a, err := analyzer.NewOllama(cfg.OllamaModel, history, files)
	if err != nil {
		log.Printf("analyzer unavailable: %v", err)
		return nil
	}
	return a
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil, nil, "")
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".graft")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	db.ConfigurePool(database, cfg)

	files, err := fileset.NewDir(resolvePromptsDir(cfg, baseDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open prompts directory: %v\n", err)
		os.Exit(1)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, cfg, files, buildAnalyzer(cfg, baseDir, files), baseDir)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'graft --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(database, cfg, files, buildAnalyzer(cfg, baseDir, files), baseDir, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
