package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/mcp"
	"github.com/auralabs/aura/internal/memory"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/tokens"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"compose": true, "situation": true, "detect": true, "budget": true,
	"remember": true, "recall": true, "identity": true,
	"help": true,
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
     _  _   _ ___  _
    /_\| | | | _ \/_\
   / _ \ |_| |   / _ \
  /_/ \_\___/|_|_\_/ \_\

  Layered context composition for companion AI

  Usage: aura <command> [options]
         aura --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
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

	baseDir := filepath.Join(homeDir, ".aura")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	memoryDir := cfg.MemoryDir
	if memoryDir == "" {
		memoryDir = baseDir
	}
	store, err := memory.Open(memoryDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open memory store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// A broken identity template doesn't stop startup; composition
	// falls back to the synthesized identity.
	loader := persona.NewIdentityLoader(cfg.Identity, tokens.NewEstimator())
	for _, problem := range loader.Validate() {
		log.Printf("identity template: %s", problem)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(cfg, store)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'aura --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(cfg, store, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
