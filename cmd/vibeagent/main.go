package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/vibeagent/internal/agent"
	"github.com/nextlevelbuilder/vibeagent/internal/config"
	"github.com/nextlevelbuilder/vibeagent/internal/httpchat"
	"github.com/nextlevelbuilder/vibeagent/internal/obslog"
	"github.com/nextlevelbuilder/vibeagent/internal/termui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("vibeagent", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	workspace := fs.String("workspace", ".", "workspace root the agent may read and write")
	yes := fs.String("yes", "", "set to \"true\" to auto-confirm every prompt (non-interactive mode)")
	configPath := fs.String("config", "", "path to a JSON config file (defaults to <workspace>/.vibe-agent/config.json)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	goal := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if goal == "" {
		fmt.Fprintln(os.Stderr, "usage: vibeagent [-workspace DIR] [-config FILE] [-yes true] <goal>")
		return 2
	}

	root, err := filepath.Abs(*workspace)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vibeagent: resolve workspace:", err)
		return 1
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(root, ".vibe-agent", "config.json")
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vibeagent: load config:", err)
		return 1
	}
	cfg.WorkspaceRoot = root

	if strings.TrimSpace(cfg.APIKey) == "" {
		fmt.Fprintln(os.Stderr, "vibeagent: no API key configured; set VIBE_API_KEY, GROQ_API_KEY, or OPENAI_API_KEY")
		return 1
	}

	log := obslog.New()
	chat := httpchat.New(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, log)
	ui := termui.New(os.Stdout, os.Stdin, strings.EqualFold(*yes, "true"))

	orch, err := agent.New(cfg, chat, ui)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vibeagent: init:", err)
		return 1
	}

	if err := orch.RunTask(context.Background(), goal); err != nil {
		fmt.Fprintln(os.Stderr, "vibeagent:", err)
		return 1
	}
	return 0
}
