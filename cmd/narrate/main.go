// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command narrate plays narrate stories in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"nickandperla.net/narrate/internal/config"
	"nickandperla.net/narrate/internal/logger"
	"nickandperla.net/narrate/pkg/narrate"
)

const usage = `usage: narrate [flags] <file>

Plays the story starting at the entry scene. Choices are read one per line
from stdin. The session ends when the story reaches a scene with no
available options, or when input is closed (Ctrl+D) or interrupted (Ctrl+C).

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit status: 0 when the host
// ended the session, 1 on any other terminal error, 2 on usage errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("narrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var (
		entry        = fs.String("entry", "", "Entry scene as module::scene (default main::start)")
		manifestPath = fs.String("manifest", "", "Story manifest (narrate.yaml)")
		items        = fs.String("items", "", "Comma-separated starting inventory")
		transcript   = fs.String("transcript", "", "SQLite transcript path (overrides NARRATE_TRANSCRIPT)")
		logLevel     = fs.String("log-level", "", "Log level: debug, info, warn or error (overrides NARRATE_LOG_LEVEL)")
		maxRetries   = fs.Int("max-retries", -1, "Invalid choices allowed in a row before giving up, 0 for unlimited (overrides NARRATE_MAX_RETRIES)")
		check        = fs.Bool("check", false, "Parse the file and print every diagnostic without running it")
		tokens       = fs.Bool("tokens", false, "Print the token stream and exit")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "narrate: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Fprintf(stderr, "narrate: %v\n", err)
		return 1
	}
	defer log.Sync()

	file := fs.Arg(0)
	module, scene := config.DefaultModule, config.DefaultScene
	transcriptPath := cfg.Transcript
	var inventory []string

	if *manifestPath != "" {
		m, err := config.LoadManifest(*manifestPath)
		if err != nil {
			fmt.Fprintf(stderr, "narrate: %v\n", err)
			return 1
		}
		if file == "" {
			file = m.Entry.File
		}
		module, scene = m.Entry.Module, m.Entry.Scene
		inventory = append(inventory, m.Inventory...)
		if m.Transcript != "" {
			transcriptPath = m.Transcript
		}
	}
	if *entry != "" {
		module, scene, err = config.ParseEntryRef(*entry)
		if err != nil {
			fmt.Fprintf(stderr, "narrate: %v\n", err)
			return 2
		}
	}
	for _, item := range strings.Split(*items, ",") {
		if item = strings.TrimSpace(item); item != "" {
			inventory = append(inventory, item)
		}
	}
	if *transcript != "" {
		transcriptPath = *transcript
	}
	retries := cfg.MaxRetries
	if *maxRetries >= 0 {
		retries = *maxRetries
	}

	if file == "" || fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	switch {
	case *tokens:
		return dumpTokens(file, stdout, stderr)
	case *check:
		return checkFile(narrate.New(narrate.WithLogger(log)), file, stdout, stderr)
	}

	interactive := isTerminal(stdin)
	prompt := ""
	if interactive {
		prompt = "> "
	}

	opts := []narrate.Option{
		narrate.WithInput(narrate.LineReader(stdin, stdout, prompt)),
		narrate.WithWriter(stdout),
		narrate.WithLogger(log),
		narrate.WithInventory(inventory...),
		narrate.WithMaxRetries(retries),
	}
	if transcriptPath != "" {
		opts = append(opts, narrate.WithSQLiteTranscript(transcriptPath))
	}

	runtime := narrate.New(opts...)
	defer runtime.Close()

	log.Debug("starting session",
		zap.String("file", file),
		zap.String("module", module),
		zap.String("scene", scene),
		zap.Strings("inventory", inventory),
		zap.Bool("interactive", interactive),
	)
	err = runtime.Play(ctx, file, module, scene)
	if narrate.IsHostTermination(err) {
		if interactive {
			fmt.Fprintln(stdout)
		}
		return 0
	}
	fmt.Fprintf(stderr, "narrate: %v\n", err)
	return 1
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
