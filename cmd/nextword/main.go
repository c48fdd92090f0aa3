// Copyright 2026 The nextword Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the nextword prediction server and CLI [DBG] application.

nextword predicts the word a user is typing, or the word they will type next,
by mixing a static dictionary with bigram and trigram associations learned
from what the user actually commits. Everything stays on the device: learned
history is kept in a local SQLite database (or plain files) next to the config.

# Usage

Start the IPC server with default settings:

	nextword

Use a custom dictionary directory and enable debug mode:

	nextword -data /path/to/dict -d

Run in CLI mode for interactive testing:

	nextword -c -limit 8

The data directory may hold chunked binary files named dict_0001.bin,
dict_0002.bin, etc. and plain text word lists (*.txt, one "word [frequency]"
per line).

# Configuration

Runtime configuration is read from a TOML file, created with defaults when
missing:

	[predict]
	max_suggestions = 5
	context_size = 3
	locale = "tr"

	[learn]
	bulk_sentence_learning = true
	bigram_flush_every = 10
	trigram_flush_every = 50

	[maintenance]
	min_frequency = 2
	max_age_days = 30

	[storage]
	backend = "sqlite"
	path = ""

# IPC Protocol

The server speaks MessagePack over stdin/stdout, see package server:

	{"id": "req1", "op": "predict", "p": "mer", "l": 5}
	{"id": "req2", "op": "word", "p": "merhaba"}

# Command Line Flags

	-data string
	    Directory containing dictionary files (default "data/")
	-config string
	    Path to a TOML config file
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of suggestions to return
	-no-filter
	    Disable input filtering for debugging
	-words int
	    Maximum dictionary words to load (0 for all)
	-backend string
	    History backend: sqlite, file or memory
	-db string
	    History location (database file or directory)

Learned history is flushed in the background while typing and once more on
exit, including Ctrl+C.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/nextword/internal/cli"
	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/internal/utils"
	"github.com/bastiangx/nextword/pkg/config"
	"github.com/bastiangx/nextword/pkg/dictionary"
	"github.com/bastiangx/nextword/pkg/engine"
	"github.com/bastiangx/nextword/pkg/server"
	"github.com/bastiangx/nextword/pkg/storage"
	"github.com/bastiangx/nextword/pkg/tokenize"
)

const (
	Version = "0.3.0-beta"
	AppName = "nextword"
	gh      = "https://github.com/bastiangx/nextword"

	shutdownTimeout = 5 * time.Second
)

// sigHandler flushes learned history on SIGINT/SIGTERM before exiting.
func sigHandler(onExit func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		onExit()
		os.Exit(0)
	}()
}

// main only wires packages together and manages the flow.
func main() {
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "data/", "Directory containing the dictionary files")
	configFile := flag.String("config", "", "Path to a custom config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to return")
	noFilter := flag.Bool("no-filter", defaultConfig.CLI.DefaultNoFilter, "Disable input filtering (DBG only)")
	wordLimit := flag.Int("words", -1, "Maximum number of dictionary words to load (0 for all, default from config)")
	backend := flag.String("backend", "", "History backend: sqlite, file or memory (default from config)")
	dbPath := flag.String("db", "", "History database file or directory (default in the config dir)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	cfg, configPath := config.LoadConfigWithPriority(*configFile, pathResolver.GetConfigPath("config.toml"))
	log.Debugf("Using config file: (%s)", utils.GetAbsolutePath(configPath))

	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *dbPath != "" {
		cfg.Storage.Path = utils.GetAbsolutePath(*dbPath)
	}
	if *wordLimit >= 0 {
		cfg.Dict.MaxWords = *wordLimit
	}

	resolvedDataDir := pathResolver.GetDataDir(*dataDir)
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	dict := dictionary.New(tokenize.NewFolder(cfg.Predict.Locale))
	if n, err := dictionary.Load(dict, resolvedDataDir, cfg.Dict.MaxWords); err != nil {
		log.Warnf("No dictionary loaded (%v), predictions come from learned history only", err)
	} else {
		log.Debugf("Loaded %d dictionary entries", n)
	}

	historyPath := resolveHistoryPath(pathResolver, cfg.Storage)
	kv, err := storage.Open(cfg.Storage.Backend, historyPath)
	if err != nil {
		log.Fatalf("Failed to open history storage: %v", err)
	}
	log.Debugf("History: backend=%s path=%s", cfg.Storage.Backend, historyPath)

	ctx := context.Background()
	eng, err := engine.New(ctx, engine.Options{
		Config:     cfg,
		KV:         kv,
		Dictionary: dict,
		Logger:     logger.New("engine"),
	})
	if err != nil {
		log.Fatalf("Failed to init engine: %v", err)
	}
	sigHandler(func() { shutdown(eng) })
	defer shutdown(eng)

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "maxPrefix", cfg.Server.MaxPrefix, "limit", *limit, "noFilter", *noFilter)

		inputHandler := cli.NewInputHandler(eng, cfg.Server.MaxPrefix, *limit, *noFilter)
		if err := inputHandler.Start(ctx); err != nil {
			log.Errorf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(eng, cfg.Server, os.Stdin, os.Stdout)

	showStartupInfo(resolvedDataDir, historyPath)

	if err := srv.Start(ctx); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}

// resolveHistoryPath picks where learned history lives when the config leaves
// it empty.
func resolveHistoryPath(pr *utils.PathResolver, sc config.StorageConfig) string {
	path := sc.Path
	switch sc.Backend {
	case storage.BackendMemory:
		return ""
	case storage.BackendFile:
		if path == "" {
			path = pr.GetConfigPath("history")
		}
		return path
	default:
		if path == "" {
			path = pr.GetConfigPath("history.db")
		}
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			log.Warnf("Could not create history dir: %v", err)
		}
		return path
	}
}

func shutdown(eng *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := eng.Close(ctx); err != nil {
		log.Errorf("Failed to save learned history: %v", err)
	}
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ nextword ] Learns what you type next, on device.")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir, historyPath string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" nextword ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("history: ( %s )", historyPath)
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
