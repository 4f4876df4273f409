// Copyright 2025 The Keylex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the keylex lookup server and CLI [DBG] application.

Keylex serves the offline linguistic lookups an input method needs while
typing: next-word prediction from n-gram frequency tables, prefix-based word
completion with typo correction, dictionary definition lookups, and compact
per-character metadata for CJK text. It can operate as a MessagePack IPC
server for integration with keyboard frontends, or as a CLI application for
testing and debugging.

All data is read from stores built offline by the keylex-build tool. Nothing
is fetched at runtime; a loaded process answers every request from local
state.

# Usage

Start the server with a dictionary store and an n-gram counts file:

	keylex -dict data/words.db -ngram data/counts.txt

Add per-character metadata and enable debug logging:

	keylex -dict data/words.db -unihan data/unihan.db -d

Run in CLI mode for interactive testing:

	keylex -c -ngram data/counts.txt -limit 10

Every surface is optional. A missing store leaves its operations answering
"unavailable" while the rest of the server works normally, so a deployment
can ship prediction without definitions or vice versa.

# Configuration

Runtime configuration is managed through a TOML file that supports server
parameters, prediction settings, and dictionary thresholds:

	[server]
	max_limit = 64
	min_prefix = 1
	max_prefix = 60
	enable_filter = true
	enable_correction = true

	[predict]
	max_order = 3
	limit = 10
	cache_size = 512

	[dict]
	min_frequency = 0

The config file is automatically created with defaults if it doesn't exist.
A custom path can be supplied with -config; damaged files fall back to
defaults section by section.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Requests are
processed synchronously in arrival order with microsecond timing information
included in responses.

Send a prediction request:

	{"id": "req1", "op": "predict", "ctx": "the quick", "l": 5}

Receive ranked candidates:

	{"id": "req1", "s": [{"w": "fox", "f": 12, "r": 1}], "c": 1, "t": 145}

Completion, definition, character metadata, and health checks follow the
same envelope with op values "complete", "define", "unihan", and "health".

# Server Mode

The default mode starts a MessagePack IPC server that processes requests
from stdin and writes responses to stdout. This design enables integration
with keyboard frontends and editors through process communication.

	srv := server.NewServer(engine, completer, words, unihan, cfg)
	err := srv.Start()

The server announces readiness with a health message before reading any
request, so a spawning frontend knows when to start sending. All logging
goes to stderr; stdout carries only MessagePack.

# CLI Mode

CLI mode provides an interactive interface for testing and debugging lookup
functionality. Plain lines are prediction contexts; colon commands reach the
other surfaces (:complete, :define, :unihan, :config).

	inputHandler := cli.NewInputHandler(engine, completer, words, unihan, cfgPath, minLen, maxLen, limit, noFilter)
	err := inputHandler.Start()

This mode is primarily intended for development and testing new features
before deploying to server mode. It supports the same filtering and
threshold logic as the server but with human-readable output.

# Data Stores

Word definitions and character metadata live in LevelDB stores produced by
keylex-build. Word keys are the words themselves; character records are
keyed by big-endian code point, which always starts with a zero byte and so
never collides with a word. The two kinds may share one store directory, in
which case pass the same path to -dict and -unihan.

# Command Line Flags

The following flags control application behavior:

	-dict string
	    Path to the word dictionary store (LevelDB directory)
	-unihan string
	    Path to the character metadata store (may equal -dict)
	-ngram string
	    Path to the n-gram counts file
	-config string
	    Path to a custom TOML config file
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of results to return (default from config)
	-prmin int
	    Minimum input length
	-prmax int
	    Maximum input length
	-no-filter
	    Disable input filtering for debugging

Store and counts paths are explicit; the process resolves nothing relative
to its executable besides the config file fallback.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/internal/cli"
	"github.com/keylex/keylex/internal/logger"
	"github.com/keylex/keylex/pkg/config"
	"github.com/keylex/keylex/pkg/dict"
	"github.com/keylex/keylex/pkg/ngram"
	"github.com/keylex/keylex/pkg/predict"
	"github.com/keylex/keylex/pkg/server"
	completion "github.com/keylex/keylex/pkg/suggest"
)

const (
	Version = "0.1.0-beta"
	AppName = "keylex"
	gh      = "https://github.com/keylex/keylex"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	dictPath := flag.String("dict", "", "Path to the word dictionary store (LevelDB directory)")
	unihanPath := flag.String("unihan", "", "Path to the character metadata store (may equal -dict)")
	ngramPath := flag.String("ngram", "", "Path to the n-gram counts file")
	configPath := flag.String("config", "", "Path to a custom TOML config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.Predict.Limit, "Number of results to return")
	minPrefix := flag.Int("prmin", defaultConfig.Server.MinPrefix, "Minimum input length (1 <= n <= prmax)")
	maxPrefix := flag.Int("prmax", defaultConfig.Server.MaxPrefix, "Maximum input length")
	noFilter := flag.Bool("no-filter", false, "Disable input filtering (DBG only) - shows all raw entries (numbers, symbols, etc)")

	flag.Parse()

	if *showVersion {
		vlog := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

		styles := log.DefaultStyles()

		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
			Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})

		styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

		vlog.SetStyles(styles)

		vlog.Print("")
		vlog.Print("[ Keylex ] Offline lookups for input methods!")
		vlog.Print("", "version", Version)
		vlog.Print("")
		vlog.Print("use -h or --help to see available options")
		vlog.Print("Github Repo", "gh", gh)

		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	appConfig, activeConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", activeConfigPath)

	if *dictPath == "" && *unihanPath == "" && *ngramPath == "" {
		log.Warn("No data paths specified, running with empty surfaces...")
	}

	var wordStore *dict.Store
	if *dictPath != "" {
		wordStore, err = dict.Open(*dictPath, false)
		if err != nil {
			log.Fatalf("Failed to open dictionary store: %v", err)
		}
		defer wordStore.Close()
		log.Debugf("Dictionary store open at: %s", *dictPath)
	}

	var unihanStore *dict.Store
	if *unihanPath != "" {
		if *unihanPath == *dictPath {
			// Code point keys lead with a zero byte, words never do,
			// so both kinds can live in the same store.
			unihanStore = wordStore
		} else {
			unihanStore, err = dict.Open(*unihanPath, false)
			if err != nil {
				log.Fatalf("Failed to open character metadata store: %v", err)
			}
			defer unihanStore.Close()
		}
		log.Debugf("Character metadata store open at: %s", *unihanPath)
	}

	var model *ngram.Model
	var engine *predict.Engine
	if *ngramPath != "" {
		model, err = ngram.Load(*ngramPath, appConfig.Predict.MaxOrder)
		if err != nil {
			log.Fatalf("Failed to load ngram counts: %v", err)
		}
		engine = predict.FromModel(model, predict.Options{
			MaxOrder:  appConfig.Predict.MaxOrder,
			Limit:     appConfig.Predict.Limit,
			CacheSize: appConfig.Predict.CacheSize,
		})
		log.Debug("Prediction engine ready",
			"maxOrder", engine.MaxOrder(),
			"limit", engine.Limit())
	}

	var completer *completion.Completer
	if model != nil || wordStore != nil {
		completer = completion.NewCompleter()
		completer.MinFrequency = appConfig.Dict.MinFrequency
		if model != nil {
			n := completer.AddModel(model)
			log.Debugf("Indexed %d words from the ngram vocabulary", n)
		}
		if wordStore != nil {
			n, err := completer.AddStore(wordStore)
			if err != nil {
				log.Fatalf("Failed to index dictionary words: %v", err)
			}
			log.Debugf("Indexed %d words from the dictionary store", n)
		}
	}

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:",
			"minPrefix", *minPrefix,
			"maxPrefix", *maxPrefix,
			"limit", *limit,
			"noFilter", *noFilter)

		inputHandler := cli.NewInputHandler(engine, completer, wordStore, unihanStore, activeConfigPath, *minPrefix, *maxPrefix, *limit, *noFilter)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(engine, completer, wordStore, unihanStore, appConfig)

	showStartupInfo(engine != nil, completer != nil, wordStore != nil, unihanStore != nil)

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(predictOK, completeOK, defineOK, unihanOK bool) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("==========")
	println("  Keylex  ")
	println("==========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("surfaces: predict=%v complete=%v define=%v unihan=%v",
		predictOK, completeOK, defineOK, unihanOK)
	log.Info("status: ready")
	println("==========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
