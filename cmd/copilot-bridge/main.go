// Package main is the entry point for the copilot-bridge process.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dshills/copilot-bridge/internal/bridge"
	"github.com/dshills/copilot-bridge/internal/config"
	"github.com/dshills/copilot-bridge/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.noChat {
		cfg.Chat.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}

	// Stdout belongs to nobody here; the host reads files, the server
	// reads frames. All logging goes to stderr and the log file.
	log := logging.New(cfg.Level(), cfg.Logging.File)
	log.WithFields(logrus.Fields{
		"version": version,
		"pid":     os.Getpid(),
		"server":  opts.serverBinary,
	}).Info("copilot-bridge starting")

	br, err := bridge.New(bridge.Options{
		ServerBinary:  opts.serverBinary,
		Workspace:     opts.workspace,
		HandshakeFile: opts.handshakeFile,
		Config:        cfg,
		Log:           log,
	})
	if err != nil {
		log.WithError(err).Error("bridge startup failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		log.WithField("signal", sig.String()).Info("signal received, shutting down")
		br.Shutdown()
	}()

	if err := br.Run(); err != nil {
		log.WithError(err).Error("bridge stopped with error")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

type cliOptions struct {
	configPath string
	logLevel   string
	noChat     bool

	serverBinary  string
	workspace     string
	handshakeFile string
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.noChat, "no-chat", false, "Disable the chat lane")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "copilot-bridge - stdio bridge between an editor and the Copilot language server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: copilot-bridge [options] <server-binary> <workspace-folder> <handshake-file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe handshake file receives the IPC directory path once the bridge is\n")
		fmt.Fprintf(os.Stderr, "serving, or an ERROR line when the language server cannot be started.\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("copilot-bridge %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}
	opts.serverBinary = flag.Arg(0)
	opts.workspace = flag.Arg(1)
	opts.handshakeFile = flag.Arg(2)

	return opts
}
