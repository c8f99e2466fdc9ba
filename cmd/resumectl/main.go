package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/resumeinsider/internal/adapter/metrics"
	"github.com/pscheid92/resumeinsider/internal/app"
	"github.com/pscheid92/resumeinsider/internal/platform/config"
	"github.com/pscheid92/resumeinsider/internal/platform/logging"
	"github.com/pscheid92/resumeinsider/internal/platform/version"
)

const usage = `Usage: resumectl [-v] <command> [arguments]

Commands:
  login -u <username>          sign in, the password is read from stdin
  logout                       forget the stored session
  register -email <e> -u <u>   create an account, password and confirmation read from stdin
  whoami                       print the signed-in user
  upload [-watch] <file.pdf>   submit a document for analysis
  history [-json]              list submitted documents
  watch                        poll until no document is processing
  serve                        run the local browser gateway
  version                      print build information
`

type command func(ctx context.Context, env *cliEnv, args []string) error

var commands = map[string]command{
	"login":    runLogin,
	"logout":   runLogout,
	"register": runRegister,
	"whoami":   runWhoami,
	"upload":   runUpload,
	"history":  runHistory,
	"watch":    runWatch,
	"serve":    runServe,
}

// cliEnv bundles what commands need besides their arguments.
type cliEnv struct {
	cfg      *config.Config
	svc      *app.Service
	registry *prometheus.Registry
	stdin    io.Reader
	stdout   io.Writer
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	flags := flag.NewFlagSet("resumectl", flag.ExitOnError)
	verbose := flags.Bool("v", false, "verbose logging")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}
	name, args := flags.Arg(0), flags.Args()[1:]

	if name == "version" {
		info := version.Get()
		fmt.Printf("resumectl %s (commit %s, built %s, %s)\n", info.Version, info.Commit, info.BuildTime, info.GoVersion)
		return
	}

	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		flags.Usage()
		os.Exit(2)
	}

	os.Exit(execute(run, name == "serve", *verbose, args))
}

func execute(run command, serving, verbose bool, args []string) int {
	cfg := setupConfig()
	level := "warn"
	if serving {
		level = cfg.LogLevel
	}
	if verbose {
		level = "debug"
	}
	logging.InitLoggerTo(os.Stderr, level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	svc, err := app.New(ctx, cfg, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resumectl: %v\n", err)
		return 1
	}
	defer func() {
		if err := svc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "resumectl: close: %v\n", err)
		}
	}()

	env := &cliEnv{cfg: cfg, svc: svc, registry: registry, stdin: os.Stdin, stdout: os.Stdout}
	if err := run(ctx, env, args); err != nil {
		fmt.Fprintf(os.Stderr, "resumectl: %s\n", describe(err))
		return exitCode(err)
	}
	return 0
}
