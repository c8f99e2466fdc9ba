package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pscheid92/resumeinsider/internal/adapter/httpserver"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
)

const (
	shutdownTimeout = 10 * time.Second
	acceptedFileExt = ".pdf"
)

var (
	errUsage       = errors.New("invalid arguments")
	errNotPDF      = errors.New("only PDF files are accepted")
	errNotSignedIn = errors.New("not logged in")
	errEmptyInput  = errors.New("no input on stdin")
)

func parseFlags(name string, args []string, define func(*flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return fs, nil
}

// readLine reads one line from r without the trailing newline.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", errEmptyInput
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(ctx context.Context, env *cliEnv, args []string) error {
	var username string
	if _, err := parseFlags("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&username, "u", "", "username")
	}); err != nil {
		return err
	}
	if username == "" {
		return fmt.Errorf("%w: -u is required", errUsage)
	}

	password, err := readLine(bufio.NewReader(env.stdin))
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	cred, err := env.svc.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "Logged in as %s\n", cred.Username)
	return nil
}

func runLogout(ctx context.Context, env *cliEnv, _ []string) error {
	env.svc.Logout(ctx)
	fmt.Fprintln(env.stdout, "Logged out")
	return nil
}

func runRegister(ctx context.Context, env *cliEnv, args []string) error {
	var reg domain.Registration
	if _, err := parseFlags("register", args, func(fs *flag.FlagSet) {
		fs.StringVar(&reg.Email, "email", "", "email address")
		fs.StringVar(&reg.Username, "u", "", "username")
	}); err != nil {
		return err
	}

	in := bufio.NewReader(env.stdin)
	var err error
	if reg.Password, err = readLine(in); err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if reg.PasswordConfirm, err = readLine(in); err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}

	if err := env.svc.Register(ctx, reg); err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, "Registration successful! Please log in.")
	return nil
}

func runWhoami(_ context.Context, env *cliEnv, _ []string) error {
	cred, ok := env.svc.Current()
	if !ok {
		return errNotSignedIn
	}
	fmt.Fprintln(env.stdout, cred.Username)
	return nil
}

// openUpload opens path for submission. An empty path yields an empty upload,
// which is refused as no_file_selected.
func openUpload(path string) (*domain.Upload, func(), error) {
	if path == "" {
		return &domain.Upload{}, func() {}, nil
	}
	if !strings.EqualFold(filepath.Ext(path), acceptedFileExt) {
		return nil, nil, fmt.Errorf("%w: %s", errNotPDF, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return &domain.Upload{Name: filepath.Base(path), Content: f}, func() { _ = f.Close() }, nil
}

func runUpload(ctx context.Context, env *cliEnv, args []string) error {
	var watch bool
	fs, err := parseFlags("upload", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&watch, "watch", false, "wait until the analysis finished")
	})
	if err != nil {
		return err
	}

	upload, closeFn, err := openUpload(fs.Arg(0))
	if err != nil {
		return err
	}
	defer closeFn()

	job, err := env.svc.Upload(ctx, upload)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "Upload successful! Document ID: %s\n", job.ID)

	if !watch {
		return nil
	}
	return watchJobs(ctx, env)
}

func runHistory(ctx context.Context, env *cliEnv, args []string) error {
	var asJSON bool
	if _, err := parseFlags("history", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&asJSON, "json", false, "print JSON")
	}); err != nil {
		return err
	}

	views, err := env.svc.History(ctx, true)
	if err != nil {
		return err
	}

	if asJSON {
		if views == nil {
			views = []reconciler.View{}
		}
		enc := json.NewEncoder(env.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	return printViews(env.stdout, views)
}

func runWatch(ctx context.Context, env *cliEnv, _ []string) error {
	return watchJobs(ctx, env)
}

// watchJobs prints every job whose status changed until none is pending.
func watchJobs(ctx context.Context, env *cliEnv) error {
	printer := newChangePrinter(env.stdout)
	return env.svc.Watch(ctx, func(snap domain.Snapshot) {
		if err := printer.print(snap); err != nil {
			slog.Error("Failed to print jobs", "error", err)
		}
	})
}

func runServe(ctx context.Context, env *cliEnv, _ []string) error {
	if _, ok := env.svc.Current(); ok {
		if _, err := env.svc.History(ctx, true); err != nil {
			slog.Warn("Initial history fetch failed", "error", err)
		}
	}

	srv := httpserver.NewServer(env.cfg, env.svc, env.registry)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutdown signal received, cleaning up...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	env.svc.StopPolling()
	return nil
}
