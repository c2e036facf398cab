// Command manage runs administrative tasks against the configured store.
//
// USAGE:
//
//	manage migrate
//	manage createsuperuser -username admin -email admin@example.com
//
// createsuperuser reads the password from -password or, preferably, from
// ACCOUNTS_SUPERUSER_PASSWORD so it stays out of shell history.
//
// Storage settings come from the same environment as the server
// (see internal/config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/config"
	"github.com/sakif/accounts-api/internal/service"
	"github.com/sakif/accounts-api/internal/storage"
)

const passwordEnv = "ACCOUNTS_SUPERUSER_PASSWORD"

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, lookup EnvLookup, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	switch args[0] {
	case "migrate":
		err = migrate(ctx, cfg, logger, stdout)
	case "createsuperuser":
		err = createSuperuser(ctx, cfg, args[1:], lookup, logger, stdout, stderr)
	default:
		usage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, formatError(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: manage <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  migrate           apply pending schema migrations")
	fmt.Fprintln(w, "  createsuperuser   create an account with superuser rights")
}

// migrate relies on storage.Open, which migrates as part of opening.
func migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(stdout, "%s schema is up to date\n", cfg.Storage.Driver)
	return nil
}

func createSuperuser(
	ctx context.Context,
	cfg *config.Config,
	args []string,
	lookup EnvLookup,
	logger *slog.Logger,
	stdout, stderr io.Writer,
) error {
	var in service.SuperuserInput
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&in.Username, "username", "", "username (required)")
	fs.StringVar(&in.Email, "email", "", "email address (required)")
	fs.StringVar(&in.Password, "password", "", "password; defaults to $"+passwordEnv)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in.Password == "" {
		if v, ok := lookup(passwordEnv); ok {
			in.Password = v
		}
	}

	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	accounts := service.NewAuthService(store, auth.NewPasswordServiceWithCost(cfg.Auth.BcryptCost), tokens, nil, logger)
	user, err := accounts.CreateSuperuser(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "superuser %q created (id %d)\n", user.Username, user.ID)
	return nil
}

// formatError prints validation failures one field per line.
func formatError(err error) string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || len(appErr.Fields) == 0 {
		return "error: " + err.Error()
	}

	fields := make([]string, 0, len(appErr.Fields))
	for f := range appErr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	for _, f := range fields {
		for _, msg := range appErr.Fields[f] {
			fmt.Fprintf(&b, "%s: %s\n", f, msg)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
