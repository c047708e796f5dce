// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carterperez-dev/tailorbook/internal/auth"
	"github.com/carterperez-dev/tailorbook/internal/config"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/user"
)

const usage = `usage: tailorbook-cli [-config path] <command> [args]

commands:
  keygen                 write the ES256 key pair named in jwt config
  migrate                apply pending database migrations
  promote <email> <role> set a profile's role (customer, admin, super_admin)
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, flag.Args()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	switch args[0] {
	case "keygen":
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		slog.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil

	case "migrate":
		db, err := core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck // process exits next

		n, err := core.Migrate(ctx, db.DB)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "count", n)
		return nil

	case "promote":
		if len(args) != 3 {
			return errors.New("promote needs <email> <role>")
		}
		return promote(ctx, cfg, args[1], args[2])

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// promote bypasses the API's super_admin check so the first staff account
// can be bootstrapped.
func promote(ctx context.Context, cfg *config.Config, email, role string) error {
	if !user.ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits next

	repo := user.NewRepository(db.DB)

	p, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}

	if _, err := repo.UpdateRole(ctx, p.ID, role); err != nil {
		return err
	}

	slog.Info("role updated", "email", p.Email, "from", p.Role, "to", role)
	return nil
}
