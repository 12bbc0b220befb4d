// Command create-admin bootstraps an Admin identity. Admins cannot self-register, so this
// is the only way to create one.
//
//	ADMIN_PASSWORD='S3cret!pass' create-admin -email ops@straightdeal.test -first Ops -last Team
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	mongostore "github.com/straightdeal/marketplace-api/internal/infrastructure/db/mongo"
	"github.com/straightdeal/marketplace-api/internal/pkg/config"
	"github.com/straightdeal/marketplace-api/pkg/logger"
)

type options struct {
	email     string
	password  string
	firstName string
	lastName  string
	cost      int
}

func parseFlags(args []string, getenv func(string) string) (options, error) {
	var o options
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.StringVar(&o.email, "email", "", "admin email (required)")
	fs.StringVar(&o.password, "password", "", "admin password; defaults to $ADMIN_PASSWORD")
	fs.StringVar(&o.firstName, "first", "Admin", "first name")
	fs.StringVar(&o.lastName, "last", "", "last name")
	fs.IntVar(&o.cost, "bcrypt-cost", bcrypt.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.password == "" {
		o.password = getenv("ADMIN_PASSWORD")
	}
	o.email = domain.NormalizeEmail(o.email)
	if o.email == "" {
		return o, errors.New("-email is required")
	}
	if err := domain.ValidatePassword(o.password); err != nil {
		return o, err
	}
	return o, nil
}

func newAdmin(o options) (*domain.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(o.password), o.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &domain.Identity{
		Email:           o.email,
		PasswordHash:    string(hash),
		Role:            domain.RoleAdmin,
		Provider:        domain.ProviderLocal,
		FirstName:       strings.TrimSpace(o.firstName),
		LastName:        strings.TrimSpace(o.lastName),
		IsEmailVerified: true,
	}, nil
}

func main() {
	_ = godotenv.Load()
	log := logger.Init(logger.Options{Level: "info", Pretty: true, Service: "create-admin"})

	o, err := parseFlags(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	created, err := run(ctx, o)
	if err != nil {
		log.Error().Err(err).Str("email", o.email).Msg("failed to create admin")
		stop()
		os.Exit(1)
	}
	log.Info().Str("id", created.ID).Str("email", created.Email).Msg("admin created")
}

func run(ctx context.Context, o options) (*domain.Identity, error) {
	var mcfg config.MongoConfig
	if err := envconfig.Process(ctx, &mcfg); err != nil {
		return nil, fmt.Errorf("mongo configuration: %w", err)
	}

	client, err := mongostore.Connect(ctx, mongostore.Config{URI: mcfg.URI, Database: mcfg.Database})
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close(context.Background()) }()

	repo := mongostore.NewIdentityRepository(client.Database())
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	admin, err := newAdmin(o)
	if err != nil {
		return nil, err
	}
	created, err := repo.Create(ctx, admin)
	if errors.Is(err, domain.ErrEmailTaken) {
		return nil, errors.New("an identity with this email already exists")
	}
	return created, err
}
