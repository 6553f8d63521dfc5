package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostelhub.backend/internal/config"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/internal/infrastructure/datasources/postgres"
	"hostelhub.backend/internal/infrastructure/repositories"
	"hostelhub.backend/internal/usecases"
	"hostelhub.backend/pkg/crypto"
	"hostelhub.backend/pkg/jwt"
)

const generatedPasswordBytes = 12

var openCreateAdminDB = func(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{})
}

type adminBootstrapper interface {
	BootstrapAdmin(ctx context.Context, input *entities.CreateUserInput) (*entities.User, bool, error)
}

type createAdminDeps struct {
	loadEnv     func() error
	loadCfg     func() *config.Config
	prepare     func(cfg *config.Config) (adminBootstrapper, io.Closer, error)
	genPassword func() (string, error)
	out         io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultCreateAdminDeps() createAdminDeps {
	return createAdminDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (adminBootstrapper, io.Closer, error) {
			sqlDB, err := postgres.NewConnection(cfg.Database)
			if err != nil {
				return nil, nil, err
			}
			db, err := openCreateAdminDB(sqlDB)
			if err != nil {
				_ = sqlDB.Close()
				return nil, nil, fmt.Errorf("failed to init gorm: %w", err)
			}
			if err := repositories.AutoMigrate(db); err != nil {
				_ = sqlDB.Close()
				return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
			}

			crypto.SetCost(cfg.Security.BcryptCost)
			jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
			return usecases.NewAuthUsecase(repositories.NewUserRepository(db), jwtService), sqlDB, nil
		},
		genPassword: func() (string, error) { return crypto.GenerateRandomToken(generatedPasswordBytes) },
		out:         os.Stdout,
	}
}

func runCreateAdmin(args []string, deps createAdminDeps) error {
	def := defaultCreateAdminDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.genPassword == nil {
		deps.genPassword = def.genPassword
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	emailFlag := fs.String("email", "", "admin email (required)")
	nameFlag := fs.String("name", "", "display name for a new account; ADMIN_NAME when empty")
	passwordFlag := fs.String("password", "", "password for a new account; ADMIN_PASSWORD or a generated one when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email := strings.TrimSpace(*emailFlag)
	if email == "" {
		return fmt.Errorf("--email is required")
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := deps.loadCfg()

	name := strings.TrimSpace(*nameFlag)
	if name == "" {
		name = cfg.Admin.Name
	}
	password := *passwordFlag
	if password == "" {
		password = cfg.Admin.Password
	}
	generated := false
	if password == "" {
		p, err := deps.genPassword()
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		password, generated = p, true
	}

	runtime, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	user, created, err := runtime.BootstrapAdmin(context.Background(), &entities.CreateUserInput{
		Email:    email,
		Name:     name,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	if created {
		_, _ = fmt.Fprintln(deps.out, "Created ADMIN account")
	} else {
		_, _ = fmt.Fprintln(deps.out, "Promoted existing account to ADMIN; password unchanged")
	}
	_, _ = fmt.Fprintf(deps.out, "user_id=%s\n", user.ID.String())
	_, _ = fmt.Fprintf(deps.out, "email=%s\n", user.Email)
	if created && generated {
		_, _ = fmt.Fprintf(deps.out, "PASSWORD=%s\n", password)
	}
	return nil
}

func main() {
	if err := runCreateAdmin(os.Args[1:], defaultCreateAdminDeps()); err != nil {
		log.Fatal(err)
	}
}
