package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/api"
	"github.com/botsmithhq/botsmith/internal/app"
	iauth "github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/auth/sso"
	"github.com/botsmithhq/botsmith/internal/database"
	"github.com/botsmithhq/botsmith/internal/maintenance"
	"github.com/botsmithhq/botsmith/internal/notify"
	"github.com/botsmithhq/botsmith/internal/services"
	"github.com/botsmithhq/botsmith/pkg/logger"
	"github.com/botsmithhq/botsmith/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("botsmith-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}
	dispatcher := notify.NewDispatcher(mailer)
	defer dispatcher.Wait()

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	deps, err := buildServices(db, jwtService, dispatcher, cfg)
	if err != nil {
		return err
	}

	cleaner, err := maintenance.NewCleaner(db)
	if err != nil {
		return fmt.Errorf("initialise maintenance: %w", err)
	}
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		<-stopCtx.Done()
	}()

	router, err := api.NewRouter(deps)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func buildServices(db *gorm.DB, jwtService *iauth.JWTService, dispatcher *notify.Dispatcher, cfg *app.Config) (api.Dependencies, error) {
	emailEnabled := cfg.Email.Enabled

	access, err := services.NewAccessService(db, jwtService,
		services.WithInviteAcceptanceGate(emailEnabled))
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise access service: %w", err)
	}

	users, err := services.NewUserService(db,
		services.WithEmailVerification(emailEnabled),
		services.WithBotAccess(access))
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise user service: %w", err)
	}

	seeder, err := services.NewSeeder(db, cfg.Seed.Template)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise seeder: %w", err)
	}

	accountOpts := []services.AccountOption{}
	if emailEnabled {
		accountOpts = append(accountOpts, services.WithVerificationTokens(jwtService))
	}
	accounts, err := services.NewAccountService(db, access, users, seeder, accountOpts...)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise account service: %w", err)
	}

	invites, err := services.NewInviteService(access, jwtService, dispatcher,
		services.WithInviteBaseURL(cfg.App.URL),
		services.WithInviteEmail(emailEnabled))
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise invite service: %w", err)
	}

	verification, err := services.NewVerificationService(db, users, jwtService, dispatcher,
		services.WithVerificationBaseURL(cfg.App.URL),
		services.WithVerificationEmail(emailEnabled))
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise verification service: %w", err)
	}

	feedback, err := services.NewFeedbackService(db)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise feedback service: %w", err)
	}

	authn, err := iauth.NewAuthenticator(users, jwtService)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise authenticator: %w", err)
	}

	registry := sso.NewRegistry(
		ssoCredentials(cfg.SSO.Google),
		ssoCredentials(cfg.SSO.Facebook),
		ssoCredentials(cfg.SSO.LinkedIn),
	)

	return api.Dependencies{
		JWT:          jwtService,
		Authn:        authn,
		SSO:          registry,
		Access:       access,
		Accounts:     accounts,
		Users:        users,
		Invites:      invites,
		Verification: verification,
		Feedback:     feedback,
		EmailEnabled: emailEnabled,
	}, nil
}

func ssoCredentials(cfg app.SSOProviderConfig) sso.Credentials {
	return sso.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
	}
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseServiceConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
