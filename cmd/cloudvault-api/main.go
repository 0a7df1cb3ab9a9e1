package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/account"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/activity"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/auth"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/blob"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/config"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/database"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/files"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/logging"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/server"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/texts"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	tokenIssuer   = "cloudvault-auth"
	tokenAudience = "cloudvault-api"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cloudvault-api",
		Short: "CloudVault personal storage backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address (overrides port)")
	flags.String("http-port", defaults.GetString("http.port"), "HTTP listen port")
	flags.Int64("max-upload-mb", defaults.GetInt64("http.max_upload_mb"), "Maximum upload size in megabytes")
	flags.String("database-url", defaults.GetString("database.url"), "SQLite path or postgres:// URL")
	flags.String("signing-secret", "", "Token signing secret (overrides env)")
	flags.Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Token TTL in minutes")
	flags.String("allowed-origin", "", "Origin permitted by CORS")
	flags.String("blob-provider", defaults.GetString("blob.provider"), "Blob provider (s3, minio, memory)")
	flags.String("blob-bucket", "", "Blob bucket name")
	flags.String("blob-region", "", "Blob bucket region")
	flags.String("blob-endpoint", "", "Custom blob endpoint (MinIO or S3 compatible)")
	flags.String("blob-access-key", "", "Blob access key")
	flags.String("blob-secret-key", "", "Blob secret key")
	flags.String("blob-public-base-url", "", "Base URL used to build public object links")
	flags.Bool("blob-use-ssl", defaults.GetBool("blob.use_ssl"), "Use TLS for the blob endpoint")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.GetString("log.format"), "Log format (json, console)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.port", "http-port")
	bindFlag(cmd, "http.max_upload_mb", "max-upload-mb")
	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "cors.allowed_origin", "allowed-origin")
	bindFlag(cmd, "blob.provider", "blob-provider")
	bindFlag(cmd, "blob.bucket", "blob-bucket")
	bindFlag(cmd, "blob.region", "blob-region")
	bindFlag(cmd, "blob.endpoint", "blob-endpoint")
	bindFlag(cmd, "blob.access_key", "blob-access-key")
	bindFlag(cmd, "blob.secret_key", "blob-secret-key")
	bindFlag(cmd, "blob.public_base_url", "blob-public-base-url")
	bindFlag(cmd, "blob.use_ssl", "blob-use-ssl")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseURL, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        tokenIssuer,
		Audience:      tokenAudience,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	idProvider := ids.NewUUIDProvider()
	dispatcher := activity.NewDispatcher()

	blobs, err := blob.New(ctx, blob.Config{
		Provider:      appConfig.Blob.Provider,
		Bucket:        appConfig.Blob.Bucket,
		Region:        appConfig.Blob.Region,
		Endpoint:      appConfig.Blob.Endpoint,
		AccessKey:     appConfig.Blob.AccessKey,
		SecretKey:     appConfig.Blob.SecretKey,
		PublicBaseURL: appConfig.Blob.PublicBaseURL,
		UseSSL:        appConfig.Blob.UseSSL,
	}, idProvider, logger)
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Hasher:     auth.NewBcryptHasher(auth.DefaultPasswordCost),
		IDProvider: idProvider,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	activityService, err := activity.NewService(activity.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Publisher:  dispatcher,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	textService, err := texts.NewService(texts.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	fileService, err := files.NewService(files.ServiceConfig{
		Database:   db,
		Blobs:      blobs,
		IDProvider: idProvider,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	accountService, err := account.NewService(account.Dependencies{
		Files:    fileService,
		Texts:    textService,
		Activity: activityService,
		Users:    userService,
		Blobs:    blobs,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:   tokenManager,
		Users:          userService,
		Files:          fileService,
		Texts:          textService,
		Activity:       activityService,
		Accounts:       accountService,
		Stream:         dispatcher,
		Metrics:        server.NewMetrics(),
		AllowedOrigin:  appConfig.AllowedOrigin,
		MaxUploadBytes: appConfig.MaxUploadMB << 20,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("blob_provider", appConfig.Blob.Provider),
			zap.String("database_driver", database.DriverFor(appConfig.DatabaseURL)))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
