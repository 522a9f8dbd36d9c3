package integration

import (
	"fmt"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/httpserver"
	"github.com/DmitryPogrebniuk/qms-sub001/pkg/koanf"
	"github.com/DmitryPogrebniuk/qms-sub001/pkg/postgres"
	"github.com/DmitryPogrebniuk/qms-sub001/pkg/vault"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/api"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/config"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/db"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/healthz"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/probe"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/repository"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServiceVersion is stamped into health reports; overridden at build time.
var ServiceVersion = "dev"

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use: "integration-config-service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cnf, err := koanf.Provide("config", config.Default())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			logger = logger.Named("integration")

			cfg := postgres.Config{
				Host:    cnf.Postgres.Host,
				Port:    cnf.Postgres.Port,
				User:    cnf.Postgres.Username,
				Passwd:  cnf.Postgres.Password,
				DB:      cnf.Postgres.DB,
				SSLMode: cnf.Postgres.SSLMode,
			}
			orm, err := postgres.NewClient(&cfg, logger.Named("postgres"))
			if err != nil {
				return fmt.Errorf("new postgres client: %w", err)
			}
			database := db.NewDatabase(orm)
			if err := database.Initialize(); err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}

			codec, err := vault.NewAESCodecFromHex(cnf.Vault.KeyID, cnf.Vault.KeyHex)
			if err != nil {
				return fmt.Errorf("load secret codec key: %w", err)
			}

			verifier, err := httpserver.NewOidcVerifier(ctx, cnf.Auth.IssuerURL, cnf.Auth.ClientID)
			if err != nil {
				return fmt.Errorf("new token verifier: %w", err)
			}

			repo := repository.NewIntegrationSQL(database)
			store := service.NewStore(repo, codec, logger)
			dispatcher := probe.NewDispatcher(logger, time.Duration(cnf.Probe.TimeoutSeconds)*time.Second)
			checker := healthz.NewChecker(store, dispatcher, ServiceVersion, logger)

			routes := api.New(logger, store, dispatcher, checker, verifier)

			logger.Info("starting integration config service", zap.String("address", cnf.Http.Address))
			return httpserver.RegisterAndStart(logger, cnf.Http.Address, routes)
		},
	}

	return cmd
}
