package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/types"
  "github.com/campusfind/backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "campusfind", log)
  log.Debug("Environment variables loaded")

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  log.Info("Connecting to Postgres...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
    TranslateError:                           true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.Item{},
    &types.Claim{},
    &types.VerificationToken{},
    &types.TrustLedgerEntry{},
    &types.MatchCandidate{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  s.log.Info("Configuring foreign key relationships for postgres tables...")
  for _, stmt := range []string{
    `ALTER TABLE "user_token" ADD CONSTRAINT "fk_user_token_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
    `ALTER TABLE "item" ADD CONSTRAINT "fk_item_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
    `ALTER TABLE "claim" ADD CONSTRAINT "fk_claim_item_id" FOREIGN KEY ("item_id") REFERENCES "item"("id") ON DELETE CASCADE`,
    `ALTER TABLE "claim" ADD CONSTRAINT "fk_claim_claimant_id" FOREIGN KEY ("claimant_id") REFERENCES "user"("id") ON DELETE CASCADE`,
    `ALTER TABLE "verification_token" ADD CONSTRAINT "fk_verification_token_claim_id" FOREIGN KEY ("claim_id") REFERENCES "claim"("id") ON DELETE CASCADE`,
    `ALTER TABLE "trust_ledger_entry" ADD CONSTRAINT "fk_trust_ledger_entry_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
    `ALTER TABLE "match_candidate" ADD CONSTRAINT "fk_match_candidate_item_id" FOREIGN KEY ("item_id") REFERENCES "item"("id") ON DELETE CASCADE`,
  } {
    if err := s.db.Exec(stmt).Error; err != nil {
      s.log.Warn("Failed to add foreign key constraint", "stmt", stmt, "error", err)
    }
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
