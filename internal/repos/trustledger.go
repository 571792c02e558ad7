package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/types"
)

// LeaderboardRow is one aggregated leaderboard position.
type LeaderboardRow struct {
  UserID uuid.UUID `json:"user_id"`
  Name   string    `json:"name"`
  Total  int       `json:"total"`
}

type TrustLedgerRepo interface {
  Append(ctx context.Context, tx *gorm.DB, entry *types.TrustLedgerEntry) (bool, error)
  TotalForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
  ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.TrustLedgerEntry, error)
  CountByUserAndReason(ctx context.Context, tx *gorm.DB, userID uuid.UUID, reason string) (int64, error)
  Leaderboard(ctx context.Context, tx *gorm.DB, limit int) ([]*LeaderboardRow, error)
}

type trustLedgerRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTrustLedgerRepo(db *gorm.DB, baseLog *logger.Logger) TrustLedgerRepo {
  repoLog := baseLog.With("repo", "TrustLedgerRepo")
  return &trustLedgerRepo{db: db, log: repoLog}
}

// Append inserts one ledger entry. The insert ignores conflicts on the
// (claim_id, reason) unique index, so retried credits report false instead
// of duplicating the reward.
func (tlr *trustLedgerRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.TrustLedgerEntry) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = tlr.db
  }

  if entry == nil {
    return false, nil
  }

  res := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "claim_id"}, {Name: "reason"}},
      DoNothing: true,
    }).
    Create(entry)
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (tlr *trustLedgerRepo) TotalForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
  transaction := tx
  if transaction == nil {
    transaction = tlr.db
  }

  var total int64
  if err := transaction.WithContext(ctx).
    Model(&types.TrustLedgerEntry{}).
    Where("user_id = ?", userID).
    Select("COALESCE(SUM(delta), 0)").
    Scan(&total).Error; err != nil {
    return 0, err
  }
  return int(total), nil
}

func (tlr *trustLedgerRepo) ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.TrustLedgerEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = tlr.db
  }

  var results []*types.TrustLedgerEntry

  if len(userIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (tlr *trustLedgerRepo) CountByUserAndReason(ctx context.Context, tx *gorm.DB, userID uuid.UUID, reason string) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = tlr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.TrustLedgerEntry{}).
    Where("user_id = ? AND reason = ?", userID, reason).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (tlr *trustLedgerRepo) Leaderboard(ctx context.Context, tx *gorm.DB, limit int) ([]*LeaderboardRow, error) {
  transaction := tx
  if transaction == nil {
    transaction = tlr.db
  }

  if limit <= 0 {
    limit = 10
  }

  var rows []*LeaderboardRow
  if err := transaction.WithContext(ctx).
    Model(&types.TrustLedgerEntry{}).
    Select(`trust_ledger_entry.user_id AS user_id, "user".name AS name, SUM(trust_ledger_entry.delta) AS total`).
    Joins(`JOIN "user" ON "user".id = trust_ledger_entry.user_id`).
    Group(`trust_ledger_entry.user_id, "user".name`).
    Order("total DESC").
    Limit(limit).
    Scan(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}
