package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/types"
)

type MatchCandidateRepo interface {
  ReplaceForItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, candidates []*types.MatchCandidate) error
  GetByItemIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.MatchCandidate, error)
}

type matchCandidateRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMatchCandidateRepo(db *gorm.DB, baseLog *logger.Logger) MatchCandidateRepo {
  repoLog := baseLog.With("repo", "MatchCandidateRepo")
  return &matchCandidateRepo{db: db, log: repoLog}
}

// ReplaceForItem swaps the cached candidate set for an item in one
// transaction so readers never observe a half-written ranking.
func (mcr *matchCandidateRepo) ReplaceForItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, candidates []*types.MatchCandidate) error {
  transaction := tx
  if transaction == nil {
    transaction = mcr.db
  }

  return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
    if err := inner.Unscoped().
      Where("item_id = ?", itemID).
      Delete(&types.MatchCandidate{}).Error; err != nil {
      return err
    }
    if len(candidates) == 0 {
      return nil
    }
    return inner.Create(&candidates).Error
  })
}

func (mcr *matchCandidateRepo) GetByItemIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.MatchCandidate, error) {
  transaction := tx
  if transaction == nil {
    transaction = mcr.db
  }

  var results []*types.MatchCandidate

  if len(itemIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Preload("CandidateItem").
    Where("item_id IN ?", itemIDs).
    Order("confidence DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
