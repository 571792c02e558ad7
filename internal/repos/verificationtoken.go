package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/types"
)

type VerificationTokenRepo interface {
  Create(ctx context.Context, tx *gorm.DB, tokens []*types.VerificationToken) ([]*types.VerificationToken, error)
  GetActiveByClaimIDs(ctx context.Context, tx *gorm.DB, claimIDs []uuid.UUID, now time.Time) ([]*types.VerificationToken, error)
  ActiveCodeExists(ctx context.Context, tx *gorm.DB, code string, now time.Time) (bool, error)
  ConsumeActiveByCode(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*types.VerificationToken, error)
}

type verificationTokenRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewVerificationTokenRepo(db *gorm.DB, baseLog *logger.Logger) VerificationTokenRepo {
  repoLog := baseLog.With("repo", "VerificationTokenRepo")
  return &verificationTokenRepo{db: db, log: repoLog}
}

func (vtr *verificationTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.VerificationToken) ([]*types.VerificationToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = vtr.db
  }

  if len(tokens) == 0 {
    return []*types.VerificationToken{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
    return nil, err
  }

  return tokens, nil
}

func (vtr *verificationTokenRepo) GetActiveByClaimIDs(ctx context.Context, tx *gorm.DB, claimIDs []uuid.UUID, now time.Time) ([]*types.VerificationToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = vtr.db
  }

  var results []*types.VerificationToken

  if len(claimIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("claim_id IN ? AND consumed = ? AND expires_at > ?", claimIDs, false, now).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (vtr *verificationTokenRepo) ActiveCodeExists(ctx context.Context, tx *gorm.DB, code string, now time.Time) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = vtr.db
  }

  var count int64

  if err := transaction.WithContext(ctx).
    Model(&types.VerificationToken{}).
    Where("code = ? AND consumed = ? AND expires_at > ?", code, false, now).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

// ConsumeActiveByCode redeems a code exactly once. The lookup narrows to the
// single active row, then a compare-and-set on the primary key flips the
// consumed flag; a concurrent redeemer loses the CAS and observes nil.
// Expired, consumed and unknown codes all come back nil so callers cannot
// tell them apart.
func (vtr *verificationTokenRepo) ConsumeActiveByCode(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*types.VerificationToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = vtr.db
  }

  var candidates []*types.VerificationToken
  if err := transaction.WithContext(ctx).
    Where("code = ? AND consumed = ? AND expires_at > ?", code, false, now).
    Find(&candidates).Error; err != nil {
    return nil, err
  }
  if len(candidates) == 0 {
    return nil, nil
  }

  token := candidates[0]
  res := transaction.WithContext(ctx).
    Model(&types.VerificationToken{}).
    Where("id = ? AND consumed = ?", token.ID, false).
    Update("consumed", true)
  if res.Error != nil {
    return nil, res.Error
  }
  if res.RowsAffected == 0 {
    return nil, nil
  }
  token.Consumed = true
  return token, nil
}
