package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/types"
)

type ClaimRepo interface {
  Create(ctx context.Context, tx *gorm.DB, claims []*types.Claim) ([]*types.Claim, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, claimIDs []uuid.UUID) ([]*types.Claim, error)
  GetByItemIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.Claim, error)
  GetByClaimantIDs(ctx context.Context, tx *gorm.DB, claimantIDs []uuid.UUID) ([]*types.Claim, error)
  GetByItemAndClaimant(ctx context.Context, tx *gorm.DB, itemID, claimantID uuid.UUID) ([]*types.Claim, error)
  AcceptIfUncontested(ctx context.Context, tx *gorm.DB, claimID, itemID uuid.UUID, responseMessage, meetingLocation string, meetingTime time.Time) (bool, error)
  RejectIfPending(ctx context.Context, tx *gorm.DB, claimID uuid.UUID, responseMessage string) (bool, error)
  CompleteIfAccepted(ctx context.Context, tx *gorm.DB, claimID uuid.UUID) (bool, error)
}

type claimRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewClaimRepo(db *gorm.DB, baseLog *logger.Logger) ClaimRepo {
  repoLog := baseLog.With("repo", "ClaimRepo")
  return &claimRepo{db: db, log: repoLog}
}

func (cr *claimRepo) Create(ctx context.Context, tx *gorm.DB, claims []*types.Claim) ([]*types.Claim, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(claims) == 0 {
    return []*types.Claim{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&claims).Error; err != nil {
    return nil, err
  }

  return claims, nil
}

func (cr *claimRepo) GetByIDs(ctx context.Context, tx *gorm.DB, claimIDs []uuid.UUID) ([]*types.Claim, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Claim

  if len(claimIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Preload("Item").
    Preload("Claimant").
    Where("id IN ?", claimIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *claimRepo) GetByItemIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.Claim, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Claim

  if len(itemIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Preload("Item").
    Preload("Claimant").
    Where("item_id IN ?", itemIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *claimRepo) GetByClaimantIDs(ctx context.Context, tx *gorm.DB, claimantIDs []uuid.UUID) ([]*types.Claim, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Claim

  if len(claimantIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Preload("Item").
    Where("claimant_id IN ?", claimantIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *claimRepo) GetByItemAndClaimant(ctx context.Context, tx *gorm.DB, itemID, claimantID uuid.UUID) ([]*types.Claim, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Claim

  if err := transaction.WithContext(ctx).
    Where("item_id = ? AND claimant_id = ?", itemID, claimantID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// AcceptIfUncontested is the first-accept-wins guard. The status check and
// the sibling-winner check run inside one UPDATE, and the partial unique
// index ux_claim_item_winner backs the check: under READ COMMITTED two
// concurrent accepts can each miss the other's uncommitted winner, so the
// later commit must fail on the index with gorm.ErrDuplicatedKey rather
// than produce a second accepted claim. Returns false when the claim was
// not pending anymore or another claim on the item already won.
func (cr *claimRepo) AcceptIfUncontested(ctx context.Context, tx *gorm.DB, claimID, itemID uuid.UUID, responseMessage, meetingLocation string, meetingTime time.Time) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Claim{}).
    Where("id = ? AND status = ?", claimID, types.ClaimStatusPending).
    Where(
      "NOT EXISTS (SELECT 1 FROM claim w WHERE w.item_id = ? AND w.status IN ? AND w.deleted_at IS NULL)",
      itemID,
      []string{types.ClaimStatusAccepted, types.ClaimStatusCompleted},
    ).
    Updates(map[string]interface{}{
      "status":           types.ClaimStatusAccepted,
      "response_message": responseMessage,
      "meeting_location": meetingLocation,
      "meeting_time":     meetingTime,
    })
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (cr *claimRepo) RejectIfPending(ctx context.Context, tx *gorm.DB, claimID uuid.UUID, responseMessage string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Claim{}).
    Where("id = ? AND status = ?", claimID, types.ClaimStatusPending).
    Updates(map[string]interface{}{
      "status":           types.ClaimStatusRejected,
      "response_message": responseMessage,
    })
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (cr *claimRepo) CompleteIfAccepted(ctx context.Context, tx *gorm.DB, claimID uuid.UUID) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Claim{}).
    Where("id = ? AND status = ?", claimID, types.ClaimStatusAccepted).
    Update("status", types.ClaimStatusCompleted)
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}
