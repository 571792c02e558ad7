package repos

import (
  "context"
  "strings"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/types"
)

// ItemFilter narrows the public feed. Zero values mean "no filter".
type ItemFilter struct {
  Type           string
  Query          string
  IncludeClaimed bool
}

type ItemRepo interface {
  Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.Item, error)
  ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Item, error)
  Search(ctx context.Context, tx *gorm.DB, filter ItemFilter) ([]*types.Item, error)
  ListOpenByType(ctx context.Context, tx *gorm.DB, itemType string) ([]*types.Item, error)
  SetStatusIfUnresolved(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) (bool, error)
}

type itemRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
  repoLog := baseLog.With("repo", "ItemRepo")
  return &itemRepo{db: db, log: repoLog}
}

func (ir *itemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  if len(items) == 0 {
    return []*types.Item{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
    return nil, err
  }

  return items, nil
}

func (ir *itemRepo) GetByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  var results []*types.Item

  if len(itemIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Preload("User").
    Where("id IN ?", itemIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (ir *itemRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  var results []*types.Item

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", ownerID).
    Order("reported_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (ir *itemRepo) Search(ctx context.Context, tx *gorm.DB, filter ItemFilter) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  query := transaction.WithContext(ctx).Model(&types.Item{})

  if !filter.IncludeClaimed {
    query = query.Where("status <> ?", types.ItemStatusClaimed)
  }
  if filter.Type != "" && filter.Type != "all" {
    query = query.Where("type = ?", filter.Type)
  }
  if filter.Query != "" {
    like := "%" + strings.ToLower(filter.Query) + "%"
    query = query.Where(
      "LOWER(description) LIKE ? OR LOWER(category) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(location) LIKE ?",
      like, like, like, like,
    )
  }

  var results []*types.Item
  if err := query.Order("reported_at DESC").Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (ir *itemRepo) ListOpenByType(ctx context.Context, tx *gorm.DB, itemType string) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  var results []*types.Item

  if err := transaction.WithContext(ctx).
    Where("type = ? AND status = ?", itemType, types.ItemStatusUnresolved).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// SetStatusIfUnresolved flips the item status only from unresolved. The
// rows-affected result tells the caller whether this call did the flip.
func (ir *itemRepo) SetStatusIfUnresolved(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Item{}).
    Where("id = ? AND status = ?", itemID, types.ItemStatusUnresolved).
    Update("status", status)
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}
