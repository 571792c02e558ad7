package services

import (
  "context"
  "fmt"
  "sort"
  "strings"
  "time"
  "gorm.io/gorm"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

type ItemService interface {
  Create(ctx context.Context, item *types.Item) (*types.Item, error)
  Get(ctx context.Context, itemID uuid.UUID) (*types.Item, error)
  Feed(ctx context.Context, filter repos.ItemFilter) ([]*types.Item, error)
  MyActivity(ctx context.Context, userID uuid.UUID) ([]*types.Item, error)
}

type itemService struct {
  db           *gorm.DB
  log          *logger.Logger
  itemRepo     repos.ItemRepo
  claimRepo    repos.ClaimRepo
  trustService TrustScoreService
  matchService MatchService
}

func NewItemService(db *gorm.DB, log *logger.Logger, itemRepo repos.ItemRepo, claimRepo repos.ClaimRepo, trustService TrustScoreService, matchService MatchService) ItemService {
  serviceLog := log.With("service", "ItemService")
  return &itemService{
    db:           db,
    log:          serviceLog,
    itemRepo:     itemRepo,
    claimRepo:    claimRepo,
    trustService: trustService,
    matchService: matchService,
  }
}

// Create stores a reported item and credits the report bonus for found
// items. Match candidates are computed in the background; a failing or slow
// producer never delays or fails the report.
func (is *itemService) Create(ctx context.Context, item *types.Item) (*types.Item, error) {
  if item == nil {
    return nil, apierr.BadRequest("item is required")
  }
  item.Type = strings.ToLower(strings.TrimSpace(item.Type))
  if item.Type != types.ItemTypeLost && item.Type != types.ItemTypeFound {
    return nil, apierr.BadRequest("item type must be lost or found")
  }
  if strings.TrimSpace(item.Description) == "" {
    return nil, apierr.BadRequest("a description is required")
  }
  if item.UserID == uuid.Nil {
    return nil, apierr.BadRequest("a reporter is required")
  }

  item.ID = uuid.New()
  item.Status = types.ItemStatusUnresolved
  if item.ReportedAt.IsZero() {
    item.ReportedAt = time.Now()
  }

  err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, cErr := is.itemRepo.Create(ctx, tx, []*types.Item{item}); cErr != nil {
      return fmt.Errorf("Failed to create item: %w", cErr)
    }
    // Reporting a found item helps someone else; losing something does not.
    if item.Type == types.ItemTypeFound {
      if _, tErr := is.trustService.Credit(ctx, tx, item.UserID, ReportBonus, types.TrustReasonReported, nil); tErr != nil {
        return fmt.Errorf("Failed to credit report bonus: %w", tErr)
      }
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  go is.refreshMatches(item.ID)

  return item, nil
}

func (is *itemService) refreshMatches(itemID uuid.UUID) {
  ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
  defer cancel()
  if err := is.matchService.RefreshFor(ctx, itemID); err != nil {
    is.log.Warn("Background match refresh failed", "itemID", itemID, "error", err)
  }
}

func (is *itemService) Get(ctx context.Context, itemID uuid.UUID) (*types.Item, error) {
  items, err := is.itemRepo.GetByIDs(ctx, nil, []uuid.UUID{itemID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load item: %w", err)
  }
  if len(items) == 0 {
    return nil, apierr.NotFound("item not found")
  }
  return items[0], nil
}

func (is *itemService) Feed(ctx context.Context, filter repos.ItemFilter) ([]*types.Item, error) {
  return is.itemRepo.Search(ctx, nil, filter)
}

// MyActivity merges the items a user reported with the items they have
// claims on, newest first, deduplicated.
func (is *itemService) MyActivity(ctx context.Context, userID uuid.UUID) ([]*types.Item, error) {
  reported, err := is.itemRepo.ListByOwner(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list reported items: %w", err)
  }

  claims, err := is.claimRepo.GetByClaimantIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("Failed to list claims: %w", err)
  }

  seen := make(map[uuid.UUID]bool, len(reported))
  combined := make([]*types.Item, 0, len(reported)+len(claims))
  for _, it := range reported {
    seen[it.ID] = true
    combined = append(combined, it)
  }
  for _, c := range claims {
    if c.Item == nil || seen[c.Item.ID] {
      continue
    }
    seen[c.Item.ID] = true
    combined = append(combined, c.Item)
  }

  sort.Slice(combined, func(i, j int) bool {
    return combined[i].ReportedAt.After(combined[j].ReportedAt)
  })
  return combined, nil
}
