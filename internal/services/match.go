package services

import (
  "context"
  "fmt"
  "sort"
  "strings"
  "sync"
  "gorm.io/gorm"
  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

// Match is one ranked suggestion from a producer. Confidence is 0..100 and
// rationale is an opaque human-readable string; the core never branches on
// either.
type Match struct {
  CandidateItemID uuid.UUID
  Confidence      int
  Rationale       string
}

// MatchProducer ranks candidate opposite-type items for a source item. An
// AI-backed producer plugs in here; the built-in fallback scores stored
// feature overlap.
type MatchProducer interface {
  FindCandidates(ctx context.Context, source *types.Item, candidates []*types.Item) ([]Match, error)
}

type MatchService interface {
  RefreshFor(ctx context.Context, itemID uuid.UUID) error
  CandidatesFor(ctx context.Context, itemID uuid.UUID) ([]*types.MatchCandidate, error)
}

type matchService struct {
  db        *gorm.DB
  log       *logger.Logger
  itemRepo  repos.ItemRepo
  matchRepo repos.MatchCandidateRepo
  producer  MatchProducer
  notifier  ClaimNotifier
}

func NewMatchService(db *gorm.DB, log *logger.Logger, itemRepo repos.ItemRepo, matchRepo repos.MatchCandidateRepo, producer MatchProducer, notifier ClaimNotifier) MatchService {
  serviceLog := log.With("service", "MatchService")
  return &matchService{
    db:        db,
    log:       serviceLog,
    itemRepo:  itemRepo,
    matchRepo: matchRepo,
    producer:  producer,
    notifier:  notifier,
  }
}

// RefreshFor recomputes and caches the ranked candidate set for an item.
// Runs off the claim paths; producer failures end here, logged, and never
// reach a caller of the claim workflow.
func (ms *matchService) RefreshFor(ctx context.Context, itemID uuid.UUID) error {
  items, err := ms.itemRepo.GetByIDs(ctx, nil, []uuid.UUID{itemID})
  if err != nil {
    return fmt.Errorf("Failed to load item for matching: %w", err)
  }
  if len(items) == 0 {
    return fmt.Errorf("Item not found for matching: %s", itemID)
  }
  source := items[0]

  candidates, err := ms.itemRepo.ListOpenByType(ctx, nil, source.OppositeType())
  if err != nil {
    return fmt.Errorf("Failed to list candidate items: %w", err)
  }

  matches, err := ms.producer.FindCandidates(ctx, source, candidates)
  if err != nil {
    ms.log.Warn("Match producer failed", "itemID", itemID, "error", err)
    return nil
  }

  cached := make([]*types.MatchCandidate, 0, len(matches))
  for _, m := range matches {
    cached = append(cached, &types.MatchCandidate{
      ID:              uuid.New(),
      ItemID:          source.ID,
      CandidateItemID: m.CandidateItemID,
      Confidence:      m.Confidence,
      Rationale:       m.Rationale,
    })
  }
  if err := ms.matchRepo.ReplaceForItem(ctx, nil, source.ID, cached); err != nil {
    return fmt.Errorf("Failed to cache match candidates: %w", err)
  }

  if len(cached) > 0 {
    ms.notifier.ItemMatchesReady(source.UserID, source.ID, len(cached))
  }
  return nil
}

func (ms *matchService) CandidatesFor(ctx context.Context, itemID uuid.UUID) ([]*types.MatchCandidate, error) {
  return ms.matchRepo.GetByItemIDs(ctx, nil, []uuid.UUID{itemID})
}

// featureMatcher scores stored feature overlap: category 40, color 30,
// brand 20, keep everything at or above 30, top five. Mirrors the ranking
// used when no AI producer is configured.
type featureMatcher struct {
  log *logger.Logger
}

func NewFeatureMatcher(log *logger.Logger) MatchProducer {
  return &featureMatcher{log: log.With("service", "FeatureMatcher")}
}

func (fm *featureMatcher) FindCandidates(ctx context.Context, source *types.Item, candidates []*types.Item) ([]Match, error) {
  if source == nil || len(candidates) == 0 {
    return nil, nil
  }

  var mu sync.Mutex
  var matches []Match

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(8)
  for _, cand := range candidates {
    cand := cand
    if cand.ID == source.ID {
      continue
    }
    g.Go(func() error {
      if gctx.Err() != nil {
        return gctx.Err()
      }
      score, rationale := scoreFeatureOverlap(source, cand)
      if score < 30 {
        return nil
      }
      mu.Lock()
      matches = append(matches, Match{
        CandidateItemID: cand.ID,
        Confidence:      score,
        Rationale:       "Basic feature match: " + rationale,
      })
      mu.Unlock()
      return nil
    })
  }
  if err := g.Wait(); err != nil {
    return nil, err
  }

  sort.Slice(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
  if len(matches) > 5 {
    matches = matches[:5]
  }
  return matches, nil
}

func scoreFeatureOverlap(source, cand *types.Item) (int, string) {
  score := 0
  var reasons []string

  if source.Category != "" && cand.Category != "" &&
    strings.EqualFold(source.Category, cand.Category) {
    score += 40
    reasons = append(reasons, fmt.Sprintf("same category (%s)", source.Category))
  }
  if source.Color != "" && cand.Color != "" {
    sc := strings.ToLower(source.Color)
    cc := strings.ToLower(cand.Color)
    if strings.Contains(sc, cc) || strings.Contains(cc, sc) {
      score += 30
      reasons = append(reasons, fmt.Sprintf("similar color (%s)", source.Color))
    }
  }
  if source.Brand != "" && cand.Brand != "" &&
    strings.Contains(strings.ToLower(cand.Brand), strings.ToLower(source.Brand)) {
    score += 20
    reasons = append(reasons, fmt.Sprintf("same brand (%s)", source.Brand))
  }

  return score, strings.Join(reasons, ", ")
}
