package services

import (
  "context"
  "fmt"
  "gorm.io/gorm"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

// Reward policy. Fixed constants, not configurable.
const (
  ReportBonus   = 5
  FinderBonus   = 10
  ClaimantBonus = 5
)

// TrustStats is the derived read model for a user's reputation. Level and
// badge are pure functions of the ledger; nothing here is persisted.
type TrustStats struct {
  UserID         uuid.UUID `json:"user_id"`
  Total          int       `json:"total"`
  Level          int       `json:"level"`
  Badge          string    `json:"badge"`
  ItemsReported  int64     `json:"items_reported"`
  ItemsRecovered int64     `json:"items_recovered"`
}

type TrustScoreService interface {
  Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, reason string, claimID *uuid.UUID) (int, error)
  TotalFor(ctx context.Context, userID uuid.UUID) (int, error)
  StatsFor(ctx context.Context, userID uuid.UUID) (*TrustStats, error)
  Leaderboard(ctx context.Context, limit int) ([]*repos.LeaderboardRow, error)
}

type trustScoreService struct {
  db         *gorm.DB
  log        *logger.Logger
  ledgerRepo repos.TrustLedgerRepo
}

func NewTrustScoreService(db *gorm.DB, log *logger.Logger, ledgerRepo repos.TrustLedgerRepo) TrustScoreService {
  serviceLog := log.With("service", "TrustScoreService")
  return &trustScoreService{db: db, log: serviceLog, ledgerRepo: ledgerRepo}
}

// Credit appends one ledger entry and returns the new running total. Safe
// to retry: a second credit for the same (claimID, reason) fails with
// DuplicateReward and leaves the ledger untouched.
func (ts *trustScoreService) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, reason string, claimID *uuid.UUID) (int, error) {
  switch reason {
  case types.TrustReasonReported, types.TrustReasonRecoveredAsFinder, types.TrustReasonRecoveredAsClaimant:
  default:
    return 0, fmt.Errorf("Unknown trust reason: %s", reason)
  }

  entry := &types.TrustLedgerEntry{
    ID:      uuid.New(),
    UserID:  userID,
    Delta:   delta,
    Reason:  reason,
    ClaimID: claimID,
  }
  inserted, err := ts.ledgerRepo.Append(ctx, tx, entry)
  if err != nil {
    return 0, fmt.Errorf("Failed to append trust ledger entry: %w", err)
  }
  if !inserted {
    return 0, apierr.DuplicateReward("reward already issued for this claim and reason")
  }

  total, err := ts.ledgerRepo.TotalForUser(ctx, tx, userID)
  if err != nil {
    return 0, fmt.Errorf("Failed to sum trust ledger: %w", err)
  }
  return total, nil
}

func (ts *trustScoreService) TotalFor(ctx context.Context, userID uuid.UUID) (int, error) {
  return ts.ledgerRepo.TotalForUser(ctx, nil, userID)
}

func (ts *trustScoreService) StatsFor(ctx context.Context, userID uuid.UUID) (*TrustStats, error) {
  total, err := ts.ledgerRepo.TotalForUser(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to sum trust ledger: %w", err)
  }
  reported, err := ts.ledgerRepo.CountByUserAndReason(ctx, nil, userID, types.TrustReasonReported)
  if err != nil {
    return nil, fmt.Errorf("Failed to count reported entries: %w", err)
  }
  asFinder, err := ts.ledgerRepo.CountByUserAndReason(ctx, nil, userID, types.TrustReasonRecoveredAsFinder)
  if err != nil {
    return nil, fmt.Errorf("Failed to count finder entries: %w", err)
  }
  asClaimant, err := ts.ledgerRepo.CountByUserAndReason(ctx, nil, userID, types.TrustReasonRecoveredAsClaimant)
  if err != nil {
    return nil, fmt.Errorf("Failed to count claimant entries: %w", err)
  }
  return &TrustStats{
    UserID:         userID,
    Total:          total,
    Level:          LevelForScore(total),
    Badge:          BadgeForScore(total),
    ItemsReported:  reported,
    ItemsRecovered: asFinder + asClaimant,
  }, nil
}

func (ts *trustScoreService) Leaderboard(ctx context.Context, limit int) ([]*repos.LeaderboardRow, error) {
  return ts.ledgerRepo.Leaderboard(ctx, nil, limit)
}

func LevelForScore(score int) int {
  if score < 0 {
    return 1
  }
  return score/25 + 1
}

func BadgeForScore(score int) string {
  switch {
  case score >= 100:
    return "campus_hero"
  case score >= 50:
    return "trusted_finder"
  case score >= 15:
    return "helper"
  default:
    return "newcomer"
  }
}
