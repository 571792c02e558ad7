package services

import (
  "context"
  "testing"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/types"
)

func TestCredit_AccumulatesTotal(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  user := env.createUser(t, "finder")

  total, err := env.trust.Credit(ctx, nil, user.ID, ReportBonus, types.TrustReasonReported, nil)
  if err != nil {
    t.Fatalf("first credit: %v", err)
  }
  if total != ReportBonus {
    t.Fatalf("expected total %d got %d", ReportBonus, total)
  }

  claimID := uuid.New()
  total, err = env.trust.Credit(ctx, nil, user.ID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID)
  if err != nil {
    t.Fatalf("second credit: %v", err)
  }
  if total != ReportBonus+FinderBonus {
    t.Fatalf("expected total %d got %d", ReportBonus+FinderBonus, total)
  }
}

func TestCredit_SameClaimAndReasonIsDuplicate(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  user := env.createUser(t, "finder")
  claimID := uuid.New()

  if _, err := env.trust.Credit(ctx, nil, user.ID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID); err != nil {
    t.Fatalf("first credit: %v", err)
  }
  _, err := env.trust.Credit(ctx, nil, user.ID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID)
  if !apierr.IsCode(err, apierr.CodeDuplicateReward) {
    t.Fatalf("expected duplicate_reward got %v", err)
  }

  total, _ := env.trust.TotalFor(ctx, user.ID)
  if total != FinderBonus {
    t.Fatalf("duplicate must not change total, got %d", total)
  }
}

func TestCredit_SameClaimDifferentReasonAllowed(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  user := env.createUser(t, "both-sides")
  claimID := uuid.New()

  if _, err := env.trust.Credit(ctx, nil, user.ID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID); err != nil {
    t.Fatalf("finder credit: %v", err)
  }
  if _, err := env.trust.Credit(ctx, nil, user.ID, ClaimantBonus, types.TrustReasonRecoveredAsClaimant, &claimID); err != nil {
    t.Fatalf("claimant credit: %v", err)
  }
  total, _ := env.trust.TotalFor(ctx, user.ID)
  if total != FinderBonus+ClaimantBonus {
    t.Fatalf("expected %d got %d", FinderBonus+ClaimantBonus, total)
  }
}

func TestCredit_UnknownReasonRejected(t *testing.T) {
  env := newTestEnv(t)
  user := env.createUser(t, "user")

  if _, err := env.trust.Credit(context.Background(), nil, user.ID, 5, "being_nice", nil); err == nil {
    t.Fatalf("expected error for unknown reason")
  }
}

func TestStatsFor_CountsAndBadges(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  user := env.createUser(t, "busy")

  for i := 0; i < 2; i++ {
    if _, err := env.trust.Credit(ctx, nil, user.ID, ReportBonus, types.TrustReasonReported, nil); err != nil {
      t.Fatalf("report credit %d: %v", i, err)
    }
  }
  claimID := uuid.New()
  if _, err := env.trust.Credit(ctx, nil, user.ID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID); err != nil {
    t.Fatalf("finder credit: %v", err)
  }

  stats, err := env.trust.StatsFor(ctx, user.ID)
  if err != nil {
    t.Fatalf("stats: %v", err)
  }
  if stats.Total != 2*ReportBonus+FinderBonus {
    t.Fatalf("expected total %d got %d", 2*ReportBonus+FinderBonus, stats.Total)
  }
  if stats.ItemsReported != 2 || stats.ItemsRecovered != 1 {
    t.Fatalf("unexpected counts: %+v", stats)
  }
  if stats.Badge != "helper" {
    t.Fatalf("expected badge helper got %q", stats.Badge)
  }
}

func TestLevelForScore(t *testing.T) {
  cases := []struct {
    score int
    level int
  }{
    {-5, 1},
    {0, 1},
    {24, 1},
    {25, 2},
    {70, 3},
    {100, 5},
  }
  for _, tc := range cases {
    if got := LevelForScore(tc.score); got != tc.level {
      t.Errorf("LevelForScore(%d) = %d, want %d", tc.score, got, tc.level)
    }
  }
}

func TestBadgeForScore(t *testing.T) {
  cases := []struct {
    score int
    badge string
  }{
    {0, "newcomer"},
    {14, "newcomer"},
    {15, "helper"},
    {50, "trusted_finder"},
    {100, "campus_hero"},
  }
  for _, tc := range cases {
    if got := BadgeForScore(tc.score); got != tc.badge {
      t.Errorf("BadgeForScore(%d) = %q, want %q", tc.score, got, tc.badge)
    }
  }
}

func TestLeaderboard_OrdersByTotal(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  low := env.createUser(t, "low")
  high := env.createUser(t, "high")

  if _, err := env.trust.Credit(ctx, nil, low.ID, ReportBonus, types.TrustReasonReported, nil); err != nil {
    t.Fatalf("low credit: %v", err)
  }
  claimID := uuid.New()
  if _, err := env.trust.Credit(ctx, nil, high.ID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID); err != nil {
    t.Fatalf("high credit: %v", err)
  }

  rows, err := env.trust.Leaderboard(ctx, 10)
  if err != nil {
    t.Fatalf("leaderboard: %v", err)
  }
  if len(rows) != 2 {
    t.Fatalf("expected 2 rows got %d", len(rows))
  }
  if rows[0].UserID != high.ID || rows[0].Total != FinderBonus {
    t.Fatalf("expected %s on top, got %+v", high.ID, rows[0])
  }
}
