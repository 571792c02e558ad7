package services

import (
  "context"
  "testing"
  "time"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

func TestCreateItem_ValidatesInput(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")

  cases := []struct {
    name string
    item *types.Item
  }{
    {"nil item", nil},
    {"bad type", &types.Item{UserID: reporter.ID, Type: "stolen", Description: "x"}},
    {"no description", &types.Item{UserID: reporter.ID, Type: types.ItemTypeLost}},
  }
  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      if _, err := env.items.Create(ctx, tc.item); !apierr.IsCode(err, apierr.CodeBadRequest) {
        t.Fatalf("expected bad_request got %v", err)
      }
    })
  }
}

func TestCreateItem_FoundReportEarnsBonus(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")

  _, err := env.items.Create(ctx, &types.Item{
    UserID:      reporter.ID,
    Type:        types.ItemTypeFound,
    Description: "silver water bottle",
  })
  if err != nil {
    t.Fatalf("create: %v", err)
  }

  total, err := env.trust.TotalFor(ctx, reporter.ID)
  if err != nil {
    t.Fatalf("total: %v", err)
  }
  if total != ReportBonus {
    t.Fatalf("expected report bonus %d got %d", ReportBonus, total)
  }
}

func TestCreateItem_LostReportEarnsNothing(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")

  _, err := env.items.Create(ctx, &types.Item{
    UserID:      reporter.ID,
    Type:        types.ItemTypeLost,
    Description: "blue umbrella",
  })
  if err != nil {
    t.Fatalf("create: %v", err)
  }

  total, _ := env.trust.TotalFor(ctx, reporter.ID)
  if total != 0 {
    t.Fatalf("losing something is not rewarded, got %d", total)
  }
}

func TestFeed_FiltersClaimedItemsByDefault(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")

  open := env.createItem(t, reporter.ID, types.ItemTypeFound)
  recovered := env.createItem(t, reporter.ID, types.ItemTypeFound)
  if _, err := env.itemRepo.SetStatusIfUnresolved(ctx, nil, recovered.ID, types.ItemStatusClaimed); err != nil {
    t.Fatalf("mark claimed: %v", err)
  }

  items, err := env.items.Feed(ctx, repos.ItemFilter{})
  if err != nil {
    t.Fatalf("feed: %v", err)
  }
  if len(items) != 1 || items[0].ID != open.ID {
    t.Fatalf("expected only the unresolved item, got %d items", len(items))
  }

  all, err := env.items.Feed(ctx, repos.ItemFilter{IncludeClaimed: true})
  if err != nil {
    t.Fatalf("feed all: %v", err)
  }
  if len(all) != 2 {
    t.Fatalf("expected both items with IncludeClaimed, got %d", len(all))
  }
}

func TestFeed_TextSearch(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")

  if _, err := env.items.Create(ctx, &types.Item{
    UserID:      reporter.ID,
    Type:        types.ItemTypeFound,
    Description: "red Nike running shoe",
  }); err != nil {
    t.Fatalf("create: %v", err)
  }
  if _, err := env.items.Create(ctx, &types.Item{
    UserID:      reporter.ID,
    Type:        types.ItemTypeFound,
    Description: "calculus textbook",
  }); err != nil {
    t.Fatalf("create: %v", err)
  }

  items, err := env.items.Feed(ctx, repos.ItemFilter{Query: "nike"})
  if err != nil {
    t.Fatalf("search: %v", err)
  }
  if len(items) != 1 {
    t.Fatalf("expected 1 search hit, got %d", len(items))
  }
}

func TestMyActivity_MergesReportsAndClaims(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  user := env.createUser(t, "user")
  other := env.createUser(t, "other")

  mine := env.createItem(t, user.ID, types.ItemTypeLost)
  theirs := env.createItem(t, other.ID, types.ItemTypeFound)
  theirs.ReportedAt = time.Now().Add(time.Minute)
  env.submitClaim(t, theirs.ID, user.ID)

  activity, err := env.items.MyActivity(ctx, user.ID)
  if err != nil {
    t.Fatalf("activity: %v", err)
  }
  if len(activity) != 2 {
    t.Fatalf("expected 2 activity items, got %d", len(activity))
  }
  ids := map[string]bool{}
  for _, it := range activity {
    ids[it.ID.String()] = true
  }
  if !ids[mine.ID.String()] || !ids[theirs.ID.String()] {
    t.Fatalf("activity missing an expected item")
  }
}
