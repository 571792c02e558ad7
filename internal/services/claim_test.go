package services

import (
  "context"
  "errors"
  "regexp"
  "sync"
  "testing"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/types"
)

func TestSubmit_CreatesPendingClaim(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)

  claim, err := env.claims.Submit(ctx, item.ID, claimant.ID, "that backpack is mine")
  if err != nil {
    t.Fatalf("submit: %v", err)
  }
  if claim.Status != types.ClaimStatusPending {
    t.Fatalf("expected pending got %q", claim.Status)
  }
  if claim.ItemID != item.ID || claim.ClaimantID != claimant.ID {
    t.Fatalf("claim bound to wrong item/claimant")
  }
}

func TestSubmit_SelfClaimForbidden(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)

  _, err := env.claims.Submit(ctx, item.ID, reporter.ID, "mine")
  if !apierr.IsCode(err, apierr.CodeForbidden) {
    t.Fatalf("expected forbidden got %v", err)
  }
}

func TestSubmit_MissingItemNotFound(t *testing.T) {
  env := newTestEnv(t)
  claimant := env.createUser(t, "claimant")

  _, err := env.claims.Submit(context.Background(), uuid.New(), claimant.ID, "mine")
  if !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("expected not_found got %v", err)
  }
}

func TestSubmit_DuplicatePendingClaimConflict(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)

  env.submitClaim(t, item.ID, claimant.ID)
  _, err := env.claims.Submit(ctx, item.ID, claimant.ID, "again")
  if !apierr.IsCode(err, apierr.CodeConflict) {
    t.Fatalf("expected conflict got %v", err)
  }
}

func TestSubmit_AllowedAgainAfterRejection(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)

  claim := env.submitClaim(t, item.ID, claimant.ID)
  if _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionReject, "no proof", "", nil); err != nil {
    t.Fatalf("reject: %v", err)
  }

  if _, err := env.claims.Submit(ctx, item.ID, claimant.ID, "with proof this time"); err != nil {
    t.Fatalf("resubmit after rejection: %v", err)
  }
}

func TestSubmit_ConcurrentDuplicateSubmitsHaveOneWinner(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)

  const attempts = 4
  var wg sync.WaitGroup
  errs := make([]error, attempts)
  for i := 0; i < attempts; i++ {
    wg.Add(1)
    go func(i int) {
      defer wg.Done()
      _, errs[i] = env.claims.Submit(ctx, item.ID, claimant.ID, "that is mine")
    }(i)
  }
  wg.Wait()

  created := 0
  for _, err := range errs {
    if err == nil {
      created++
    } else if !apierr.IsCode(err, apierr.CodeConflict) {
      t.Fatalf("unexpected duplicate submit error: %v", err)
    }
  }
  if created != 1 {
    t.Fatalf("expected exactly one created claim, got %d", created)
  }

  claims, err := env.claimRepo.GetByItemAndClaimant(ctx, nil, item.ID, claimant.ID)
  if err != nil {
    t.Fatalf("load claims: %v", err)
  }
  if len(claims) != 1 {
    t.Fatalf("expected one claim row, got %d", len(claims))
  }
}

// The service checks for an existing claim before inserting, but the check
// and the insert see separate snapshots under concurrency. The partial
// unique index must reject a second non-rejected claim even when the
// service-level check is bypassed entirely.
func TestSubmit_ActiveClaimUniquePerClaimantAtDatabase(t *testing.T) {
  env := newTestEnv(t)
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  env.submitClaim(t, item.ID, claimant.ID)

  dupe := &types.Claim{
    ID:         uuid.New(),
    ItemID:     item.ID,
    ClaimantID: claimant.ID,
    Message:    "again",
    Status:     types.ClaimStatusPending,
  }
  err := env.db.Create(dupe).Error
  if !errors.Is(err, gorm.ErrDuplicatedKey) {
    t.Fatalf("expected duplicated key error got %v", err)
  }
}

func TestRespond_OnlyReporterMayRespond(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  stranger := env.createUser(t, "stranger")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  _, err := env.claims.Respond(ctx, claim.ID, stranger.ID, ClaimActionReject, "", "", nil)
  if !apierr.IsCode(err, apierr.CodeForbidden) {
    t.Fatalf("expected forbidden got %v", err)
  }
}

func TestRespond_AcceptRequiresMeetingDetails(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "ok", "", nil)
  if !apierr.IsCode(err, apierr.CodeBadRequest) {
    t.Fatalf("expected bad_request got %v", err)
  }
}

func TestRespond_AcceptIssuesSixDigitCode(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  accepted, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "see you there", "library entrance", futureMeeting())
  if err != nil {
    t.Fatalf("accept: %v", err)
  }
  if accepted.Status != types.ClaimStatusAccepted {
    t.Fatalf("expected accepted got %q", accepted.Status)
  }

  token, err := env.verification.ActiveFor(ctx, claim.ID)
  if err != nil {
    t.Fatalf("active token: %v", err)
  }
  if token == nil {
    t.Fatalf("expected an active verification token")
  }
  if !regexp.MustCompile(`^\d{6}$`).MatchString(token.Code) {
    t.Fatalf("expected 6 digit code got %q", token.Code)
  }
}

func TestRespond_SecondAcceptOnSameItemConflicts(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  first := env.createUser(t, "first")
  second := env.createUser(t, "second")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claimA := env.submitClaim(t, item.ID, first.ID)
  claimB := env.submitClaim(t, item.ID, second.ID)

  if _, err := env.claims.Respond(ctx, claimA.ID, reporter.ID, ClaimActionAccept, "", "quad", futureMeeting()); err != nil {
    t.Fatalf("first accept: %v", err)
  }
  _, err := env.claims.Respond(ctx, claimB.ID, reporter.ID, ClaimActionAccept, "", "quad", futureMeeting())
  if !apierr.IsCode(err, apierr.CodeConflict) {
    t.Fatalf("expected conflict got %v", err)
  }

  fresh, err := env.claimRepo.GetByIDs(ctx, nil, []uuid.UUID{claimB.ID})
  if err != nil || len(fresh) == 0 {
    t.Fatalf("reload claim: %v", err)
  }
  if fresh[0].Status != types.ClaimStatusPending {
    t.Fatalf("losing claim should stay pending, got %q", fresh[0].Status)
  }
}

func TestRespond_ConcurrentAcceptsHaveOneWinner(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)

  const claimants = 4
  claimIDs := make([]uuid.UUID, claimants)
  for i := 0; i < claimants; i++ {
    c := env.createUser(t, "claimant")
    claimIDs[i] = env.submitClaim(t, item.ID, c.ID).ID
  }

  var wg sync.WaitGroup
  errs := make([]error, claimants)
  for i := 0; i < claimants; i++ {
    wg.Add(1)
    go func(i int) {
      defer wg.Done()
      _, errs[i] = env.claims.Respond(ctx, claimIDs[i], reporter.ID, ClaimActionAccept, "", "quad", futureMeeting())
    }(i)
  }
  wg.Wait()

  winners := 0
  for _, err := range errs {
    if err == nil {
      winners++
    } else if !apierr.IsCode(err, apierr.CodeConflict) && !apierr.IsCode(err, apierr.CodeInvalidState) {
      t.Fatalf("unexpected loser error: %v", err)
    }
  }
  if winners != 1 {
    t.Fatalf("expected exactly one winning accept, got %d", winners)
  }
}

// First-accept-wins cannot rest on the NOT EXISTS subquery alone: under
// READ COMMITTED two accepts for different claims update different rows and
// neither snapshot sees the other's winner. The partial unique index on
// item_id must reject the second winner even when the guarded update is
// sidestepped, as it is here by writing the status directly.
func TestRespond_AcceptedWinnerUniquePerItemAtDatabase(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  first := env.createUser(t, "first")
  second := env.createUser(t, "second")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claimA := env.submitClaim(t, item.ID, first.ID)
  claimB := env.submitClaim(t, item.ID, second.ID)

  if _, err := env.claims.Respond(ctx, claimA.ID, reporter.ID, ClaimActionAccept, "", "quad", futureMeeting()); err != nil {
    t.Fatalf("first accept: %v", err)
  }

  err := env.db.Model(&types.Claim{}).
    Where("id = ?", claimB.ID).
    Update("status", types.ClaimStatusAccepted).Error
  if !errors.Is(err, gorm.ErrDuplicatedKey) {
    t.Fatalf("expected duplicated key error got %v", err)
  }

  fresh, err := env.claimRepo.GetByIDs(ctx, nil, []uuid.UUID{claimB.ID})
  if err != nil || len(fresh) == 0 {
    t.Fatalf("reload claim: %v", err)
  }
  if fresh[0].Status != types.ClaimStatusPending {
    t.Fatalf("losing claim should stay pending, got %q", fresh[0].Status)
  }
}

func TestFinalize_CompletesHandoffAndCreditsBothParties(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  if _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "", "library", futureMeeting()); err != nil {
    t.Fatalf("accept: %v", err)
  }
  token, err := env.verification.ActiveFor(ctx, claim.ID)
  if err != nil || token == nil {
    t.Fatalf("active token: %v", err)
  }

  summary, err := env.claims.Finalize(ctx, token.Code, claimant.ID)
  if err != nil {
    t.Fatalf("finalize: %v", err)
  }
  if summary.Claim.Status != types.ClaimStatusCompleted {
    t.Fatalf("expected completed got %q", summary.Claim.Status)
  }
  if summary.Item.Status != types.ItemStatusClaimed {
    t.Fatalf("expected item claimed got %q", summary.Item.Status)
  }
  // Reporter of a found item acted as finder.
  if summary.FinderID != reporter.ID {
    t.Fatalf("expected finder %s got %s", reporter.ID, summary.FinderID)
  }

  reporterTotal, err := env.trust.TotalFor(ctx, reporter.ID)
  if err != nil {
    t.Fatalf("reporter total: %v", err)
  }
  if reporterTotal != FinderBonus {
    t.Fatalf("expected reporter total %d got %d", FinderBonus, reporterTotal)
  }
  claimantTotal, err := env.trust.TotalFor(ctx, claimant.ID)
  if err != nil {
    t.Fatalf("claimant total: %v", err)
  }
  if claimantTotal != ClaimantBonus {
    t.Fatalf("expected claimant total %d got %d", ClaimantBonus, claimantTotal)
  }
}

func TestFinalize_LostItemClaimantIsFinder(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  owner := env.createUser(t, "owner")
  finder := env.createUser(t, "finder")
  item := env.createItem(t, owner.ID, types.ItemTypeLost)
  claim := env.submitClaim(t, item.ID, finder.ID)

  if _, err := env.claims.Respond(ctx, claim.ID, owner.ID, ClaimActionAccept, "", "cafeteria", futureMeeting()); err != nil {
    t.Fatalf("accept: %v", err)
  }
  token, err := env.verification.ActiveFor(ctx, claim.ID)
  if err != nil || token == nil {
    t.Fatalf("active token: %v", err)
  }

  summary, err := env.claims.Finalize(ctx, token.Code, owner.ID)
  if err != nil {
    t.Fatalf("finalize: %v", err)
  }
  if summary.FinderID != finder.ID {
    t.Fatalf("on a lost item the claimant recovered it, expected finder %s got %s", finder.ID, summary.FinderID)
  }

  finderTotal, _ := env.trust.TotalFor(ctx, finder.ID)
  if finderTotal != FinderBonus {
    t.Fatalf("expected finder total %d got %d", FinderBonus, finderTotal)
  }
}

func TestFinalize_DoubleRedeemFails(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  if _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "", "gym", futureMeeting()); err != nil {
    t.Fatalf("accept: %v", err)
  }
  token, _ := env.verification.ActiveFor(ctx, claim.ID)
  if token == nil {
    t.Fatalf("expected active token")
  }

  if _, err := env.claims.Finalize(ctx, token.Code, claimant.ID); err != nil {
    t.Fatalf("first redeem: %v", err)
  }
  _, err := env.claims.Finalize(ctx, token.Code, claimant.ID)
  if !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("expected not_found on second redeem got %v", err)
  }

  claimantTotal, _ := env.trust.TotalFor(ctx, claimant.ID)
  if claimantTotal != ClaimantBonus {
    t.Fatalf("double redeem must not double credit, got %d", claimantTotal)
  }
}

func TestFinalize_StrangerForbiddenAndCodeStaysLive(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  stranger := env.createUser(t, "stranger")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  if _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "", "dorm lobby", futureMeeting()); err != nil {
    t.Fatalf("accept: %v", err)
  }
  token, _ := env.verification.ActiveFor(ctx, claim.ID)
  if token == nil {
    t.Fatalf("expected active token")
  }

  _, err := env.claims.Finalize(ctx, token.Code, stranger.ID)
  if !apierr.IsCode(err, apierr.CodeForbidden) {
    t.Fatalf("expected forbidden got %v", err)
  }

  // The rollback kept the token redeemable for the right person.
  if _, err := env.claims.Finalize(ctx, token.Code, claimant.ID); err != nil {
    t.Fatalf("claimant redeem after stranger attempt: %v", err)
  }
}

func TestListForItem_ReporterSeesAllOthersSeeOwn(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  first := env.createUser(t, "first")
  second := env.createUser(t, "second")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  env.submitClaim(t, item.ID, first.ID)
  env.submitClaim(t, item.ID, second.ID)

  all, err := env.claims.ListForItem(ctx, item.ID, reporter.ID)
  if err != nil {
    t.Fatalf("reporter list: %v", err)
  }
  if len(all) != 2 {
    t.Fatalf("reporter should see 2 claims, got %d", len(all))
  }

  own, err := env.claims.ListForItem(ctx, item.ID, first.ID)
  if err != nil {
    t.Fatalf("claimant list: %v", err)
  }
  if len(own) != 1 || own[0].ClaimantID != first.ID {
    t.Fatalf("claimant should only see their own claim")
  }
}

func TestListForItem_ClaimantSeesCodeAfterAccept(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  if _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "", "bookstore", futureMeeting()); err != nil {
    t.Fatalf("accept: %v", err)
  }

  views, err := env.claims.ListForItem(ctx, item.ID, claimant.ID)
  if err != nil {
    t.Fatalf("list: %v", err)
  }
  if len(views) != 1 || views[0].VerificationCode == "" {
    t.Fatalf("claimant view should carry the verification code")
  }

  reporterViews, err := env.claims.ListForItem(ctx, item.ID, reporter.ID)
  if err != nil {
    t.Fatalf("reporter list: %v", err)
  }
  if len(reporterViews) != 1 || reporterViews[0].VerificationCode != "" {
    t.Fatalf("reporter view must not leak the verification code")
  }
}

func TestNotifications_FeedAndMarkRead(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  feed, err := env.claims.Notifications(ctx, reporter.ID)
  if err != nil {
    t.Fatalf("reporter feed: %v", err)
  }
  if len(feed) != 1 || feed[0].Read {
    t.Fatalf("expected one unread pending-claim notification, got %+v", feed)
  }

  if err := env.claims.MarkNotificationRead(ctx, reporter.ID, feed[0].ID); err != nil {
    t.Fatalf("mark read: %v", err)
  }
  feed, err = env.claims.Notifications(ctx, reporter.ID)
  if err != nil {
    t.Fatalf("feed after read: %v", err)
  }
  if len(feed) != 1 || !feed[0].Read {
    t.Fatalf("expected the notification to be read")
  }

  if _, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionReject, "not yours", "", nil); err != nil {
    t.Fatalf("reject: %v", err)
  }
  claimantFeed, err := env.claims.Notifications(ctx, claimant.ID)
  if err != nil {
    t.Fatalf("claimant feed: %v", err)
  }
  if len(claimantFeed) != 1 {
    t.Fatalf("claimant should see a rejection notification, got %d", len(claimantFeed))
  }
}

// Two marks racing on the same user must not drop each other: the stored
// id list is read-modify-write, so each mark locks the user row first.
func TestMarkNotificationRead_ConcurrentMarksKeepBoth(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  itemA := env.createItem(t, reporter.ID, types.ItemTypeFound)
  itemB := env.createItem(t, reporter.ID, types.ItemTypeFound)
  env.submitClaim(t, itemA.ID, claimant.ID)
  env.submitClaim(t, itemB.ID, claimant.ID)

  feed, err := env.claims.Notifications(ctx, reporter.ID)
  if err != nil {
    t.Fatalf("feed: %v", err)
  }
  if len(feed) != 2 {
    t.Fatalf("expected two notifications, got %d", len(feed))
  }

  var wg sync.WaitGroup
  errs := make([]error, len(feed))
  for i := range feed {
    wg.Add(1)
    go func(i int) {
      defer wg.Done()
      errs[i] = env.claims.MarkNotificationRead(ctx, reporter.ID, feed[i].ID)
    }(i)
  }
  wg.Wait()
  for _, err := range errs {
    if err != nil {
      t.Fatalf("mark read: %v", err)
    }
  }

  feed, err = env.claims.Notifications(ctx, reporter.ID)
  if err != nil {
    t.Fatalf("feed after marks: %v", err)
  }
  for _, n := range feed {
    if !n.Read {
      t.Fatalf("notification %s lost its read flag", n.ID)
    }
  }
}
