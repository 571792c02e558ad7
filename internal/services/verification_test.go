package services

import (
  "context"
  "sync"
  "testing"
  "time"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/types"
)

func acceptedClaim(t *testing.T, env *testEnv) *types.Claim {
  t.Helper()
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)
  accepted, err := env.claims.Respond(ctx, claim.ID, reporter.ID, ClaimActionAccept, "", "student center", futureMeeting())
  if err != nil {
    t.Fatalf("accept: %v", err)
  }
  return accepted
}

func TestIssue_RequiresAcceptedClaim(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  reporter := env.createUser(t, "reporter")
  claimant := env.createUser(t, "claimant")
  item := env.createItem(t, reporter.ID, types.ItemTypeFound)
  claim := env.submitClaim(t, item.ID, claimant.ID)

  _, err := env.verification.Issue(ctx, nil, claim.ID)
  if !apierr.IsCode(err, apierr.CodeInvalidState) {
    t.Fatalf("expected invalid_state got %v", err)
  }
}

func TestIssue_SecondIssueWhileActiveFails(t *testing.T) {
  env := newTestEnv(t)
  claim := acceptedClaim(t, env)

  // Respond already issued a token for the accepted claim.
  _, err := env.verification.Issue(context.Background(), nil, claim.ID)
  if !apierr.IsCode(err, apierr.CodeAlreadyIssued) {
    t.Fatalf("expected already_issued got %v", err)
  }
}

func TestRedeem_UnknownCodeNotFound(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()

  if _, err := env.verification.Redeem(ctx, nil, ""); !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("expected not_found for empty code got %v", err)
  }
  if _, err := env.verification.Redeem(ctx, nil, "000000"); !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("expected not_found for unknown code got %v", err)
  }
}

func TestRedeem_ExpiredCodeFailsAndClaimStaysAccepted(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  claim := acceptedClaim(t, env)

  token, err := env.verification.ActiveFor(ctx, claim.ID)
  if err != nil || token == nil {
    t.Fatalf("active token: %v", err)
  }

  // Move the clock past the TTL.
  vs := env.verification.(*verificationService)
  vs.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

  _, err = env.claims.Finalize(ctx, token.Code, claim.ClaimantID)
  if !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("expected not_found for expired code got %v", err)
  }

  fresh, err := env.claimRepo.GetByIDs(ctx, nil, []uuid.UUID{claim.ID})
  if err != nil || len(fresh) == 0 {
    t.Fatalf("reload claim: %v", err)
  }
  if fresh[0].Status != types.ClaimStatusAccepted {
    t.Fatalf("claim must stay accepted after expired redeem, got %q", fresh[0].Status)
  }
}

func TestIssue_AllowedAgainAfterExpiry(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  claim := acceptedClaim(t, env)

  vs := env.verification.(*verificationService)
  vs.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

  token, err := env.verification.Issue(ctx, nil, claim.ID)
  if err != nil {
    t.Fatalf("reissue after expiry: %v", err)
  }
  if token == nil || len(token.Code) != 6 {
    t.Fatalf("expected a fresh 6 digit code, got %+v", token)
  }
}

func TestRedeem_ConcurrentRedeemsHaveOneWinner(t *testing.T) {
  env := newTestEnv(t)
  ctx := context.Background()
  claim := acceptedClaim(t, env)
  token, err := env.verification.ActiveFor(ctx, claim.ID)
  if err != nil || token == nil {
    t.Fatalf("active token: %v", err)
  }

  const redeemers = 4
  var wg sync.WaitGroup
  results := make([]error, redeemers)
  for i := 0; i < redeemers; i++ {
    wg.Add(1)
    go func(i int) {
      defer wg.Done()
      _, results[i] = env.verification.Redeem(ctx, nil, token.Code)
    }(i)
  }
  wg.Wait()

  winners := 0
  for _, err := range results {
    if err == nil {
      winners++
    } else if !apierr.IsCode(err, apierr.CodeNotFound) {
      t.Fatalf("unexpected redeem error: %v", err)
    }
  }
  if winners != 1 {
    t.Fatalf("expected exactly one successful redeem, got %d", winners)
  }
}
