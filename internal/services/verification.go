package services

import (
  "context"
  "crypto/rand"
  "fmt"
  "math/big"
  "time"
  "gorm.io/gorm"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

const codeSpace = 1000000 // 6 decimal digits

// VerificationService mints and redeems the one-time handoff codes. A code
// is unique among currently-active tokens only; once consumed or expired it
// may be minted again for another claim.
type VerificationService interface {
  Issue(ctx context.Context, tx *gorm.DB, claimID uuid.UUID) (*types.VerificationToken, error)
  Redeem(ctx context.Context, tx *gorm.DB, code string) (*types.VerificationToken, error)
  ActiveFor(ctx context.Context, claimID uuid.UUID) (*types.VerificationToken, error)
  TTL() time.Duration
}

type verificationService struct {
  db        *gorm.DB
  log       *logger.Logger
  claimRepo repos.ClaimRepo
  tokenRepo repos.VerificationTokenRepo
  ttl       time.Duration
  now       func() time.Time
}

func NewVerificationService(db *gorm.DB, log *logger.Logger, claimRepo repos.ClaimRepo, tokenRepo repos.VerificationTokenRepo, ttl time.Duration) VerificationService {
  serviceLog := log.With("service", "VerificationService")
  return &verificationService{
    db:        db,
    log:       serviceLog,
    claimRepo: claimRepo,
    tokenRepo: tokenRepo,
    ttl:       ttl,
    now:       time.Now,
  }
}

// Issue mints the code for an accepted claim. Fails with InvalidState when
// the claim is not accepted and AlreadyIssued when an active token already
// exists for it.
func (vs *verificationService) Issue(ctx context.Context, tx *gorm.DB, claimID uuid.UUID) (*types.VerificationToken, error) {
  claims, err := vs.claimRepo.GetByIDs(ctx, tx, []uuid.UUID{claimID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load claim for token issue: %w", err)
  }
  if len(claims) == 0 {
    return nil, apierr.NotFound("claim not found")
  }
  claim := claims[0]
  if claim.Status != types.ClaimStatusAccepted {
    return nil, apierr.InvalidState("verification codes are only issued for accepted claims")
  }

  now := vs.now()
  active, err := vs.tokenRepo.GetActiveByClaimIDs(ctx, tx, []uuid.UUID{claimID}, now)
  if err != nil {
    return nil, fmt.Errorf("Failed to check active tokens: %w", err)
  }
  if len(active) > 0 {
    return nil, apierr.AlreadyIssued("an active verification code already exists for this claim")
  }

  code, err := vs.generateUniqueCode(ctx, tx, now)
  if err != nil {
    return nil, err
  }

  token := &types.VerificationToken{
    ID:        uuid.New(),
    ClaimID:   claimID,
    Code:      code,
    ExpiresAt: now.Add(vs.ttl),
  }
  created, err := vs.tokenRepo.Create(ctx, tx, []*types.VerificationToken{token})
  if err != nil {
    return nil, fmt.Errorf("Failed to persist verification token: %w", err)
  }
  return created[0], nil
}

// Redeem consumes a code exactly once and returns the token with its bound
// claim id. Unknown, expired and already-consumed codes are all NotFound;
// callers cannot distinguish them.
func (vs *verificationService) Redeem(ctx context.Context, tx *gorm.DB, code string) (*types.VerificationToken, error) {
  if code == "" {
    return nil, apierr.NotFound("this code is invalid or expired")
  }
  token, err := vs.tokenRepo.ConsumeActiveByCode(ctx, tx, code, vs.now())
  if err != nil {
    return nil, fmt.Errorf("Failed to redeem verification code: %w", err)
  }
  if token == nil {
    return nil, apierr.NotFound("this code is invalid or expired")
  }
  return token, nil
}

func (vs *verificationService) ActiveFor(ctx context.Context, claimID uuid.UUID) (*types.VerificationToken, error) {
  tokens, err := vs.tokenRepo.GetActiveByClaimIDs(ctx, nil, []uuid.UUID{claimID}, vs.now())
  if err != nil {
    return nil, fmt.Errorf("Failed to load active token: %w", err)
  }
  if len(tokens) == 0 {
    return nil, nil
  }
  return tokens[0], nil
}

func (vs *verificationService) TTL() time.Duration {
  return vs.ttl
}

func (vs *verificationService) generateUniqueCode(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
  // Collision against another active code is a 1-in-a-million event; a
  // handful of retries is plenty.
  for attempt := 0; attempt < 10; attempt++ {
    n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
    if err != nil {
      return "", fmt.Errorf("Failed to generate verification code: %w", err)
    }
    code := fmt.Sprintf("%06d", n.Int64())
    exists, err := vs.tokenRepo.ActiveCodeExists(ctx, tx, code, now)
    if err != nil {
      return "", fmt.Errorf("Failed to check code collision: %w", err)
    }
    if !exists {
      return code, nil
    }
    vs.log.Debug("Verification code collision, retrying", "attempt", attempt)
  }
  return "", fmt.Errorf("Exhausted verification code generation attempts")
}
