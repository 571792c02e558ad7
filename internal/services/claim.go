package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "sort"
  "strings"
  "time"
  "gorm.io/gorm"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "github.com/campusfind/backend/internal/apierr"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

const (
  ClaimActionAccept = "accept"
  ClaimActionReject = "reject"
)

// ClaimView is a claim as seen by one side of the handoff. The verification
// code is only populated for the claimant of an accepted claim.
type ClaimView struct {
  *types.Claim
  VerificationCode string `json:"verification_code,omitempty"`
}

// RecoverySummary is returned from a successful finalize.
type RecoverySummary struct {
  Claim         *types.Claim `json:"claim"`
  Item          *types.Item  `json:"item"`
  FinderID      uuid.UUID    `json:"finder_id"`
  FinderBonus   int          `json:"finder_bonus"`
  ClaimantBonus int          `json:"claimant_bonus"`
}

// Notification is one entry of the derived notification feed.
type Notification struct {
  ID   string    `json:"id"`
  Text string    `json:"text"`
  Link string    `json:"link"`
  Time time.Time `json:"time"`
  Read bool      `json:"read"`
}

// ClaimService is the state machine coordinating claim submission,
// accept/reject, and completion. All cross-claim invariants live here and
// in the guarded repo updates it calls, never in the UI.
type ClaimService interface {
  Submit(ctx context.Context, itemID, claimantID uuid.UUID, message string) (*types.Claim, error)
  Respond(ctx context.Context, claimID, actorID uuid.UUID, action, responseMessage, meetingLocation string, meetingTime *time.Time) (*types.Claim, error)
  Finalize(ctx context.Context, code string, redeemerID uuid.UUID) (*RecoverySummary, error)
  ListForItem(ctx context.Context, itemID, viewerID uuid.UUID) ([]*ClaimView, error)
  ListMine(ctx context.Context, userID uuid.UUID) ([]*ClaimView, error)
  Notifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
  MarkNotificationRead(ctx context.Context, userID uuid.UUID, notificationID string) error
}

type claimService struct {
  db           *gorm.DB
  log          *logger.Logger
  itemRepo     repos.ItemRepo
  claimRepo    repos.ClaimRepo
  userRepo     repos.UserRepo
  verification VerificationService
  trustService TrustScoreService
  notifier     ClaimNotifier
}

func NewClaimService(
  db *gorm.DB,
  log *logger.Logger,
  itemRepo repos.ItemRepo,
  claimRepo repos.ClaimRepo,
  userRepo repos.UserRepo,
  verification VerificationService,
  trustService TrustScoreService,
  notifier ClaimNotifier,
) ClaimService {
  serviceLog := log.With("service", "ClaimService")
  return &claimService{
    db:           db,
    log:          serviceLog,
    itemRepo:     itemRepo,
    claimRepo:    claimRepo,
    userRepo:     userRepo,
    verification: verification,
    trustService: trustService,
    notifier:     notifier,
  }
}

// Submit creates a pending claim. A reporter cannot claim their own item
// and a user cannot hold a second non-rejected claim on the same item.
func (cs *claimService) Submit(ctx context.Context, itemID, claimantID uuid.UUID, message string) (*types.Claim, error) {
  items, err := cs.itemRepo.GetByIDs(ctx, nil, []uuid.UUID{itemID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load item: %w", err)
  }
  if len(items) == 0 {
    return nil, apierr.NotFound("item not found")
  }
  item := items[0]

  if item.UserID == claimantID {
    return nil, apierr.Forbidden("you cannot claim your own item")
  }
  if item.Status == types.ItemStatusClaimed {
    return nil, apierr.Conflict("this item has already been recovered")
  }

  claim := &types.Claim{
    ID:         uuid.New(),
    ItemID:     itemID,
    ClaimantID: claimantID,
    Message:    message,
    Status:     types.ClaimStatusPending,
  }

  err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, eErr := cs.claimRepo.GetByItemAndClaimant(ctx, tx, itemID, claimantID)
    if eErr != nil {
      return fmt.Errorf("Failed to check existing claims: %w", eErr)
    }
    for _, c := range existing {
      if c.Status != types.ClaimStatusRejected {
        return apierr.Conflict("you already have a claim on this item")
      }
    }
    if _, cErr := cs.claimRepo.Create(ctx, tx, []*types.Claim{claim}); cErr != nil {
      // ux_claim_item_claimant catches the submit that raced past the
      // read above.
      if errors.Is(cErr, gorm.ErrDuplicatedKey) {
        return apierr.Conflict("you already have a claim on this item")
      }
      return fmt.Errorf("Failed to create claim: %w", cErr)
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  cs.notifier.ClaimSubmitted(item.UserID, claim, item)
  return claim, nil
}

// Respond is the reporter's accept or reject. Accepting runs the
// first-accept-wins guard: concurrent accepts for different claims on the
// same item resolve to exactly one winner, the loser observes Conflict.
func (cs *claimService) Respond(ctx context.Context, claimID, actorID uuid.UUID, action, responseMessage, meetingLocation string, meetingTime *time.Time) (*types.Claim, error) {
  claims, err := cs.claimRepo.GetByIDs(ctx, nil, []uuid.UUID{claimID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load claim: %w", err)
  }
  if len(claims) == 0 {
    return nil, apierr.NotFound("claim not found")
  }
  claim := claims[0]

  item := claim.Item
  if item == nil {
    return nil, fmt.Errorf("Claim %s has no item loaded", claim.ID)
  }
  if item.UserID != actorID {
    return nil, apierr.Forbidden("only the item reporter can respond to a claim")
  }
  if claim.Status != types.ClaimStatusPending {
    return nil, apierr.InvalidState("this claim has already been responded to")
  }

  switch action {
  case ClaimActionReject:
    rejected, rErr := cs.claimRepo.RejectIfPending(ctx, nil, claim.ID, responseMessage)
    if rErr != nil {
      return nil, fmt.Errorf("Failed to reject claim: %w", rErr)
    }
    if !rejected {
      return nil, apierr.InvalidState("this claim has already been responded to")
    }
    claim.Status = types.ClaimStatusRejected
    claim.ResponseMessage = responseMessage
    cs.notifier.ClaimRejected(claim.ClaimantID, claim, item)
    return claim, nil

  case ClaimActionAccept:
    meetingLocation = strings.TrimSpace(meetingLocation)
    if meetingLocation == "" || meetingTime == nil {
      return nil, apierr.BadRequest("meeting location and time are required for acceptance")
    }
    if !meetingTime.After(time.Now()) {
      return nil, apierr.BadRequest("meeting time must be in the future")
    }

    err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
      accepted, aErr := cs.claimRepo.AcceptIfUncontested(ctx, tx, claim.ID, item.ID, responseMessage, meetingLocation, *meetingTime)
      if aErr != nil {
        // ux_claim_item_winner catches the accept whose snapshot missed a
        // concurrent winner on the same item.
        if errors.Is(aErr, gorm.ErrDuplicatedKey) {
          return apierr.Conflict("this item was already claimed by someone else")
        }
        return fmt.Errorf("Failed to accept claim: %w", aErr)
      }
      if !accepted {
        fresh, fErr := cs.claimRepo.GetByIDs(ctx, tx, []uuid.UUID{claim.ID})
        if fErr == nil && len(fresh) > 0 && fresh[0].Status != types.ClaimStatusPending {
          return apierr.InvalidState("this claim has already been responded to")
        }
        return apierr.Conflict("this item was already claimed by someone else")
      }
      if _, iErr := cs.verification.Issue(ctx, tx, claim.ID); iErr != nil {
        return iErr
      }
      return nil
    })
    if err != nil {
      return nil, err
    }

    claim.Status = types.ClaimStatusAccepted
    claim.ResponseMessage = responseMessage
    claim.MeetingLocation = meetingLocation
    claim.MeetingTime = meetingTime
    cs.notifier.ClaimAccepted(claim.ClaimantID, claim, item)
    return claim, nil

  default:
    return nil, apierr.BadRequest("action must be accept or reject")
  }
}

// Finalize redeems a verification code and completes the handoff: claim to
// completed, item to claimed, both parties credited. The whole transition
// runs in one transaction; a Forbidden redeemer rolls the redemption back,
// so the code stays live for the right person. Calling finalize again with
// an already-consumed code fails with NotFound and changes nothing.
func (cs *claimService) Finalize(ctx context.Context, code string, redeemerID uuid.UUID) (*RecoverySummary, error) {
  var summary *RecoverySummary

  err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    token, rErr := cs.verification.Redeem(ctx, tx, code)
    if rErr != nil {
      return rErr
    }

    claims, cErr := cs.claimRepo.GetByIDs(ctx, tx, []uuid.UUID{token.ClaimID})
    if cErr != nil {
      return fmt.Errorf("Failed to load claim for finalize: %w", cErr)
    }
    if len(claims) == 0 {
      return apierr.InvalidState("this code is invalid or expired")
    }
    claim := claims[0]
    item := claim.Item
    if item == nil {
      return fmt.Errorf("Claim %s has no item loaded", claim.ID)
    }

    if claim.Status != types.ClaimStatusAccepted {
      return apierr.InvalidState("this code is invalid or expired")
    }
    if redeemerID != item.UserID && redeemerID != claim.ClaimantID {
      return apierr.Forbidden("only the reporter or the claimant can verify this handoff")
    }

    completed, cmErr := cs.claimRepo.CompleteIfAccepted(ctx, tx, claim.ID)
    if cmErr != nil {
      return fmt.Errorf("Failed to complete claim: %w", cmErr)
    }
    if !completed {
      return apierr.InvalidState("this code is invalid or expired")
    }

    flipped, sErr := cs.itemRepo.SetStatusIfUnresolved(ctx, tx, item.ID, types.ItemStatusClaimed)
    if sErr != nil {
      return fmt.Errorf("Failed to mark item claimed: %w", sErr)
    }
    if !flipped {
      cs.log.Warn("Item was not unresolved at finalize", "itemID", item.ID, "claimID", claim.ID)
    }

    // The finder is whoever performed the recovery: the reporter of a
    // found item, the claimant of a lost one.
    finderID := item.UserID
    otherID := claim.ClaimantID
    if item.Type == types.ItemTypeLost {
      finderID = claim.ClaimantID
      otherID = item.UserID
    }

    claimID := claim.ID
    if crErr := cs.creditIgnoringDuplicates(ctx, tx, finderID, FinderBonus, types.TrustReasonRecoveredAsFinder, &claimID); crErr != nil {
      return crErr
    }
    if crErr := cs.creditIgnoringDuplicates(ctx, tx, otherID, ClaimantBonus, types.TrustReasonRecoveredAsClaimant, &claimID); crErr != nil {
      return crErr
    }

    claim.Status = types.ClaimStatusCompleted
    item.Status = types.ItemStatusClaimed
    summary = &RecoverySummary{
      Claim:         claim,
      Item:          item,
      FinderID:      finderID,
      FinderBonus:   FinderBonus,
      ClaimantBonus: ClaimantBonus,
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  cs.notifier.ClaimCompleted(summary.Item.UserID, summary.Claim, summary.Item)
  cs.notifier.ClaimCompleted(summary.Claim.ClaimantID, summary.Claim, summary.Item)
  return summary, nil
}

func (cs *claimService) creditIgnoringDuplicates(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, reason string, claimID *uuid.UUID) error {
  _, err := cs.trustService.Credit(ctx, tx, userID, delta, reason, claimID)
  if err != nil {
    if apierr.IsCode(err, apierr.CodeDuplicateReward) {
      cs.log.Debug("Reward already issued, skipping", "userID", userID, "reason", reason)
      return nil
    }
    return err
  }
  return nil
}

// ListForItem is the per-item read model. The reporter sees every claim
// with claimant details; anyone else sees only their own claims, with the
// active verification code attached when one exists.
func (cs *claimService) ListForItem(ctx context.Context, itemID, viewerID uuid.UUID) ([]*ClaimView, error) {
  items, err := cs.itemRepo.GetByIDs(ctx, nil, []uuid.UUID{itemID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load item: %w", err)
  }
  if len(items) == 0 {
    return nil, apierr.NotFound("item not found")
  }
  item := items[0]

  claims, err := cs.claimRepo.GetByItemIDs(ctx, nil, []uuid.UUID{itemID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load claims: %w", err)
  }

  views := make([]*ClaimView, 0, len(claims))
  for _, c := range claims {
    if item.UserID == viewerID {
      views = append(views, &ClaimView{Claim: c})
      continue
    }
    if c.ClaimantID != viewerID {
      continue
    }
    view := &ClaimView{Claim: c}
    if c.Status == types.ClaimStatusAccepted {
      token, tErr := cs.verification.ActiveFor(ctx, c.ID)
      if tErr != nil {
        return nil, tErr
      }
      if token != nil {
        view.VerificationCode = token.Code
      }
    }
    views = append(views, view)
  }
  return views, nil
}

func (cs *claimService) ListMine(ctx context.Context, userID uuid.UUID) ([]*ClaimView, error) {
  claims, err := cs.claimRepo.GetByClaimantIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load claims: %w", err)
  }
  views := make([]*ClaimView, 0, len(claims))
  for _, c := range claims {
    view := &ClaimView{Claim: c}
    if c.Status == types.ClaimStatusAccepted {
      token, tErr := cs.verification.ActiveFor(ctx, c.ID)
      if tErr != nil {
        return nil, tErr
      }
      if token != nil {
        view.VerificationCode = token.Code
      }
    }
    views = append(views, view)
  }
  return views, nil
}

// Notifications derives the feed from claim state instead of persisting
// notification rows; only the read-ids are stored, on the user.
func (cs *claimService) Notifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
  readSet, err := cs.readNotificationSet(ctx, userID)
  if err != nil {
    return nil, err
  }

  var feed []*Notification

  myItems, err := cs.itemRepo.ListByOwner(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list items: %w", err)
  }
  itemIDs := make([]uuid.UUID, 0, len(myItems))
  for _, it := range myItems {
    itemIDs = append(itemIDs, it.ID)
  }
  incoming, err := cs.claimRepo.GetByItemIDs(ctx, nil, itemIDs)
  if err != nil {
    return nil, fmt.Errorf("Failed to list incoming claims: %w", err)
  }
  for _, c := range incoming {
    if c.Status != types.ClaimStatusPending || c.Item == nil {
      continue
    }
    id := fmt.Sprintf("claim_%s_pending", c.ID)
    feed = append(feed, &Notification{
      ID:   id,
      Text: fmt.Sprintf("New claim request for: %s", c.Item.Description),
      Link: fmt.Sprintf("/item/%s", c.ItemID),
      Time: c.UpdatedAt,
      Read: readSet[id],
    })
  }

  mine, err := cs.claimRepo.GetByClaimantIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("Failed to list my claims: %w", err)
  }
  for _, c := range mine {
    if c.Item == nil {
      continue
    }
    var statusText string
    switch c.Status {
    case types.ClaimStatusAccepted, types.ClaimStatusRejected:
      statusText = c.Status
    case types.ClaimStatusCompleted:
      statusText = "verified & recovered"
    default:
      continue
    }
    id := fmt.Sprintf("claim_%s_%s", c.ID, c.Status)
    feed = append(feed, &Notification{
      ID:   id,
      Text: fmt.Sprintf("Your claim for '%s' was %s", c.Item.Description, statusText),
      Link: fmt.Sprintf("/item/%s", c.ItemID),
      Time: c.UpdatedAt,
      Read: readSet[id],
    })
  }

  sort.Slice(feed, func(i, j int) bool { return feed[i].Time.After(feed[j].Time) })
  return feed, nil
}

// MarkNotificationRead persists one read flag. The user row stays locked
// for the whole read-modify-write, so two concurrent marks cannot drop
// each other's id from the stored list.
func (cs *claimService) MarkNotificationRead(ctx context.Context, userID uuid.UUID, notificationID string) error {
  if strings.TrimSpace(notificationID) == "" {
    return apierr.BadRequest("notification id is required")
  }
  return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    user, err := cs.userRepo.GetForUpdate(ctx, tx, userID)
    if err != nil {
      return fmt.Errorf("Failed to load user: %w", err)
    }
    if user == nil {
      return apierr.NotFound("user not found")
    }

    readSet := decodeReadNotifications(user.ReadNotifications)
    if readSet[notificationID] {
      return nil
    }

    ids := make([]string, 0, len(readSet)+1)
    for id := range readSet {
      ids = append(ids, id)
    }
    ids = append(ids, notificationID)
    sort.Strings(ids)

    raw, err := json.Marshal(ids)
    if err != nil {
      return fmt.Errorf("Failed to encode read notifications: %w", err)
    }
    return cs.userRepo.UpdateFields(ctx, tx, userID, map[string]interface{}{
      "read_notifications": datatypes.JSON(raw),
    })
  })
}

func (cs *claimService) readNotificationSet(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
  users, err := cs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load user: %w", err)
  }
  if len(users) == 0 {
    return nil, apierr.NotFound("user not found")
  }
  return decodeReadNotifications(users[0].ReadNotifications), nil
}

func decodeReadNotifications(raw datatypes.JSON) map[string]bool {
  readSet := make(map[string]bool)
  if len(raw) > 0 {
    var ids []string
    if err := json.Unmarshal(raw, &ids); err == nil {
      for _, id := range ids {
        readSet[id] = true
      }
    }
  }
  return readSet
}
