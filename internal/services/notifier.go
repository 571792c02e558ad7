package services

import (
  "context"

  "github.com/google/uuid"

  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/realtime/bus"
  "github.com/campusfind/backend/internal/sse"
  "github.com/campusfind/backend/internal/types"
)

// ClaimNotifier fans claim-lifecycle events out to interested users. Every
// method is fire-and-forget: a single publish attempt, failures logged and
// swallowed. Claim-workflow correctness never depends on delivery.
type ClaimNotifier interface {
  ClaimSubmitted(reporterID uuid.UUID, claim *types.Claim, item *types.Item)
  ClaimAccepted(claimantID uuid.UUID, claim *types.Claim, item *types.Item)
  ClaimRejected(claimantID uuid.UUID, claim *types.Claim, item *types.Item)
  ClaimCompleted(userID uuid.UUID, claim *types.Claim, item *types.Item)
  ItemMatchesReady(reporterID uuid.UUID, itemID uuid.UUID, count int)
}

type claimNotifier struct {
  log *logger.Logger
  bus bus.Bus
}

func NewClaimNotifier(log *logger.Logger, b bus.Bus) ClaimNotifier {
  return &claimNotifier{log: log.With("service", "ClaimNotifier"), bus: b}
}

func (n *claimNotifier) publish(userID uuid.UUID, event sse.SSEEvent, data map[string]any) {
  if n == nil || n.bus == nil || userID == uuid.Nil {
    return
  }
  err := n.bus.Publish(context.Background(), sse.SSEMessage{
    Channel: userID.String(),
    Event:   event,
    Data:    data,
  })
  if err != nil {
    n.log.Warn("Failed to publish notification", "event", event, "userID", userID, "error", err)
  }
}

func (n *claimNotifier) ClaimSubmitted(reporterID uuid.UUID, claim *types.Claim, item *types.Item) {
  if claim == nil || item == nil {
    return
  }
  n.publish(reporterID, sse.SSEEventClaimSubmitted, map[string]any{
    "claim_id":    claim.ID,
    "item_id":     item.ID,
    "description": item.Description,
  })
}

func (n *claimNotifier) ClaimAccepted(claimantID uuid.UUID, claim *types.Claim, item *types.Item) {
  if claim == nil || item == nil {
    return
  }
  n.publish(claimantID, sse.SSEEventClaimAccepted, map[string]any{
    "claim_id":         claim.ID,
    "item_id":          item.ID,
    "description":      item.Description,
    "meeting_location": claim.MeetingLocation,
    "meeting_time":     claim.MeetingTime,
  })
}

func (n *claimNotifier) ClaimRejected(claimantID uuid.UUID, claim *types.Claim, item *types.Item) {
  if claim == nil || item == nil {
    return
  }
  n.publish(claimantID, sse.SSEEventClaimRejected, map[string]any{
    "claim_id":    claim.ID,
    "item_id":     item.ID,
    "description": item.Description,
  })
}

func (n *claimNotifier) ClaimCompleted(userID uuid.UUID, claim *types.Claim, item *types.Item) {
  if claim == nil || item == nil {
    return
  }
  n.publish(userID, sse.SSEEventClaimCompleted, map[string]any{
    "claim_id":    claim.ID,
    "item_id":     item.ID,
    "description": item.Description,
  })
}

func (n *claimNotifier) ItemMatchesReady(reporterID uuid.UUID, itemID uuid.UUID, count int) {
  n.publish(reporterID, sse.SSEEventItemMatchesReady, map[string]any{
    "item_id": itemID,
    "count":   count,
  })
}
