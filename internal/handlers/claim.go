package handlers

import (
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/requestdata"
  "github.com/campusfind/backend/internal/services"
)

type ClaimHandler struct {
  claimService services.ClaimService
}

func NewClaimHandler(claimService services.ClaimService) *ClaimHandler {
  return &ClaimHandler{claimService: claimService}
}

func (ch *ClaimHandler) Submit(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  var req struct {
    ItemID  string `json:"item_id"`
    Message string `json:"message"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  itemID, err := uuid.Parse(req.ItemID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
    return
  }
  claim, err := ch.claimService.Submit(c.Request.Context(), itemID, rd.UserID, req.Message)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  c.JSON(http.StatusCreated, claim)
}

func (ch *ClaimHandler) Respond(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  claimID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim id"})
    return
  }
  var req struct {
    Action          string     `json:"action"`
    ResponseMessage string     `json:"response_message"`
    MeetingLocation string     `json:"meeting_location"`
    MeetingTime     *time.Time `json:"meeting_time"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  claim, err := ch.claimService.Respond(c.Request.Context(), claimID, rd.UserID, req.Action, req.ResponseMessage, req.MeetingLocation, req.MeetingTime)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, claim)
}

func (ch *ClaimHandler) Verify(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  var req struct {
    Code string `json:"code"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  summary, err := ch.claimService.Finalize(c.Request.Context(), req.Code, rd.UserID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, summary)
}

func (ch *ClaimHandler) ListForItem(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
    return
  }
  claims, err := ch.claimService.ListForItem(c.Request.Context(), itemID, rd.UserID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"claims": claims})
}

func (ch *ClaimHandler) ListMine(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  claims, err := ch.claimService.ListMine(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"claims": claims})
}

func (ch *ClaimHandler) Notifications(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  notifications, err := ch.claimService.Notifications(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"notifications": notifications})
}

func (ch *ClaimHandler) MarkNotificationRead(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  var req struct {
    NotificationID string `json:"notification_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.NotificationID == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := ch.claimService.MarkNotificationRead(c.Request.Context(), rd.UserID, req.NotificationID); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"success": "true"})
}
