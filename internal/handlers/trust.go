package handlers

import (
  "net/http"
  "strconv"
  "github.com/gin-gonic/gin"
  "github.com/campusfind/backend/internal/requestdata"
  "github.com/campusfind/backend/internal/services"
)

type TrustHandler struct {
  trustService services.TrustScoreService
}

func NewTrustHandler(trustService services.TrustScoreService) *TrustHandler {
  return &TrustHandler{trustService: trustService}
}

func (th *TrustHandler) Me(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  stats, err := th.trustService.StatsFor(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, stats)
}

func (th *TrustHandler) Leaderboard(c *gin.Context) {
  limit := 10
  if raw := c.Query("limit"); raw != "" {
    parsed, err := strconv.Atoi(raw)
    if err != nil || parsed < 1 || parsed > 100 {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
      return
    }
    limit = parsed
  }
  rows, err := th.trustService.Leaderboard(c.Request.Context(), limit)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"leaderboard": rows})
}
