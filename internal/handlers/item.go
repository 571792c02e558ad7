package handlers

import (
  "encoding/json"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/requestdata"
  "github.com/campusfind/backend/internal/services"
  "github.com/campusfind/backend/internal/types"
)

type ItemHandler struct {
  itemService  services.ItemService
  matchService services.MatchService
}

func NewItemHandler(itemService services.ItemService, matchService services.MatchService) *ItemHandler {
  return &ItemHandler{itemService: itemService, matchService: matchService}
}

func (ih *ItemHandler) Create(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  var req struct {
    Type        string   `json:"type"`
    Description string   `json:"description"`
    Location    string   `json:"location"`
    Category    string   `json:"category"`
    Color       string   `json:"color"`
    Brand       string   `json:"brand"`
    Features    []string `json:"features"`
    ImageURL    string   `json:"image_url"`
    ContactInfo string   `json:"contact_info"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  var features datatypes.JSON
  if len(req.Features) > 0 {
    raw, err := json.Marshal(req.Features)
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features list"})
      return
    }
    features = datatypes.JSON(raw)
  }
  item := types.Item{
    UserID:      rd.UserID,
    Type:        req.Type,
    Description: req.Description,
    Location:    req.Location,
    Category:    req.Category,
    Color:       req.Color,
    Brand:       req.Brand,
    Features:    features,
    ImageURL:    req.ImageURL,
    ContactInfo: req.ContactInfo,
  }
  created, err := ih.itemService.Create(c.Request.Context(), &item)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  c.JSON(http.StatusCreated, created)
}

func (ih *ItemHandler) Feed(c *gin.Context) {
  filter := repos.ItemFilter{
    Type:           c.Query("type"),
    Query:          c.Query("q"),
    IncludeClaimed: c.Query("include_claimed") == "true",
  }
  items, err := ih.itemService.Feed(c.Request.Context(), filter)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"items": items})
}

func (ih *ItemHandler) Get(c *gin.Context) {
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
    return
  }
  item, err := ih.itemService.Get(c.Request.Context(), itemID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, item)
}

func (ih *ItemHandler) MyActivity(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  items, err := ih.itemService.MyActivity(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"items": items})
}

func (ih *ItemHandler) Matches(c *gin.Context) {
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
    return
  }
  candidates, err := ih.matchService.CandidatesFor(c.Request.Context(), itemID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"matches": candidates})
}

func (ih *ItemHandler) RefreshMatches(c *gin.Context) {
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
    return
  }
  if err := ih.matchService.RefreshFor(c.Request.Context(), itemID); err != nil {
    RespondServiceError(c, err)
    return
  }
  candidates, err := ih.matchService.CandidatesFor(c.Request.Context(), itemID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"matches": candidates})
}
