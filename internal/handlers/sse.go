package handlers

import (
  "net/http"
  "sync"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/requestdata"
  "github.com/campusfind/backend/internal/sse"
)

type SSEHandler struct {
  log *logger.Logger
  hub *sse.SSEHub

  mu      sync.RWMutex
  clients map[uuid.UUID]*sse.SSEClient
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log:     log.With("Handler", "SSEHandler"),
    hub:     hub,
    clients: make(map[uuid.UUID]*sse.SSEClient),
  }
}

// SSEStream opens the event stream for the authenticated user. A new
// connection from the same user replaces the old one.
func (sh *SSEHandler) SSEStream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  userID := rd.UserID

  sh.mu.Lock()
  if existing, ok := sh.clients[userID]; ok {
    sh.hub.CloseClient(existing)
    delete(sh.clients, userID)
  }
  client := sh.hub.NewSSEClient(userID)
  sh.clients[userID] = client
  sh.mu.Unlock()

  sh.hub.AddChannel(client, userID.String())

  sh.hub.ServeHTTP(c.Writer, c.Request, client)

  sh.mu.Lock()
  if current, ok := sh.clients[userID]; ok && current == client {
    delete(sh.clients, userID)
  }
  sh.mu.Unlock()
  sh.hub.CloseClient(client)
}

func (sh *SSEHandler) SSESubscribe(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  var req struct {
    Channel string `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
    return
  }
  sh.mu.RLock()
  client, exists := sh.clients[rd.UserID]
  sh.mu.RUnlock()
  if !exists {
    c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection"})
    return
  }
  sh.hub.AddChannel(client, req.Channel)
  c.JSON(http.StatusOK, gin.H{"message": "subscribed", "channel": req.Channel})
}

func (sh *SSEHandler) SSEUnsubscribe(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  var req struct {
    Channel string `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
    return
  }
  sh.mu.RLock()
  client, exists := sh.clients[rd.UserID]
  sh.mu.RUnlock()
  if !exists {
    c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection"})
    return
  }
  sh.hub.RemoveChannel(client, req.Channel)
  c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "channel": req.Channel})
}
