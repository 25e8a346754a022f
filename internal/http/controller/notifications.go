package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/domain"
	"notifyd/internal/http/dto"
	"notifyd/internal/http/resp"
	"notifyd/internal/model"
	"notifyd/internal/service/notify"
	"notifyd/internal/sse"
)

type Handler struct {
	cfg *config.Config
	svc *notify.Service
	hub *sse.Hub
	log *zap.Logger
}

func NewHandler(cfg *config.Config, svc *notify.Service, hub *sse.Hub, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, svc: svc, hub: hub, log: logger}
}

func (h *Handler) Health(c *gin.Context) {
	state := domain.StateDisconnected
	if h.svc.Snapshot().Connected {
		state = domain.StateConnected
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Channel: string(state)})
}

func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot())
}

func (h *Handler) History(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	history, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to load history"})
		return
	}
	if history == nil {
		history = []model.Notification{}
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{Notifications: history})
}

func (h *Handler) Refresh(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	h.accepted(c, h.svc.Refresh(c.Request.Context(), limit))
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "id must be a positive integer"})
		return
	}
	h.accepted(c, h.svc.MarkRead(c.Request.Context(), id))
}

// accepted maps the result of a fire-and-forget command. The server answers
// on the socket, so success only means the frame was written.
func (h *Handler) accepted(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, dto.StatusResponse{Code: resp.CodeQueued, Message: "sent"})
	case errors.Is(err, domain.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Code: resp.CodeNotConnected, Message: "notification channel is not connected"})
	case errors.Is(err, domain.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "limit must be positive"})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to send command"})
	}
}

func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SessionResponse{
		LoggedIn:  h.svc.LoggedIn(),
		Connected: h.svc.Snapshot().Connected,
	})
}

func (h *Handler) PutSession(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	if err := h.svc.Login(req.Token); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "token required"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to store token"})
		return
	}
	c.JSON(http.StatusAccepted, dto.StatusResponse{Code: resp.CodeQueued, Message: "connecting"})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.Logout(); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to clear token"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SSE(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.log.Error("streaming unsupported")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	client := sse.NewClient()
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// Registered first so no change between the initial write and the
	// subscription is lost.
	var seq uint64
	if err := writeSnapshot(c.Writer, seq, h.svc.Snapshot()); err != nil {
		h.log.Error("write initial snapshot failed", zap.Error(err))
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.cfg.SSEHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				h.log.Error("heartbeat write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case snapshot, ok := <-client.Ch:
			if !ok {
				return
			}
			seq++
			if err := writeSnapshot(c.Writer, seq, snapshot); err != nil {
				h.log.Error("write snapshot failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshot(w http.ResponseWriter, seq uint64, snapshot model.Snapshot) error {
	if snapshot.Notifications == nil {
		snapshot.Notifications = []model.Notification{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", seq, payload)
	return err
}

// queryLimit reads ?limit=. Absent means zero, which the service replaces
// with its default; anything else must be a positive integer.
func queryLimit(c *gin.Context) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}
