package in

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	trackerdto "nightwatch/internal/modules/tracker/dto"
	trackerin "nightwatch/internal/modules/tracker/port/in"
	apperrors "nightwatch/internal/platform/errors"
)

const writeWait = 5 * time.Second

// HTTPHandler exposes the controller to browser overlays and stream tools:
// snapshot polling, control operations and a WebSocket update stream.
type HTTPHandler struct {
	usecase  trackerin.Usecase
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewHTTPHandler(usecase trackerin.Usecase, log *logrus.Entry) *HTTPHandler {
	return &HTTPHandler{
		usecase: usecase,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Overlays are loaded from local files and OBS browser sources.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *HTTPHandler) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ws", h.stream)

	api := r.Group("/api")
	api.GET("/snapshot", func(c *gin.Context) { c.JSON(http.StatusOK, h.usecase.Snapshot()) })
	api.POST("/controls/:op", h.control)
	api.POST("/classify", h.classify)
	return r
}

type markRequest struct {
	Label string `json:"label" form:"label"`
}

func (h *HTTPHandler) control(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		snap trackerdto.Snapshot
		err  error
	)
	switch op := c.Param("op"); op {
	case "start":
		snap, err = h.usecase.StartManually(ctx)
	case "stop":
		snap, err = h.usecase.StopAutoDetection(ctx)
	case "pause":
		snap, err = h.usecase.TogglePause(ctx)
	case "reset":
		snap, err = h.usecase.ResetSession(ctx)
	case "lock":
		snap, err = h.usecase.ToggleLock(ctx)
	case "mark":
		var req markRequest
		if bindErr := c.ShouldBind(&req); bindErr != nil {
			writeError(c, apperrors.ErrInvalidInput)
			return
		}
		snap, err = h.usecase.MarkPhase(ctx, req.Label)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown control: " + op})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *HTTPHandler) classify(c *gin.Context) {
	out, err := h.usecase.ClassifyOnce(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": out.Label, "duration_ms": out.Duration.Milliseconds()})
}

// stream forwards controller updates until the client goes away. The first
// message is the current snapshot. Slow clients lose intermediate updates, never the latest one.
func (h *HTTPHandler) stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := h.usecase.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := send(conn, u); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}

func send(conn *websocket.Conn, u trackerdto.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(u)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrControlsLocked):
		status = http.StatusLocked
	case errors.Is(err, apperrors.ErrSessionNotRunning), errors.Is(err, apperrors.ErrDetectionBusy):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrClassificationFailed):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
