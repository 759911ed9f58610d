package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.opentelemetry.io/otel/trace"
)

// WebhookParser verifies the channel signature and decodes the callback
// body.
type WebhookParser interface {
	ParseRequest(r *http.Request) (*webhook.CallbackRequest, error)
}

// EventHandler consumes the decoded events.
type EventHandler interface {
	HandleEvents(ctx context.Context, events []webhook.EventInterface)
}

type Handler struct {
	tracer    trace.Tracer
	parser    WebhookParser
	events    EventHandler
	staticDir string
}

func New(tracer trace.Tracer, parser WebhookParser, events EventHandler, staticDir string) *Handler {
	return &Handler{
		tracer:    tracer,
		parser:    parser,
		events:    events,
		staticDir: staticDir,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/callback", h.Callback)
	r.Static("/static", h.staticDir)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Callback is the LINE webhook endpoint. A bad signature gets 400;
// everything decodable is acknowledged 200 so the platform does not
// retry events whose handling merely produced a reply failure.
func (h *Handler) Callback(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.callback")
	defer span.End()

	cb, err := h.parser.ParseRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook request"})
		return
	}

	h.events.HandleEvents(ctx, cb.Events)
	c.String(http.StatusOK, "OK")
}
