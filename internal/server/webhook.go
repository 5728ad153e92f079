package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/payway/internal/observability/logger"
	"github.com/smallbiznis/payway/internal/webhook"
	"go.uber.org/zap"
)

// maxWebhookBody bounds inbound payloads. Provider events are small;
// anything past this is noise or abuse.
const maxWebhookBody = 1 << 20

// HandleWebhook accepts any provider notification and publishes it on
// the bridge. The body is passed through untouched so subscribers verify
// signatures over the exact bytes received.
func (s *Server) HandleWebhook(c *gin.Context) {
	if !s.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
		return
	}

	endpoint := c.Request.URL.Path
	msg := webhook.NewMessage(endpoint, body, c.Request.Header)

	deliveryID := s.genID.Generate()
	s.log.Info("webhook received",
		zap.String("delivery_id", deliveryID.String()),
		zap.String("endpoint", endpoint),
		zap.Int("body_bytes", len(body)),
		zap.Any("headers", logger.MaskHeaders(c.Request.Header)),
	)

	s.bridge.Publish(msg)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
