package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/middleware"
)

// msgRateLimited answers a frame that arrives over the client's rate limit.
const msgRateLimited = "rate limit exceeded"

// wsFrame is one outbound websocket message. Exactly one of Errors or the
// embedded report is set.
type wsFrame struct {
	Errors []string `json:"errors,omitempty"`
	*domain.DiagnosisReport
}

// handleWebSocket runs a diagnosis session: every inbound submission is
// answered by one frame, either its validation errors or its report.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	maxBody := s.configManager.GetServerConfig().MaxBodyBytes
	if maxBody > 0 {
		conn.SetReadLimit(maxBody)
	}

	sessionID := middleware.GetCorrelationID(c)
	clientIP := c.ClientIP()
	log := s.logger.WithField("session_id", sessionID)
	log.Debug("WebSocket session opened")

	for seq := 1; ; seq++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("WebSocket session ended unexpectedly")
			}
			return
		}

		// Each frame spends a token like an HTTP request does.
		if s.opts.RateLimiter != nil && !s.opts.RateLimiter.Allow(clientIP) {
			log.WithField("client_ip", clientIP).Warn("Rate limit exceeded")
			if err := conn.WriteJSON(wsFrame{Errors: []string{msgRateLimited}}); err != nil {
				return
			}
			continue
		}

		var submission domain.PatientSubmission
		if err := json.Unmarshal(data, &submission); err != nil {
			if err := conn.WriteJSON(wsFrame{Errors: []string{"malformed submission"}}); err != nil {
				return
			}
			continue
		}

		frame := s.evaluate(c, submission, fmt.Sprintf("%s-%d", sessionID, seq))
		if err := conn.WriteJSON(frame); err != nil {
			log.WithError(err).Debug("WebSocket write failed")
			return
		}
	}
}

func (s *Server) evaluate(c *gin.Context, submission domain.PatientSubmission, requestID string) wsFrame {
	if err := submission.CheckEnums(); err != nil {
		return wsFrame{Errors: []string{err.Error()}}
	}
	if errs := s.service.Validate(submission); len(errs) > 0 {
		return wsFrame{Errors: errs}
	}

	ctx := domain.WithRequestID(c.Request.Context(), requestID)
	report := s.service.Diagnose(ctx, submission)
	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"results":    len(report.Results),
	}).Debug("WebSocket diagnosis sent")
	return wsFrame{DiagnosisReport: report}
}
