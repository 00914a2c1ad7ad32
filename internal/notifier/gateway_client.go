package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"vital-guardian/internal/config"
	"vital-guardian/internal/models"
)

// gatewayResponse 网关 API 响应（status != 0 表示业务失败）
type gatewayResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// GatewayClient 电话/短信网关客户端（EmergencyAdapter 的生产实现）
type GatewayClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewGatewayClient 创建网关客户端
func NewGatewayClient(cfg *config.GatewayConfig, logger *zap.Logger) *GatewayClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSec) * time.Second).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &GatewayClient{
		httpClient: client,
		logger:     logger,
	}
}

// PlaceEmergencyCall 通过网关发起紧急呼叫
func (c *GatewayClient) PlaceEmergencyCall(ctx context.Context, session models.EscalationSession) error {
	body := map[string]any{
		"session_id": session.SessionID,
		"event_type": session.Event.Type,
		"severity":   session.Event.Severity,
		"confidence": session.Event.Confidence,
		"symptoms":   session.Event.Symptoms,
	}
	if session.Event.Location != nil {
		body["location"] = session.Event.Location
	}

	c.logger.Info("Calling gateway API: emergency call",
		zap.String("session_id", session.SessionID),
		zap.String("event_type", string(session.Event.Type)),
	)

	var response gatewayResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post("/v1/emergency/call")

	if err != nil {
		return fmt.Errorf("failed to call emergency gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("emergency gateway returned HTTP %d: %w", resp.StatusCode(), models.ErrDispatchFailed)
	}
	if response.Status != 0 {
		return fmt.Errorf("emergency gateway rejected call (status=%d, msg=%s): %w",
			response.Status, response.Msg, models.ErrDispatchFailed)
	}

	return nil
}

// NotifyContact 通过网关向联系人发送短信通知
func (c *GatewayClient) NotifyContact(ctx context.Context, contact models.EmergencyContact, session models.EscalationSession) error {
	body := map[string]any{
		"phone":   contact.Phone,
		"message": contactMessage(contact, session),
	}

	var response gatewayResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post("/v1/notify/sms")

	if err != nil {
		return fmt.Errorf("failed to notify contact %s: %w", contact.Name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned HTTP %d for contact %s", resp.StatusCode(), contact.Name)
	}
	if response.Status != 0 {
		return fmt.Errorf("sms gateway rejected message for contact %s (status=%d, msg=%s)",
			contact.Name, response.Status, response.Msg)
	}

	return nil
}

// contactMessage 构建发送给联系人的通知文案
func contactMessage(contact models.EmergencyContact, session models.EscalationSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Emergency alert (%s, severity %s): %s.",
		session.Event.Type, session.Event.Severity,
		strings.Join(session.Event.Symptoms, ", "))
	if session.Event.Location != nil {
		fmt.Fprintf(&b, " Last known location: %.5f, %.5f %s.",
			session.Event.Location.Lat, session.Event.Location.Lon, session.Event.Location.Address)
	}
	fmt.Fprintf(&b, " Recommended action: %s", session.Event.RecommendedAction)
	return b.String()
}
