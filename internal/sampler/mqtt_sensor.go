package sampler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"vital-guardian/internal/models"
	"vital-guardian/internal/mqttclient"
)

// Broker 传感器依赖的 MQTT 客户端能力
type Broker interface {
	Subscribe(topic string, handler mqttclient.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTSensor 基于 MQTT 订阅的传感器实现
// 订阅 <prefix><domain> 主题并缓存最新载荷；Poll 返回缓存的读数，
// 数据过期或尚未收到时返回 ErrSensorUnavailable（跳过本轮）
type MQTTSensor struct {
	domain models.SignalDomain
	broker Broker
	topic  string
	maxAge time.Duration

	mu       sync.Mutex
	latest   *models.Reading
	received time.Time
}

// NewMQTTSensor 创建 MQTT 传感器并订阅对应主题
// maxAge: 缓存读数的最大年龄，超过后视为传感器不可用
func NewMQTTSensor(broker Broker, topicPrefix string, domain models.SignalDomain, maxAge time.Duration) (*MQTTSensor, error) {
	s := &MQTTSensor{
		domain: domain,
		broker: broker,
		topic:  topicPrefix + string(domain),
		maxAge: maxAge,
	}

	if err := broker.Subscribe(s.topic, s.onMessage); err != nil {
		return nil, fmt.Errorf("failed to subscribe sensor topic: %w", err)
	}

	return s, nil
}

// Close 取消主题订阅
func (s *MQTTSensor) Close() error {
	return s.broker.Unsubscribe(s.topic)
}

// onMessage 处理收到的传感器载荷
func (s *MQTTSensor) onMessage(_ string, payload []byte) error {
	var reading models.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("failed to unmarshal sensor payload: %w", err)
	}

	reading.Domain = s.domain
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.latest = &reading
	s.received = time.Now()
	s.mu.Unlock()

	return nil
}

// Poll 返回缓存的最新读数
func (s *MQTTSensor) Poll(_ context.Context) (models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return models.Reading{}, models.ErrSensorUnavailable
	}
	if s.maxAge > 0 && time.Since(s.received) > s.maxAge {
		return models.Reading{}, models.ErrSensorUnavailable
	}

	return *s.latest, nil
}
