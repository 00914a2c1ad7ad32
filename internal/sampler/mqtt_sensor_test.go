package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vital-guardian/internal/models"
	"vital-guardian/internal/mqttclient"
)

// fakeBroker 记录订阅并捕获消息处理器
type fakeBroker struct {
	subscribed   []string
	unsubscribed []string
	handlers     map[string]mqttclient.MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqttclient.MessageHandler)}
}

func (f *fakeBroker) Subscribe(topic string, handler mqttclient.MessageHandler) error {
	f.subscribed = append(f.subscribed, topic)
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBroker) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func TestMQTTSensorSubscribesDomainTopic(t *testing.T) {
	broker := newFakeBroker()

	_, err := NewMQTTSensor(broker, "vital-guardian/sensor/", models.DomainCardiac, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, []string{"vital-guardian/sensor/cardiac"}, broker.subscribed)
}

func TestMQTTSensorPollBeforeAnyData(t *testing.T) {
	broker := newFakeBroker()
	sensor, err := NewMQTTSensor(broker, "vital-guardian/sensor/", models.DomainCardiac, time.Minute)
	require.NoError(t, err)

	_, err = sensor.Poll(context.Background())
	assert.ErrorIs(t, err, models.ErrSensorUnavailable)
}

func TestMQTTSensorPollReturnsLatestPayload(t *testing.T) {
	broker := newFakeBroker()
	sensor, err := NewMQTTSensor(broker, "vital-guardian/sensor/", models.DomainCardiac, time.Minute)
	require.NoError(t, err)

	handler := broker.handlers["vital-guardian/sensor/cardiac"]
	require.NotNil(t, handler)
	require.NoError(t, handler("vital-guardian/sensor/cardiac", []byte(`{"cardiac":{"heart_rate":72}}`)))

	reading, err := sensor.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DomainCardiac, reading.Domain)
	require.NotNil(t, reading.Cardiac)
	require.NotNil(t, reading.Cardiac.HeartRate)
	assert.Equal(t, 72, *reading.Cardiac.HeartRate)
	assert.True(t, reading.Valid())
}

func TestMQTTSensorRejectsMalformedPayload(t *testing.T) {
	broker := newFakeBroker()
	sensor, err := NewMQTTSensor(broker, "vital-guardian/sensor/", models.DomainCardiac, time.Minute)
	require.NoError(t, err)

	handler := broker.handlers["vital-guardian/sensor/cardiac"]
	assert.Error(t, handler("vital-guardian/sensor/cardiac", []byte(`not json`)))

	_, err = sensor.Poll(context.Background())
	assert.ErrorIs(t, err, models.ErrSensorUnavailable)
}

func TestMQTTSensorCloseUnsubscribes(t *testing.T) {
	broker := newFakeBroker()
	sensor, err := NewMQTTSensor(broker, "vital-guardian/sensor/", models.DomainLocation, time.Minute)
	require.NoError(t, err)

	require.NoError(t, sensor.Close())
	assert.Equal(t, []string{"vital-guardian/sensor/location"}, broker.unsubscribed)
}
