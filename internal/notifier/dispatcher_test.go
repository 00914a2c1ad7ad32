package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// fakeAdapter 可配置失败行为的调度适配器
type fakeAdapter struct {
	mu           sync.Mutex
	callFails    bool
	failContacts map[string]bool // 按电话号码配置失败
	calls        int
	notified     []string
}

func (f *fakeAdapter) PlaceEmergencyCall(_ context.Context, _ models.EscalationSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.callFails {
		return errors.New("telephony gateway unreachable")
	}
	return nil
}

func (f *fakeAdapter) NotifyContact(_ context.Context, contact models.EmergencyContact, _ models.EscalationSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failContacts[contact.Phone] {
		return errors.New("sms delivery failed")
	}
	f.notified = append(f.notified, contact.Phone)
	return nil
}

// staticContacts 固定联系人列表
type staticContacts struct {
	contacts []models.EmergencyContact
	err      error
}

func (s *staticContacts) ListContacts(_ context.Context) ([]models.EmergencyContact, error) {
	return s.contacts, s.err
}

func testContacts() []models.EmergencyContact {
	return []models.EmergencyContact{
		{ContactID: "c1", Name: "Alice", Phone: "+111", Priority: 1},
		{ContactID: "c2", Name: "Bob", Phone: "+222", Priority: 2},
		{ContactID: "c3", Name: "Carol", Phone: "+333", Priority: 3},
	}
}

func escalatingSession() models.EscalationSession {
	return models.EscalationSession{
		SessionID: "session-1",
		Event: models.EmergencyEvent{
			Type:              models.EmergencyCardiac,
			Severity:          models.SeverityCritical,
			Confidence:        80,
			Symptoms:          []string{"severely abnormal heart rate"},
			RecommendedAction: "Call emergency services immediately",
			ShouldEscalate:    true,
		},
		State: models.StateEscalating,
	}
}

func TestDispatch_PrimarySucceeds(t *testing.T) {
	adapter := &fakeAdapter{}
	batchDone := make(chan []models.ContactOutcome, 1)
	d := NewDispatcher(adapter, &staticContacts{contacts: testContacts()},
		func(_ string, outcomes []models.ContactOutcome) { batchDone <- outcomes },
		zap.NewNop())

	result := d.Dispatch(context.Background(), escalatingSession(), true)

	assert.True(t, result.Auto)
	assert.True(t, result.PrimaryAttempted)
	assert.True(t, result.PrimarySucceeded)
	assert.Nil(t, result.Fallback)

	select {
	case outcomes := <-batchDone:
		assert.Len(t, outcomes, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("contact batch did not complete")
	}
}

func TestDispatch_PrimaryFailureFallsBackWithContacts(t *testing.T) {
	adapter := &fakeAdapter{callFails: true}
	d := NewDispatcher(adapter, &staticContacts{contacts: testContacts()}, nil, zap.NewNop())

	result := d.Dispatch(context.Background(), escalatingSession(), false)

	assert.True(t, result.PrimaryAttempted)
	assert.False(t, result.PrimarySucceeded)
	// 告警不丢弃：降级为人工指引 + 联系人列表
	require.NotNil(t, result.Fallback)
	assert.NotEmpty(t, result.Fallback.Instructions)
	assert.Len(t, result.Fallback.Contacts, 3)
}

func TestDispatch_OneFailingContactDoesNotBlockOthers(t *testing.T) {
	adapter := &fakeAdapter{failContacts: map[string]bool{"+222": true}}
	batchDone := make(chan []models.ContactOutcome, 1)
	d := NewDispatcher(adapter, &staticContacts{contacts: testContacts()},
		func(_ string, outcomes []models.ContactOutcome) { batchDone <- outcomes },
		zap.NewNop())

	d.Dispatch(context.Background(), escalatingSession(), false)

	var outcomes []models.ContactOutcome
	select {
	case outcomes = <-batchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("contact batch did not complete")
	}

	require.Len(t, outcomes, 3)
	// 结果逐个记录，失败的联系人不影响其他联系人
	byPhone := map[string]models.ContactOutcome{}
	for _, o := range outcomes {
		byPhone[o.Contact.Phone] = o
	}
	assert.True(t, byPhone["+111"].Sent)
	assert.False(t, byPhone["+222"].Sent)
	assert.NotEmpty(t, byPhone["+222"].Error)
	assert.True(t, byPhone["+333"].Sent)
}

func TestDispatch_NonEscalatingSkipsPrimary(t *testing.T) {
	adapter := &fakeAdapter{}
	batchDone := make(chan []models.ContactOutcome, 1)
	d := NewDispatcher(adapter, &staticContacts{contacts: testContacts()},
		func(_ string, outcomes []models.ContactOutcome) { batchDone <- outcomes },
		zap.NewNop())

	session := escalatingSession()
	session.Event.ShouldEscalate = false

	result := d.Dispatch(context.Background(), session, false)

	assert.False(t, result.PrimaryAttempted)
	assert.Equal(t, 0, adapter.calls)

	// 联系人仍然被通知
	select {
	case outcomes := <-batchDone:
		assert.Len(t, outcomes, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("contact batch did not complete")
	}
}

func TestDispatch_ContactSourceFailureDoesNotBlockPrimary(t *testing.T) {
	adapter := &fakeAdapter{}
	d := NewDispatcher(adapter, &staticContacts{err: errors.New("db down")}, nil, zap.NewNop())

	result := d.Dispatch(context.Background(), escalatingSession(), true)

	assert.True(t, result.PrimaryAttempted)
	assert.True(t, result.PrimarySucceeded)
	assert.Equal(t, 1, adapter.calls)
}
