package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func cardiacReading(hr int, ts time.Time) models.Reading {
	return models.Reading{
		Domain:    models.DomainCardiac,
		Cardiac:   &models.CardiacSample{HeartRate: intPtr(hr)},
		Timestamp: ts,
	}
}

func TestStore_WindowNeverExceedsCapacity(t *testing.T) {
	store := NewStore(100, zap.NewNop())

	base := time.Now()
	for i := 0; i < 250; i++ {
		store.Ingest(cardiacReading(60+i%40, base.Add(time.Duration(i)*time.Second)))
		require.LessOrEqual(t, store.Len(models.DomainCardiac), 100)
	}

	assert.Equal(t, 100, store.Len(models.DomainCardiac))
}

func TestStore_FIFOEviction(t *testing.T) {
	store := NewStore(100, zap.NewNop())

	base := time.Now()
	for i := 0; i < 150; i++ {
		store.Ingest(cardiacReading(i, base.Add(time.Duration(i)*time.Second)))
	}

	window := store.Snapshot(models.DomainCardiac)
	require.Len(t, window, 100)

	// 最旧的 50 条（心率 0-49）已被淘汰，窗口从第 50 条开始
	assert.Equal(t, 50, *window[0].Cardiac.HeartRate)
	assert.Equal(t, 149, *window[99].Cardiac.HeartRate)
}

func TestStore_InvalidReadingDropped(t *testing.T) {
	store := NewStore(10, zap.NewNop())

	// 域与载荷不匹配
	store.Ingest(models.Reading{
		Domain:    models.DomainCardiac,
		Timestamp: time.Now(),
	})
	// 无时间戳
	store.Ingest(models.Reading{
		Domain:  models.DomainCardiac,
		Cardiac: &models.CardiacSample{HeartRate: intPtr(70)},
	})

	assert.Equal(t, 0, store.Len(models.DomainCardiac))
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	store := NewStore(10, zap.NewNop())
	store.Ingest(cardiacReading(70, time.Now()))

	snap1 := store.Snapshot(models.DomainCardiac)
	store.Ingest(cardiacReading(80, time.Now()))
	snap2 := store.Snapshot(models.DomainCardiac)

	assert.Len(t, snap1, 1)
	assert.Len(t, snap2, 2)
}

func TestStore_FusedSnapshot(t *testing.T) {
	store := NewStore(100, zap.NewNop())
	now := time.Now()

	store.Ingest(cardiacReading(72, now.Add(-10*time.Second)))
	store.Ingest(models.Reading{
		Domain:    models.DomainRespiratory,
		Breath:    &models.RespiratorySample{SpO2: intPtr(97)},
		Timestamp: now.Add(-5 * time.Second),
	})
	text := "feeling fine today"
	store.Ingest(models.Reading{
		Domain:    models.DomainBehavioral,
		Text:      &text,
		Timestamp: now,
	})

	snapshot := store.FusedSnapshot(10)

	require.NotNil(t, snapshot.Cardiac)
	assert.Equal(t, 72, *snapshot.Cardiac.HeartRate)
	require.NotNil(t, snapshot.Breath)
	assert.Equal(t, 97, *snapshot.Breath.SpO2)
	require.Len(t, snapshot.Behavioral, 1)
	assert.Equal(t, "feeling fine today", snapshot.Behavioral[0])
	assert.Nil(t, snapshot.Location)
	assert.Equal(t, now.Unix(), snapshot.Timestamp.Unix())
}

func TestStore_FusedSnapshotRecentBehavioralLimit(t *testing.T) {
	store := NewStore(100, zap.NewNop())
	now := time.Now()

	for i := 0; i < 20; i++ {
		text := "entry"
		store.Ingest(models.Reading{
			Domain:    models.DomainBehavioral,
			Text:      &text,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}

	snapshot := store.FusedSnapshot(5)
	assert.Len(t, snapshot.Behavioral, 5)
}
