package sampler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"vital-guardian/internal/models"
)

// SimulatedSensor 模拟传感器（开发/演示环境数据源）
// 生成正常范围内的读数，与生产实现可互换
type SimulatedSensor struct {
	domain models.SignalDomain
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewSimulatedSensor 创建指定域的模拟传感器
func NewSimulatedSensor(domain models.SignalDomain) *SimulatedSensor {
	return &SimulatedSensor{
		domain: domain,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Poll 生成一条模拟读数
func (s *SimulatedSensor) Poll(_ context.Context) (models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reading := models.Reading{
		Domain:    s.domain,
		Timestamp: time.Now(),
	}

	switch s.domain {
	case models.DomainCardiac:
		hr := 60 + s.rng.Intn(40)
		sys := 105 + s.rng.Intn(30)
		dia := 65 + s.rng.Intn(20)
		reading.Cardiac = &models.CardiacSample{
			HeartRate: &hr,
			Systolic:  &sys,
			Diastolic: &dia,
		}
	case models.DomainRespiratory:
		spo2 := 95 + s.rng.Intn(5)
		rr := 12 + s.rng.Intn(8)
		reading.Breath = &models.RespiratorySample{
			SpO2:            &spo2,
			RespiratoryRate: &rr,
		}
	case models.DomainStress:
		stress := 20 + s.rng.Intn(40)
		mental := 50 + s.rng.Intn(50)
		risk := s.rng.Intn(40)
		reading.Stress = &models.StressSample{
			StressLevel:       &stress,
			MentalHealthScore: &mental,
			RiskScore:         &risk,
		}
	case models.DomainBehavioral:
		entries := []string{
			"went for a walk",
			"listened to music",
			"had lunch with a friend",
			"watched a movie",
		}
		text := entries[s.rng.Intn(len(entries))]
		reading.Text = &text
	case models.DomainLocation:
		reading.Location = &models.GeoPoint{
			Lat:     59.3293 + s.rng.Float64()*0.001,
			Lon:     18.0686 + s.rng.Float64()*0.001,
			Address: "Home",
		}
	case models.DomainMotion:
		reading.Motion = &models.MotionSample{
			Magnitude:    0.5 + s.rng.Float64()*1.5,
			FallDetected: false,
		}
	case models.DomainAudio:
		reading.Audio = &models.AudioSample{
			NoiseLevel:       30 + s.rng.Float64()*20,
			DistressDetected: false,
		}
	}

	return reading, nil
}
