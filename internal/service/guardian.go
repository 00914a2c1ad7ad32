// Package service 整合守护引擎的各层组件
package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vital-guardian/internal/cache"
	"vital-guardian/internal/config"
	"vital-guardian/internal/database"
	"vital-guardian/internal/detector"
	"vital-guardian/internal/escalation"
	"vital-guardian/internal/httpapi"
	"vital-guardian/internal/insight"
	"vital-guardian/internal/metrics"
	"vital-guardian/internal/models"
	"vital-guardian/internal/mqttclient"
	"vital-guardian/internal/notifier"
	"vital-guardian/internal/redisclient"
	"vital-guardian/internal/repository"
	"vital-guardian/internal/sampler"
)

// GuardianService 守护引擎服务（整合各层）
type GuardianService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttclient.Client
	logger      *zap.Logger

	// 各层组件
	store       *metrics.Store
	statusCache *cache.StatusCache
	controller  *escalation.Controller
	loops       []sampler.Loop
	runner      *sampler.Runner
	monitor     *Monitor
	httpServer  *http.Server

	eventsRepo   *repository.EmergencyEventsRepository
	contactsRepo *repository.ContactsRepository
	auditRepo    *repository.AuditRepository
}

// NewGuardianService 创建守护引擎服务
func NewGuardianService(cfg *config.Config, logger *zap.Logger) (*GuardianService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redisclient.NewRedisClient(&cfg.Redis)
	if err := redisclient.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	eventsRepo := repository.NewEmergencyEventsRepository(db, logger)
	contactsRepo := repository.NewContactsRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)

	// 4. 缓存和指标存储
	statusCache := cache.NewStatusCache(cfg, redisClient, logger)
	store := metrics.NewStore(cfg.Guardian.WindowCapacity, logger)

	// 5. 检测器
	det := detector.NewDetector(logger)
	behavioral := detector.NewBehavioralDetector(cfg.Guardian.BehavioralKeywords, logger)

	// 6. 调度链：网关适配器 → 调度器（联系人批次结果落库）
	gateway := notifier.NewGatewayClient(&cfg.Gateway, logger)
	onBatch := func(sessionID string, outcomes []models.ContactOutcome) {
		if err := recordContactOutcomes(context.Background(), eventsRepo, sessionID, outcomes, outcomeRetryDelay); err != nil {
			logger.Error("Failed to record contact outcomes",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}
	dispatcher := notifier.NewDispatcher(gateway, contactsRepo, onBatch, logger)

	// 7. 升级控制器（呈现器走告警缓存）
	presenter := httpapi.NewAlertPresenter(statusCache, logger)
	grace := time.Duration(cfg.Guardian.GracePeriodSec) * time.Second
	controller := escalation.NewController(grace, presenter, dispatcher, auditRepo, eventsRepo, logger)

	// 8. 采样层
	mqttClient, loops, err := buildSamplerLoops(cfg, logger)
	if err != nil {
		return nil, err
	}
	runner := sampler.NewRunner(loops, store, logger)

	// 9. 检测循环
	monitor := NewMonitor(cfg, store, det, behavioral, controller, statusCache, logger)

	// 10. HTTP API
	aggregator := insight.NewAggregator(logger)
	handler := httpapi.NewGuardianHandler(store, controller, statusCache, aggregator, eventsRepo, auditRepo, logger)
	router := httpapi.NewRouter(logger)
	router.RegisterGuardianRoutes(handler)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: router,
	}

	return &GuardianService{
		config:       cfg,
		db:           db,
		redisClient:  redisClient,
		mqttClient:   mqttClient,
		logger:       logger,
		store:        store,
		statusCache:  statusCache,
		controller:   controller,
		loops:        loops,
		runner:       runner,
		monitor:      monitor,
		httpServer:   httpServer,
		eventsRepo:   eventsRepo,
		contactsRepo: contactsRepo,
		auditRepo:    auditRepo,
	}, nil
}

// buildSamplerLoops 按配置构建各信号域的采样循环
// SensorSource 为 "mqtt" 时订阅真实传感器主题，否则使用模拟数据源
func buildSamplerLoops(cfg *config.Config, logger *zap.Logger) (*mqttclient.Client, []sampler.Loop, error) {
	type domainSpec struct {
		domain   models.SignalDomain
		interval time.Duration
		timeout  time.Duration
	}

	vitals := time.Duration(cfg.Guardian.VitalsIntervalSec) * time.Second
	specs := []domainSpec{
		{models.DomainCardiac, vitals, 0},
		{models.DomainRespiratory, vitals, 0},
		{models.DomainStress, vitals, 0},
		{models.DomainBehavioral, time.Duration(cfg.Guardian.BehavioralIntervalSec) * time.Second, 0},
		{models.DomainLocation, time.Duration(cfg.Guardian.LocationIntervalSec) * time.Second,
			time.Duration(cfg.Guardian.LocationTimeoutSec) * time.Second},
		{models.DomainAudio, time.Duration(cfg.Guardian.AudioIntervalSec) * time.Second, 0},
		{models.DomainMotion, time.Duration(cfg.Guardian.MotionIntervalSec) * time.Second, 0},
	}

	if cfg.Guardian.SensorSource != "mqtt" {
		loops := make([]sampler.Loop, 0, len(specs))
		for _, spec := range specs {
			loops = append(loops, sampler.Loop{
				Domain:   spec.domain,
				Sensor:   sampler.NewSimulatedSensor(spec.domain),
				Interval: spec.interval,
				Timeout:  spec.timeout,
			})
		}
		return nil, loops, nil
	}

	mqttClient, err := mqttclient.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect mqtt broker: %w", err)
	}

	loops := make([]sampler.Loop, 0, len(specs))
	for _, spec := range specs {
		// 缓存读数超过两个采样周期视为过期
		sensor, err := sampler.NewMQTTSensor(mqttClient, cfg.Guardian.SensorTopicPrefix, spec.domain, 2*spec.interval)
		if err != nil {
			mqttClient.Close()
			return nil, nil, err
		}
		loops = append(loops, sampler.Loop{
			Domain:   spec.domain,
			Sensor:   sensor,
			Interval: spec.interval,
			Timeout:  spec.timeout,
		})
	}
	return mqttClient, loops, nil
}

// Start 启动服务（采样循环、检测循环、HTTP API）
func (s *GuardianService) Start(ctx context.Context) error {
	s.logger.Info("Starting guardian service",
		zap.String("listen_addr", s.config.HTTP.ListenAddr),
		zap.String("sensor_source", s.config.Guardian.SensorSource),
	)

	go s.runner.Run(ctx)
	go s.monitor.Run(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

// Stop 停止服务
func (s *GuardianService) Stop() error {
	s.logger.Info("Stopping guardian service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown http server",
			zap.Error(err),
		)
	}

	// 先取消传感器订阅，再断开 MQTT 连接
	for _, loop := range s.loops {
		if closer, ok := loop.Sensor.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				s.logger.Error("Failed to close sensor",
					zap.String("domain", string(loop.Domain)),
					zap.Error(err),
				)
			}
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Close()
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := redisclient.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
