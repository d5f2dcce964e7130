package main

import (
	"github.com/gin-gonic/gin"

	"github.com/chadley78/located-dispatch/config"
	"github.com/chadley78/located-dispatch/logging"
	"github.com/chadley78/located-dispatch/metrics"
	"github.com/chadley78/located-dispatch/module/core"
)

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	log := logging.WithComponent("main")

	metrics.Register()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq")
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt")
	}
	defer mqttClient.Disconnect(250)

	coreModule, err := core.Build(db, amqpConn, mqttClient, core.Options{
		Push: core.PushConfig{
			BaseURL: cfg.PushBaseURL,
			APIKey:  cfg.PushAPIKey,
			Timeout: cfg.PushTimeout,
		},
		TokenBatchLimit: cfg.TokenBatchLimit,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("core module")
	}

	if err := coreModule.StartSubscribers(); err != nil {
		log.Fatal().Err(err).Msg("start subscribers")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	health := config.NewHealthChecker(db, amqpConn, mqttClient)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	coreModule.RegisterRoutes(&r.RouterGroup)

	log.Info().Str("port", cfg.HTTPPort).Msg("listening")
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
