package core

import (
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	handler "github.com/chadley78/located-dispatch/module/core/internal/handler/http"
	"github.com/chadley78/located-dispatch/module/core/internal/handler/subscriber"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/database/postgres"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/publisher/rabbitmq"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/push/fcm"
	"github.com/chadley78/located-dispatch/module/core/service"
)

// PushConfig locates the push provider's multicast endpoint.
type PushConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Options struct {
	Push            PushConfig
	TokenBatchLimit int
}

type Module struct {
	DispatchSvc  *service.DispatchService
	RecipientSvc *service.RecipientService
	TokenSvc     *service.TokenService
	handler      *handler.DispatchHandler
	subscriber   *subscriber.TransitionSubscriber
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	familyRepo := postgres.NewFamilyRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)

	reportPub, err := rabbitmq.NewReportPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("report publisher: %w", err)
	}

	pushClient := fcm.NewClient(opts.Push.BaseURL, opts.Push.APIKey, opts.Push.Timeout)

	recipientSvc := service.NewRecipientService(familyRepo)
	tokenSvc := service.NewTokenService(tokenRepo, opts.TokenBatchLimit)
	dispatchSvc := service.NewDispatchService(recipientSvc, tokenSvc, pushClient, reportPub)

	h := handler.NewDispatchHandler(dispatchSvc, recipientSvc, tokenSvc)
	sub := subscriber.NewTransitionSubscriber(mqttClient, dispatchSvc)

	return &Module{
		DispatchSvc:  dispatchSvc,
		RecipientSvc: recipientSvc,
		TokenSvc:     tokenSvc,
		handler:      h,
		subscriber:   sub,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}
