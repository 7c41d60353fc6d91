package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HelderMendes/events-tickets/config"
	"github.com/HelderMendes/events-tickets/internal/consumer"
	"github.com/HelderMendes/events-tickets/internal/handler"
	"github.com/HelderMendes/events-tickets/internal/middleware"
	"github.com/HelderMendes/events-tickets/internal/ratelimit"
	"github.com/HelderMendes/events-tickets/internal/repository"
	"github.com/HelderMendes/events-tickets/internal/service"
	"github.com/HelderMendes/events-tickets/internal/tasks"
	"github.com/HelderMendes/events-tickets/pkg/database"
	"github.com/HelderMendes/events-tickets/pkg/rabbitmq"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ: domain events out, payment confirmations in
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	// Redis backs both the asynq broker and the join rate limiter
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	txm := repository.NewTxManager(db)

	// Services
	scheduler := tasks.NewOfferScheduler(asynqClient)
	limiter := ratelimit.NewLimiter(redisClient, cfg.JoinLimit, cfg.JoinWindow)
	waitlistSvc := service.NewWaitlistService(
		waitlistRepo, eventRepo, ticketRepo, txm, scheduler, publisher, limiter, cfg.OfferWindow,
	)
	ticketSvc := service.NewTicketService(ticketRepo, waitlistRepo, eventRepo, txm, waitlistSvc, publisher)
	eventSvc := service.NewEventService(eventRepo, ticketRepo, waitlistRepo, txm, publisher)

	// Asynq worker: offer expirations + periodic sweep
	go tasks.StartServer(redisOpt, tasks.NewHandlers(waitlistSvc))

	// Payment confirmations from the gateway
	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}
	consumer.NewPaymentConsumer(ticketSvc).Start(msgs)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "events-tickets"})
	})

	handler.NewEventHandler(eventSvc).RegisterRoutes(e)
	handler.NewWaitlistHandler(waitlistSvc).RegisterRoutes(e)
	handler.NewTicketHandler(ticketSvc).RegisterRoutes(e)

	go func() {
		log.Printf("events-tickets starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
}
