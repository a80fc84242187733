package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"clipcast/api/middleware"
	"clipcast/api/routes"
	"clipcast/config"
	"clipcast/db"
	"clipcast/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	conf := config.AppConfig
	log.Println("Starting server...")

	manager, err := db.NewManager(conf)
	if err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}
	defer manager.Close()

	// Redis и RabbitMQ опциональны: без них ядро работает напрямую
	// через БД, теряется только кеш и live-доставка.
	var redisClient *redis.Client
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.Redis.Host, conf.Redis.Port),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
	} else {
		redisClient = client
	}

	wsManager := services.NewWSConnManager()

	var broker *services.Broker
	if conf.RabbitMQ.URL != "" {
		broker, err = services.ConnectBroker(conf.RabbitMQ.URL)
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, using direct WS push: %v", err)
		} else {
			defer broker.Close()
			if err := broker.StartNotifyEventConsumer(context.Background(), "notify_push", wsManager); err != nil {
				log.Printf("Warning: failed to start notify consumer: %v", err)
			}
		}
	}

	counterCache := services.NewCounterCache(redisClient)
	accountService := services.NewAccountService(manager)
	contentService := services.NewContentService(manager)
	exclusionService := services.NewExclusionService(manager, redisClient)
	exclusionService.SetHistoryWindow(conf.Feed.HistoryWindow)
	feedService := services.NewFeedService(manager, redisClient, exclusionService)
	feedService.SetBatchSize(conf.Feed.BatchSize)
	notifyService := services.NewNotifyService(manager, counterCache, broker, wsManager)
	engagementService := services.NewEngagementService(manager, notifyService)
	commentService := services.NewCommentService(manager, notifyService)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware())

	routes.PublicApi(router, &routes.Services{
		Accounts:   accountService,
		Content:    contentService,
		Feed:       feedService,
		Engagement: engagementService,
		Notify:     notifyService,
		Comments:   commentService,
		WS:         wsManager,
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", conf.Backend.Host, conf.Backend.Port)
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
