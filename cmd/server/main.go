package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hershield/internal/config"
	handlers "hershield/internal/handlers/shared"
	"hershield/internal/middleware"
	"hershield/internal/repositories/mongodb"
	"hershield/internal/services"
	"hershield/internal/utils"
	"hershield/pkg/cache"
	"hershield/pkg/geolocation"
	"hershield/pkg/logger"
	"hershield/pkg/maps"
	"hershield/pkg/push"
	"hershield/pkg/ridelog"
	"hershield/pkg/sms"
	"hershield/pkg/speech"
	"hershield/pkg/telephony"
	"hershield/pkg/websocket"
	"hershield/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     cfg.App.LogFormat,
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		Colors:     cfg.App.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.Database.URI).
		SetMaxPoolSize(uint64(cfg.Database.MaxPoolSize)).
		SetMinPoolSize(uint64(cfg.Database.MinPoolSize)))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.Database.Database)

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, continuing without cache")
		redisCache = nil
	}

	contactRepo := mongodb.NewContactRepository(db)
	rideRepo := mongodb.NewRideRepository(db)
	alertRepo := mongodb.NewAlertRepository(db)

	wsHandler := websocket.NewHandler()
	hub := wsHandler.GetHub()

	clock := services.NewRealClock()
	gate := services.NewAllowAllGate()

	sender := buildSender(cfg, appLogger)
	dialer := buildDialer(cfg, appLogger)
	prompts := buildPrompts(cfg, appLogger)
	geocoder := buildGeocoder(cfg, appLogger)
	rideSink := buildRideSink(cfg, appLogger)

	locationService := services.NewLocationService(
		geolocation.NewSimulatedProvider(17.3850, 78.4867, cfg.Safety.LocationPollCadence),
		gate,
		redisCache,
		appLogger,
		services.LocationOptions{
			HighAccuracy: true,
			PollCadence:  cfg.Safety.LocationPollCadence,
			Timeout:      cfg.Safety.LocationTimeout,
		},
	)

	alertService := services.NewAlertService(sender, dialer, geocoder, alertRepo, hub, clock, appLogger)

	manual := services.NewManualTrigger(clock)
	voice := services.NewVoiceTrigger(
		speech.UnsupportedProvider{},
		gate,
		clock,
		appLogger,
		cfg.Safety.Languages,
		nil,
	)

	emergencyService := services.NewEmergencyService(
		*cfg.Safety,
		locationService,
		manual,
		voice,
		alertService,
		prompts,
		contactRepo,
		rideRepo,
		rideSink,
		redisCache,
		hub,
		clock,
		appLogger,
	)

	emergencyHandler := handlers.NewEmergencyHandler(emergencyService, alertService)
	rideHandler := handlers.NewRideHandler(emergencyService)
	contactHandler := handlers.NewContactHandler(contactRepo)
	locationHandler := handlers.NewLocationHandler(locationService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupSafetyRoutes(v1, emergencyHandler, rideHandler, contactHandler, locationHandler)
	}
	routes.SetupWebSocketRoutes(router, wsHandler)

	router.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, "healthy", gin.H{
			"name":    cfg.App.Name,
			"version": cfg.App.Version,
		})
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	appLogger.WithField("addr", addr).Info("Starting server")
	if err := http.ListenAndServe(addr, router); err != nil {
		appLogger.WithError(err).Fatal("Server stopped")
	}
}

func buildSender(cfg *config.Config, log *logger.Logger) sms.AlertSender {
	switch cfg.SMS.Provider {
	case "twilio":
		return sms.NewTwilioSender(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber, cfg.SMS.CountryCode)
	case "sns":
		sender, err := sms.NewAWSSNSSender(cfg.SMS.AWS.Region, cfg.SMS.CountryCode)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize SNS, falling back to stub sender")
			return sms.NewStubSender(true)
		}
		return sender
	default:
		return sms.NewStubSender(true)
	}
}

func buildDialer(cfg *config.Config, log *logger.Logger) telephony.Dialer {
	if cfg.SMS.Provider == "twilio" && cfg.SMS.Twilio.AccountSID != "" {
		return telephony.NewTwilioDialer(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber, cfg.SMS.Twilio.TwiMLURL)
	}
	log.Warn("Twilio not configured, hotline dialing stubbed")
	return telephony.NewStubDialer()
}

func buildPrompts(cfg *config.Config, log *logger.Logger) push.PromptProvider {
	switch cfg.Push.Provider {
	case "fcm":
		provider, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize FCM, falling back to stub prompts")
			return push.NewStubProvider()
		}
		return provider
	case "apns":
		provider, err := push.NewAPNSProvider(cfg.Push.APNS.KeyFile, cfg.Push.APNS.KeyID, cfg.Push.APNS.TeamID, cfg.Push.APNS.BundleID, cfg.Push.APNS.Production)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize APNS, falling back to stub prompts")
			return push.NewStubProvider()
		}
		return provider
	default:
		return push.NewStubProvider()
	}
}

func buildGeocoder(cfg *config.Config, log *logger.Logger) maps.Geocoder {
	if cfg.Maps.GoogleMaps.APIKey == "" {
		return maps.NoopGeocoder{}
	}
	geocoder, err := maps.NewGoogleGeocoder(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize geocoder, address resolution disabled")
		return maps.NoopGeocoder{}
	}
	return geocoder
}

func buildRideSink(cfg *config.Config, log *logger.Logger) ridelog.Sink {
	if cfg.RideLog.SpreadsheetID == "" {
		return ridelog.NoopSink{}
	}
	sink, err := ridelog.NewSheetsSink(context.Background(), cfg.RideLog.Credentials, cfg.RideLog.SpreadsheetID, cfg.RideLog.SheetName)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize ride log, continuing without it")
		return ridelog.NoopSink{}
	}
	return sink
}
