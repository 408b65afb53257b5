package main

import (
	"context"

	authhandler "labslot/internal/auth/handler"
	authrepository "labslot/internal/auth/repository"
	authservice "labslot/internal/auth/service"
	"labslot/internal/events"
	reservationhandler "labslot/internal/reservations/handler"
	reservationrepository "labslot/internal/reservations/repository"
	reservationservice "labslot/internal/reservations/service"
	reservationvalidator "labslot/internal/reservations/validator"
	resourcehandler "labslot/internal/resources/handler"
	resourcerepository "labslot/internal/resources/repository"
	resourceservice "labslot/internal/resources/service"
	resourcevalidator "labslot/internal/resources/validator"
	viewhandler "labslot/internal/view/handler"
	viewservice "labslot/internal/view/service"
	"labslot/pkg/app"
	"labslot/pkg/config"
	"labslot/pkg/kafka"
	kafka_config "labslot/pkg/kafka/config"
	kafka_middleware "labslot/pkg/kafka/middleware"
	"labslot/pkg/palette"
)

const ServiceName = "labslot"

type services struct {
	auth         authservice.AuthService
	resources    resourceservice.ResourceService
	reservations reservationservice.ReservationService
	view         viewservice.ViewService
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Labslot service")

	serverApp := app.NewApplication()
	kafkaCfg := kafka_config.Load()
	kafkaMetrics := kafka_middleware.NewMetrics()

	catalogProducer, reservationProducer := initProducers(cfg, kafkaCfg, serverApp, kafkaMetrics)
	svcs := initServices(cfg, catalogProducer, reservationProducer)
	startCatalogConsumer(cfg, kafkaCfg, serverApp, svcs.view, kafkaMetrics)

	if kafkaCfg.Enabled {
		serverApp.OnShutdown(func() {
			cfg.Log.Info("Kafka totals",
				"published", kafkaMetrics.MessagesPublished.Load(),
				"publish_failed", kafkaMetrics.MessagesPublishedFailed.Load(),
				"avg_publish", kafkaMetrics.AvgPublishDuration(),
				"consumed", kafkaMetrics.MessagesConsumed.Load(),
				"consume_failed", kafkaMetrics.MessagesConsumedFailed.Load(),
				"avg_consume", kafkaMetrics.AvgConsumeDuration(),
			)
		})
	}

	serverApp.SetApp(cfg, svcs.auth,
		authhandler.NewAuthHandler(svcs.auth, cfg.Log),
		resourcehandler.NewResourceHandler(svcs.resources, cfg.Log),
		reservationhandler.NewReservationHandler(svcs.reservations, cfg.Log),
		viewhandler.NewViewHandler(svcs.view, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, catalogProducer, reservationProducer events.Publisher) services {
	userRepo := authrepository.NewMongoUserRepository(cfg)
	sessionRepo := authrepository.NewMongoSessionRepository(cfg)
	auth := authservice.NewAuthService(userRepo, sessionRepo, cfg)

	resourceRepo := resourcerepository.NewMongoResourceRepository(cfg)
	reservationRepo := reservationrepository.NewMongoReservationRepository(cfg)
	lockRepo := reservationrepository.NewSlotLockRepository(cfg)

	pal := palette.New(cfg.PaletteHue, cfg.PaletteSize)

	resources := resourceservice.NewResourceService(
		resourceRepo,
		resourcevalidator.NewResourceValidator(cfg.Log),
		pal,
		reservationRepo,
		catalogProducer,
		cfg,
	)

	reservations := reservationservice.NewReservationService(
		reservationRepo,
		lockRepo,
		reservationvalidator.NewReservationValidator(cfg.Log),
		resources,
		reservationProducer,
		cfg,
	)

	view := viewservice.NewViewService(
		viewservice.NewFacetStore(),
		resources,
		reservations,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return services{
		auth:         auth,
		resources:    resources,
		reservations: reservations,
		view:         view,
	}
}

// initProducers builds the change event producers. With Kafka disabled both
// are nil, which the publishing helpers treat as a no-op.
func initProducers(cfg *config.Config, kafkaCfg *kafka_config.Config, serverApp *app.Application, metrics *kafka_middleware.Metrics) (events.Publisher, events.Publisher) {
	if !kafkaCfg.Enabled {
		cfg.Log.Info("Kafka disabled, change events will not be published")
		return nil, nil
	}

	catalogProducer, err := kafka.NewProducer(kafkaCfg, events.TopicCatalogChanged, events.TopicCatalogChangedDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create catalog producer", "error", err)
	}
	catalogProducer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	catalogProducer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))

	reservationProducer, err := kafka.NewProducer(kafkaCfg, events.TopicReservationChanged, events.TopicReservationDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create reservation producer", "error", err)
	}
	reservationProducer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	reservationProducer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))

	serverApp.OnShutdown(func() {
		if err := catalogProducer.Close(); err != nil {
			cfg.Log.Error("Failed to close catalog producer", "error", err)
		}
		if err := reservationProducer.Close(); err != nil {
			cfg.Log.Error("Failed to close reservation producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka producers initialized", "brokers", kafkaCfg.Brokers)
	return catalogProducer, reservationProducer
}

// startCatalogConsumer subscribes the view layer to catalog changes so per
// user facet state follows the catalog without polling.
func startCatalogConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, serverApp *app.Application, view viewservice.ViewService, metrics *kafka_middleware.Metrics) {
	if !kafkaCfg.Enabled {
		return
	}

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		events.TopicCatalogChanged,
		ServiceName+"-view",
		events.TopicCatalogChangedDLQ,
		viewservice.CatalogChangeHandler(view, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create catalog consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			cfg.Log.Error("Catalog consumer stopped", "error", err)
		}
	}()

	serverApp.OnShutdown(func() {
		cancel()
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close catalog consumer", "error", err)
		}
	})

	cfg.Log.Info("Catalog consumer started", "topic", events.TopicCatalogChanged)
}
