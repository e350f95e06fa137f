package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/api"
	"github.com/Ali-Herrera/tri-tracker/internal/config"
	"github.com/Ali-Herrera/tri-tracker/internal/events"
	"github.com/Ali-Herrera/tri-tracker/internal/importer"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/memory"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/mongo"
	"github.com/Ali-Herrera/tri-tracker/internal/service"
	"github.com/Ali-Herrera/tri-tracker/internal/storage"
)

// App holds the wired components shared by the HTTP server and the CLI.
type App struct {
	Store         repository.DocumentStore
	Subscriptions *repository.Subscriptions
	Services      api.Services

	closers []func()
}

// New connects the store, the event publisher and object storage described
// by cfg and builds the services on top of them.
func New(cfg config.Config) (*App, error) {
	a := &App{}

	// --- Database Connection ---
	var base repository.DocumentStore
	switch cfg.Database.Driver {
	case "memory":
		log.Println("WARN: Using the in-memory store; data is lost on exit.")
		base = memory.New()
	default:
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		})
		appDB := dbClient.Database(cfg.Database.Name)
		log.Println("Database connection established.")

		// --- Ensure Indexes ---
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			mongo.EnsureIndexes(ctx, appDB)
			log.Println("Index creation process completed.")
		}()
		base = mongo.NewStore(dbClient, appDB)
	}
	a.Subscriptions = repository.NewSubscriptions(base)
	a.Store = repository.NewNotifyingStore(base, a.Subscriptions)

	// --- Event Publisher ---
	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, func() {
			if err := kp.Close(); err != nil {
				log.Printf("ERROR: Failed to close event publisher: %v", err)
			}
		})
		publisher = kp
		log.Printf("INFO: Publishing events to %s", cfg.Kafka.Topic)
	}

	// --- Initialize Storage ---
	var source storage.ObjectSource
	if cfg.S3.Enabled() {
		s3Source, err := storage.NewS3Source(cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initialize S3 storage: %w", err)
		}
		source = s3Source
	}

	// --- Initialize Services ---
	policy, err := service.ParseDeletePolicy(cfg.Calendar.DeletePolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	pipeline := importer.NewPipeline(a.Store,
		importer.WithLogger(log.Default()),
		importer.WithChunkSize(cfg.Import.ChunkSize),
	)
	a.Services = api.Services{
		Calendar:    service.NewCalendarService(a.Store, publisher, policy),
		Imports:     service.NewImportService(a.Store, pipeline, source, publisher, service.ImportSettings{SampleRows: cfg.Import.SampleRows, PreviewLimit: cfg.Import.PreviewLimit}),
		Workouts:    service.NewWorkoutService(a.Store),
		Adaptations: service.NewAdaptationService(a.Store),
		Stats:       service.NewStatsService(a.Store, time.Now),
	}
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
