// Command seed populates the attribute catalog with a starter set of
// attributes. Attributes that already exist are left untouched, so the
// command can be re-run safely.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/shopperslink/variant-service/internal/config"
	"github.com/shopperslink/variant-service/internal/event"
	"github.com/shopperslink/variant-service/internal/repository/postgres"
	"github.com/shopperslink/variant-service/internal/service"
	"github.com/shopperslink/variant-service/migrations"
	pkgconfig "github.com/shopperslink/variant-service/pkg/config"
	"github.com/shopperslink/variant-service/pkg/database"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
	pkgkafka "github.com/shopperslink/variant-service/pkg/kafka"
	"github.com/shopperslink/variant-service/pkg/logger"
)

type seedAttribute struct {
	name     string
	category string
	values   []string
}

func catalog(shoeCategory string) []seedAttribute {
	return []seedAttribute{
		{name: "Color", values: []string{"Black", "White", "Red", "Navy Blue", "Forest Green", "Beige"}},
		{name: "Size", values: []string{"XS", "S", "M", "L", "XL", "XXL"}},
		{name: "Material", values: []string{"Cotton", "Linen", "Polyester", "Wool", "Leather"}},
		{name: "Fit", values: []string{"Slim", "Regular", "Oversize"}},
		{name: "Shoe Size", category: shoeCategory, values: []string{"36", "37", "38", "39", "40", "41", "42", "43", "44", "45"}},
	}
}

// discardPublisher drops events when -events=false.
type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

func main() {
	shoeCategory := flag.String("shoe-category", "shoes", "category id the Shoe Size attribute is reserved to")
	publish := flag.Bool("events", false, "publish attribute.updated events to Kafka")
	flag.Parse()

	if err := pkgconfig.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("variant-seed", cfg.LogLevel)

	if err := run(cfg, *shoeCategory, *publish, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, shoeCategory string, publish bool, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	pgCfg.MaxConns = 2
	pgCfg.MinConns = 1

	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	var publisher event.Publisher = discardPublisher{}
	if publish {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		defer producer.Close()
		publisher = producer
	}

	svc := service.NewAttributeService(postgres.NewAttributeRepository(pool), event.NewProducer(publisher, log), log)

	created, skipped := 0, 0
	for i, a := range catalog(shoeCategory) {
		in := &service.CreateAttributeInput{Name: a.name, SortOrder: i}
		if a.category != "" {
			category := a.category
			in.ExclusiveCategoryID = &category
		}
		for j, v := range a.values {
			in.Values = append(in.Values, service.AttributeValueInput{Value: v, SortOrder: j})
		}

		attr, err := svc.CreateAttribute(ctx, in)
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			skipped++
			log.Info("attribute already exists", slog.String("name", a.name))
		case err != nil:
			return err
		default:
			created++
			log.Info("attribute seeded",
				slog.String("id", attr.ID),
				slog.String("name", attr.Name),
				slog.Int("values", len(attr.Values)),
			)
		}
	}

	log.Info("seed complete", slog.Int("created", created), slog.Int("skipped", skipped))
	return nil
}
