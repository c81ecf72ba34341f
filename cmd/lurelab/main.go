package main

import (
	"context"
	"os"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/soctools/lurelab/internal/config"
	"github.com/soctools/lurelab/internal/infra/database"
	"github.com/soctools/lurelab/internal/infra/repository"
	"github.com/soctools/lurelab/internal/present/rest"
	"github.com/soctools/lurelab/internal/present/rest/middleware"
	"github.com/soctools/lurelab/internal/service"
	"github.com/soctools/lurelab/internal/usecase"
)

func main() {
	confPath := os.Getenv("LURELAB_CONFIG")
	if confPath == "" {
		confPath = "config.yaml"
	}

	conf, err := config.Load(confPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	if err := database.MigratePostgres(db); err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)

	var mc *memcache.Client
	if conf.Server.MemcachedAddr != "" {
		mc = database.NewMemcached(conf.Server.MemcachedAddr)
	}

	credentialRepo := repository.NewCredentialRepository(db)
	eventRepo := repository.NewEventRepository(db)
	downloadRepo := repository.NewDownloadRepository(db, mc)

	hasher := service.NewSecretHasher()
	artifact := service.NewArtifactService(conf.Lure)
	signal := service.NewSignalService(rdb)

	credentialUC := usecase.NewCredentialUsecase(credentialRepo, hasher)
	eventUC := usecase.NewEventUsecase(eventRepo)
	downloadUC := usecase.NewDownloadUsecase(downloadRepo)

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(conf.Server.TraceEndpoint)
		if err != nil {
			panic("failed to set up tracing: " + err.Error())
		}
		defer cleanup()
	}

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.SecureHeaders())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("lurelab"))
	}

	handler := rest.NewHandler(credentialUC, eventUC, downloadUC, artifact, signal)
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func setupTraceProvider(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("lurelab"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		_ = tp.Shutdown(context.Background())
	}, nil
}
