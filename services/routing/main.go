// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AlexandriaLibrary/AlexandriaCanon/pkg/logging"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/llm"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/cache"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/middleware"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/observability"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/router"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/routes"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "alexandria-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("routing-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// envInt reads an integer env var, warning and falling back on bad values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "name", name, "value", raw, "default", fallback)
		return fallback
	}
	return parsed
}

func buildGate() (taxonomy.Gate, *catalog.Catalog) {
	mode := os.Getenv("TAXONOMY_GATE_MODE")
	if mode == "" {
		mode = taxonomy.ModeArtifact
		slog.Warn("TAXONOMY_GATE_MODE not set, defaulting to artifact")
	}

	var cat *catalog.Catalog
	if mode == taxonomy.ModeArtifact {
		artifactDir := os.Getenv("CATALOG_ARTIFACT_DIR")
		if artifactDir == "" {
			artifactDir = "/app/artifacts"
			slog.Warn("CATALOG_ARTIFACT_DIR not set, defaulting to /app/artifacts")
		}
		cat = catalog.New(artifactDir)
		if err := cat.Load(0); err != nil {
			log.Fatalf("FATAL: Could not load catalog artifacts: %v", err)
		}
		slog.Info("Catalog loaded", "artifact_version", cat.Version(), "taxonomy_version", cat.TaxonomyVersion())
	}

	gate, err := taxonomy.NewGate(taxonomy.Config{Mode: mode}, cat)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the taxonomy gate: %v", err)
	}
	return gate, cat
}

func buildCache(gate taxonomy.Gate) *cache.RoutingCache {
	ttl := time.Duration(envInt("ROUTING_CACHE_TTL_SECONDS", int(cache.DefaultTTL.Seconds()))) * time.Second

	var store cache.Store
	if dir := os.Getenv("ROUTING_CACHE_DIR"); dir != "" {
		badgerStore, err := cache.NewBadgerStore(cache.BadgerConfig{Path: dir})
		if err != nil {
			log.Fatalf("FATAL: Could not open the routing cache store: %v", err)
		}
		store = badgerStore
		slog.Info("Routing cache backed by badger", "dir", dir)
	} else {
		store = cache.NewMemoryStore()
		slog.Info("Routing cache in memory")
	}

	return cache.New(store, ttl, gate)
}

func buildAgents() (router.Classifier, router.Proposer) {
	if os.Getenv("USE_MOCK_AGENTS") == "true" {
		slog.Warn("USE_MOCK_AGENTS is true, routing with mock agents")
		return &router.MockClassifier{}, &router.MockProposer{}
	}

	var client llm.LLMClient
	var err error
	switch backend := os.Getenv("LLM_BACKEND_TYPE"); backend {
	case "openai", "":
		if backend == "" {
			slog.Warn("LLM_BACKEND_TYPE not set, defaulting to openai")
		}
		client, err = llm.NewOpenAIClient()
	default:
		log.Fatalf("FATAL: Unknown LLM_BACKEND_TYPE %q", backend)
	}
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the LLM client: %v", err)
	}
	return router.NewLLMClassifier(client), router.NewLLMProposer(client)
}

func main() {
	port := os.Getenv("ROUTING_PORT")
	if port == "" {
		port = "12310"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "routing",
		LogDir:  os.Getenv("ROUTING_LOG_DIR"),
		JSON:    true,
	})
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close logger:", err)
		}
	}()
	slog.SetDefault(logger.Slog())

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	gate, cat := buildGate()
	routingCache := buildCache(gate)
	defer func() {
		if err := routingCache.Close(); err != nil {
			slog.Error("Failed to close routing cache", "error", err)
		}
	}()

	classifier, proposer := buildAgents()

	rtr := router.New(gate, proposer, routingCache, metrics, router.Config{
		MaxBooks:           envInt("ROUTING_MAX_BOOKS", taxonomy.DefaultMaxBooks),
		MaxChaptersPerBook: envInt("ROUTING_MAX_CHAPTERS_PER_BOOK", taxonomy.DefaultMaxChaptersPerBook),
	})

	askLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: envInt("ASK_RATE_LIMIT_PER_MINUTE", 10),
	})

	engine := gin.Default()
	engine.Use(otelgin.Middleware("routing-service"))

	routes.SetupRoutes(engine, routes.Deps{
		Classifier:   classifier,
		Router:       rtr,
		Gate:         gate,
		Catalog:      cat,
		RoutingCache: routingCache,
		AskLimiter:   askLimiter,
		Metrics:      metrics,
	})

	log.Println("Starting the routing server on port ", port)
	if err := engine.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
