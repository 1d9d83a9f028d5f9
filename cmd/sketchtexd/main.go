package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sketchtex/internal/config"
	"sketchtex/internal/llm"
	"sketchtex/internal/pipeline"
	"sketchtex/internal/run"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}
	if cfg.CompileEndpoint == "" {
		log.Fatal("COMPILE_ENDPOINT is not set")
	}
	eff, err := llm.ParseEffort(cfg.Effort)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemini, err := llm.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Model, eff)
	if err != nil {
		log.Fatal(err)
	}
	cli := llm.Chain(gemini, llm.Retry(3, 500*time.Millisecond), llm.Timeout(90*time.Second))
	defer cli.Close()

	cache, err := run.NewResultCache(cfg.CacheSize)
	if err != nil {
		log.Fatal(err)
	}

	var store *run.ArtifactStore
	if cfg.Artifact.Enabled {
		store, err = run.NewArtifactStore(run.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Fatalf("artifact store: %v", err)
		}
		log.Printf("artifact store enabled (bucket %s)", cfg.Artifact.Bucket)
	}

	session := run.NewSession(run.SessionConfig{
		Orchestrator: run.Orchestrator{
			Extract:  &pipeline.Extractor{LLM: cli},
			Generate: &pipeline.Generator{LLM: cli},
			Correct:  &pipeline.Corrector{LLM: cli},
			Verify:   pipeline.NewVerifier(cfg.CompileEndpoint, cfg.Compiler),
		},
		Cache:  cache,
		Store:  store,
		Model:  cfg.Model,
		Effort: cfg.Effort,
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: newServer(session).routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("sketchtexd listening on %s (model %s, effort %s)", cfg.Port, cfg.Model, eff)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
