package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sketchtex/internal/config"
	"sketchtex/internal/llm"
	"sketchtex/internal/pipeline"
	"sketchtex/internal/run"
)

func main() {
	imagePath := flag.String("image", "", "path to the photographed diagram (PNG or JPEG)")
	outPath := flag.String("out", "", "output .tex path (default: <image>.tex)")
	previewPath := flag.String("preview", "", "optional path for the cropped figure preview PNG")
	model := flag.String("model", "", "Gemini model id (default from SKETCHTEX_MODEL)")
	effort := flag.String("effort", "", "analysis effort: low, medium or high")
	endpoint := flag.String("compile-endpoint", "", "compilation service URL (default from COMPILE_ENDPOINT)")
	compiler := flag.String("compiler", "", "compiler name sent to the compilation service")
	flag.Parse()
	if *imagePath == "" {
		log.Fatal("--image is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *effort != "" {
		cfg.Effort = *effort
	}
	if *endpoint != "" {
		cfg.CompileEndpoint = *endpoint
	}
	if *compiler != "" {
		cfg.Compiler = *compiler
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

	raw, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	gemini, err := llm.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Model, eff)
	if err != nil {
		log.Fatal(err)
	}
	cli := llm.Chain(gemini, llm.Retry(3, 500*time.Millisecond), llm.Timeout(90*time.Second))
	defer cli.Close()

	orch := run.Orchestrator{
		Extract:  &pipeline.Extractor{LLM: cli},
		Generate: &pipeline.Generator{LLM: cli},
		Correct:  &pipeline.Corrector{LLM: cli},
		Verify:   pipeline.NewVerifier(cfg.CompileEndpoint, cfg.Compiler),
		Progress: func(ev run.Event) {
			if ev.Detail != "" {
				log.Printf("[%s] %s", ev.State, ev.Detail)
			} else {
				log.Printf("[%s]", ev.State)
			}
		},
	}

	result, err := orch.Run(ctx, raw)
	if err != nil {
		log.Fatal(result.FailureCause)
	}

	target := *outPath
	if target == "" {
		base := strings.TrimSuffix(*imagePath, filepath.Ext(*imagePath))
		target = base + ".tex"
	}
	if err := os.WriteFile(target, []byte(result.Artifact.SourceCode), 0o644); err != nil {
		log.Fatal(err)
	}
	if *previewPath != "" && result.Preview != nil {
		f, err := os.Create(*previewPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := png.Encode(f, result.Preview); err != nil {
			f.Close()
			log.Fatal(err)
		}
		f.Close()
		log.Printf("preview written → %s", *previewPath)
	}

	fmt.Println("figure written →", target)
}
