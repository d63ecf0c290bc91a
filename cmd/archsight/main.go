package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"archsight/internal/artifact"
	"archsight/internal/llmclient"
	"archsight/internal/progress"
	"archsight/internal/ratelimit"
	"archsight/internal/retry"
	"archsight/internal/review"
	"archsight/internal/runstore"
	"archsight/internal/scan"
	"archsight/internal/server"
)

func main() {
	repo := flag.String("repo", "", "path to the repository root")
	provider := flag.String("provider", "gemini", "LLM provider: gemini or groq")
	model := flag.String("model", "", "model id (defaults per provider)")
	outDir := flag.String("out", "out", "artifact directory")
	maxIters := flag.Int("max-iters", 3, "max conversation iterations")
	listen := flag.String("listen", "", "serve run status on this address (e.g. :8080)")
	flag.Parse()
	if *repo == "" {
		log.Fatal("--repo is required")
	}

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := newClient(ctx, *provider, *model)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	scanner, err := scan.NewService(*repo)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("indexed %d files in %s", len(scanner.Index()), *repo)

	store, err := newArtifactStore(*outDir)
	if err != nil {
		log.Fatal(err)
	}
	runs := runstore.NewFromEnv(filepath.Join(*outDir, "runs.json"))

	hub := progress.NewHub()
	if *listen != "" {
		srv := server.New(*listen, runs, hub, log.Default())
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("server: %v", err)
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	svc := &review.Service{
		Client:    client,
		Scanner:   scanner,
		Artifacts: store,
		Runs:      runs,
		Limiter:   ratelimit.New(),
		Policy:    retry.DefaultPolicy(),
		Log:       log.Default(),
	}

	out, err := svc.Run(progress.WithEmitter(ctx, hub), review.Config{
		Repo:          *repo,
		MaxIterations: *maxIters,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("run %s completed after %d iteration(s), %d parse warning(s)", out.RunID, out.Iterations, out.Warnings)
	log.Printf("artifacts written under %s/%s", *outDir, out.RunID)
}

func newClient(ctx context.Context, provider, model string) (llmclient.LLMClient, error) {
	switch provider {
	case "gemini":
		if model == "" {
			model = "gemini-2.5-flash"
		}
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return llmclient.NewGeminiClient(ctx, apiKey, model)
	case "groq":
		if model == "" {
			model = "llama-3.3-70b-versatile"
		}
		return llmclient.NewGroqClient(os.Getenv("GROQ_API_KEY"), model)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// newArtifactStore prefers S3 when the environment configures it.
func newArtifactStore(outDir string) (artifact.Store, error) {
	endpoint := os.Getenv("ARCHSIGHT_S3_ENDPOINT")
	if endpoint == "" {
		return artifact.NewLocalStore(outDir)
	}
	return artifact.NewS3Store(artifact.S3Config{
		Endpoint:  endpoint,
		Region:    os.Getenv("ARCHSIGHT_S3_REGION"),
		AccessKey: os.Getenv("ARCHSIGHT_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("ARCHSIGHT_S3_SECRET_KEY"),
		Bucket:    os.Getenv("ARCHSIGHT_S3_BUCKET"),
		UseSSL:    os.Getenv("ARCHSIGHT_S3_USE_SSL") == "true",
	})
}
