package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/batch"
	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/config"
	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/queue"
)

func main() {
	log.Println("Initializing OPRLM batch downloader...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	inputDir := flag.String("input-dir", "", "Input directory containing YAML configuration files")
	outputDir := flag.String("output-dir", "", "Output directory for processed results")
	username := flag.String("user", defaultUsername(), "Username for launch identification")
	pattern := flag.String("config-pattern", "*.yml", "File pattern for YAML configs")
	maxWorkers := flag.Int("max-workers", 1, "Maximum concurrent jobs (currently only 1 supported)")
	headless := flag.Bool("headless", false, "Run browser in headless mode")
	continueOnError := flag.Bool("continue-on-error", false, "Continue processing even if individual jobs fail")
	dryRun := flag.Bool("dry-run", false, "Validate configs without processing")
	queueMode := flag.String("queue", "", "Consume submissions from a queue instead of -input-dir: redis | sqs")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("-output-dir must be set")
	}
	if *queueMode == "" && *inputDir == "" {
		log.Fatal("-input-dir must be set (or pick a -queue backend)")
	}
	if *maxWorkers != 1 {
		log.Printf("max-workers=%d requested; browser sessions run one at a time, using 1", *maxWorkers)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launchID := batch.GenerateLaunchID(*username)
	dirs, err := batch.NewDirectoryManager(*outputDir, launchID)
	if err != nil {
		log.Fatalf("Failed to prepare output directories: %v", err)
	}
	tracker, err := batch.NewTracker(dirs, *verbose)
	if err != nil {
		log.Fatalf("Failed to open logs: %v", err)
	}
	defer tracker.Close()

	if *queueMode != "" {
		runQueueWorker(ctx, *queueMode, dirs, tracker, *headless)
		return
	}

	configs, err := loadConfigs(*inputDir, *pattern)
	if err != nil {
		log.Fatalf("Failed to load configurations: %v", err)
	}
	if len(configs) == 0 {
		log.Println("No configuration files found.")
		return
	}
	log.Printf("Found %d configuration files", len(configs))

	if *dryRun {
		log.Println("DRY RUN: validating configurations...")
		errs := batch.DryRun(configs)
		for name, req := range configs {
			if err, bad := errs[name]; bad {
				log.Printf("  FAIL %s: %v", name, err)
			} else {
				log.Printf("  ok   %s: %s", name, req.PDBID)
			}
		}
		if len(errs) > 0 {
			os.Exit(1)
		}
		return
	}

	log.Printf("Starting batch processing with launch ID: %s", launchID)
	processor := batch.NewProcessor(dirs, tracker, *headless, *continueOnError)
	results, err := processor.Run(ctx, configs)
	if err != nil {
		log.Printf("Batch finished with error: %v", err)
	}

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	log.Printf("Batch processing complete: %d successful, %d failed", successful, len(results)-successful)
	log.Printf("Results saved to: %s", dirs.LaunchDir)
	if successful < len(results) {
		os.Exit(1)
	}
}

// loadConfigs reads every matching YAML config in dir, keyed by file name.
func loadConfigs(dir, pattern string) (map[string]*oprlm.Request, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	configs := make(map[string]*oprlm.Request, len(matches))
	for _, path := range matches {
		req, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		configs[filepath.Base(path)] = req
	}
	return configs, nil
}

func runQueueWorker(ctx context.Context, mode string, dirs *batch.DirectoryManager, tracker *batch.Tracker, headless bool) {
	var manager queue.Manager
	switch mode {
	case "redis":
		manager = newRedisManager()
	case "sqs":
		manager = newSQSManager(ctx)
	default:
		log.Fatalf("Unknown queue backend %q (want redis or sqs)", mode)
	}

	worker := batch.NewWorker(manager, dirs, tracker, headless)
	worker.Start(ctx)

	tracker.LogSummary()
	if err := tracker.SaveSummary(dirs.SummaryFile()); err != nil {
		log.Printf("Failed to save summary: %v", err)
	}
	log.Println("Queue worker shut down gracefully.")
}

func newRedisManager() *queue.RedisManager {
	host := envOr("REDIS_HOST", "localhost")
	port := envOr("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if value, err := strconv.Atoi(s); err == nil && value >= 0 {
			db = value
		}
	}

	inputQueue := envOr("REDIS_INPUT_QUEUE", "oprlm_submissions")
	outputQueue := envOr("REDIS_OUTPUT_QUEUE", "oprlm_results")
	prefix := os.Getenv("REDIS_PREFIX")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       db,
	})
	return queue.NewRedisManager(client, inputQueue, outputQueue, workerID(), prefix)
}

func newSQSManager(ctx context.Context) *queue.SQSManager {
	inputQueue := os.Getenv("SQS_INPUT_QUEUE_URL")
	outputQueue := os.Getenv("SQS_OUTPUT_QUEUE_URL")
	if inputQueue == "" || outputQueue == "" {
		log.Fatal("SQS_INPUT_QUEUE_URL and SQS_OUTPUT_QUEUE_URL must be set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return queue.NewSQSManager(sqs.NewFromConfig(cfg), inputQueue, outputQueue)
}

func workerID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	return hostname + ":" + strconv.Itoa(os.Getpid())
}

func defaultUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "oprlm"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
