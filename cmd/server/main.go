package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iconidentify/chalkboard/internal/analogy"
	"github.com/iconidentify/chalkboard/internal/api"
	"github.com/iconidentify/chalkboard/internal/api/handler"
	"github.com/iconidentify/chalkboard/internal/audio"
	"github.com/iconidentify/chalkboard/internal/cache"
	"github.com/iconidentify/chalkboard/internal/captions"
	"github.com/iconidentify/chalkboard/internal/chat"
	"github.com/iconidentify/chalkboard/internal/commentary"
	"github.com/iconidentify/chalkboard/internal/config"
	"github.com/iconidentify/chalkboard/internal/dedup"
	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/frames"
	"github.com/iconidentify/chalkboard/internal/metadata"
	"github.com/iconidentify/chalkboard/internal/tts"
	"github.com/iconidentify/chalkboard/internal/vision"
	"github.com/iconidentify/chalkboard/internal/worker"
	"github.com/iconidentify/chalkboard/pkg/elevenlabs"
	"github.com/iconidentify/chalkboard/pkg/ffmpeg"
	"github.com/iconidentify/chalkboard/pkg/inference"
	"github.com/iconidentify/chalkboard/pkg/ytdlp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serverShutdownTimeout  = 30 * time.Second
	janitorShutdownTimeout = 10 * time.Second
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chalkboard %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting chalkboard",
		"version", Version,
		"build_time", BuildTime,
	)

	ctx := context.Background()

	// External tools
	yt := ytdlp.New(cfg.Tools.YTDLPPath)
	ff := ffmpeg.NewProcessor(cfg.Tools.FFmpegPath)
	if !yt.IsAvailable() {
		logger.Warn("yt-dlp not found; captions, frames and metadata will be empty", "path", cfg.Tools.YTDLPPath)
	}
	if !ff.IsAvailable() {
		logger.Warn("ffmpeg not found; frames and audio fallback disabled", "path", cfg.Tools.FFmpegPath)
	}

	// Hosted models
	models, err := buildModels(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure providers", "error", err)
		os.Exit(1)
	}

	// Analysis cache
	analysisCache, closeCache, err := buildCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to initialize cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// Media sources
	captionSource := captions.NewSource(yt, logger, captions.WithFetchTimeout(cfg.Timeouts.CaptionFetch))
	videoResolver := frames.NewVideoResolver(yt, cfg.Frames.StreamURLTTL, logger)
	audioResolver := frames.NewAudioResolver(yt, cfg.Frames.StreamURLTTL, logger)
	frameSource := frames.NewSource(videoResolver, ff, frames.Options{
		MaxEdge:         cfg.Frames.MaxEdge,
		JPEGQuality:     cfg.Frames.JPEGQuality,
		Concurrency:     cfg.Frames.Concurrency,
		FrameTimeout:    cfg.Timeouts.Frame,
		MaxFrames:       cfg.Frames.MaxFrames,
		SimilarDistance: cfg.Frames.SimilarDistance,
	}, logger)
	metadataSvc := metadata.NewService(yt, cfg.Timeouts.Metadata, logger)

	// Vision, with optional detection/pose enrichment
	var enricher *vision.Enricher
	if cfg.Enrichment.URL != "" {
		client := inference.NewClient(inference.Config{
			BaseURL: cfg.Enrichment.URL,
			Timeout: cfg.Enrichment.Timeout,
		})
		enricher = vision.NewEnricher(client, client, logger)
	}
	describer := vision.NewDescriber(models.vision, enricher, logger)

	transcriber := audio.NewTranscriber(audioResolver, ff, models.audio, os.TempDir(), logger)
	generator := analogy.NewGenerator(models.text, logger, analogy.WithTimeout(cfg.Timeouts.Text))

	// Pipelines
	chain := commentary.NewChain(commentary.PipelineAnalyze, commentary.AnalysisStages(
		commentary.Sources{
			Frames:   frameSource,
			Vision:   describer,
			Captions: captionSource,
			Audio:    transcriber,
		},
		commentary.Timeouts{
			Vision:   cfg.Timeouts.AnalyzeVision,
			Captions: cfg.Timeouts.AnalyzeCaption,
			Audio:    cfg.Timeouts.AnalyzeAudio,
		},
		commentary.DefaultWindowSeconds,
	), logger)
	logger.Info("analysis pipeline configured", "stages", strings.Join(chain.Stages(), ","))

	analysisSvc := commentary.NewAnalysisService(chain, generator, analysisCache, cfg.Cache.AnalyzeTTL, logger)
	liveSvc := commentary.NewLiveService(frameSource, describer,
		dedup.NewRegistry(cfg.Dedup.Threshold, cfg.Dedup.MaxHistory), cfg.Timeouts.Live, logger)
	chatSvc := chat.NewService(models.chat, captionSource, logger, chat.WithTimeout(cfg.Timeouts.Chat))

	// Speech
	var speech tts.Synthesizer
	if cfg.ElevenLabs.APIKey != "" {
		speech = elevenlabs.NewClient(elevenlabs.Config{
			APIKey:  cfg.ElevenLabs.APIKey,
			VoiceID: cfg.ElevenLabs.VoiceID,
			BaseURL: cfg.ElevenLabs.BaseURL,
			Timeout: cfg.ElevenLabs.Timeout,
		})
	}
	ttsSvc := tts.NewService(speech, logger)

	// Initialize handlers
	info := handler.ServiceInfo{
		Version:   Version,
		HasAPIKey: cfg.HasAnyProviderKey(),
		Capabilities: handler.Capabilities{
			Vision:     describer.Available(),
			Text:       generator.Available(),
			Chat:       chatSvc.Available(),
			Audio:      transcriber.Available(),
			TTS:        ttsSvc.Available(),
			Captions:   yt.IsAvailable(),
			Frames:     yt.IsAvailable() && ff.IsAvailable(),
			Enrichment: enricher != nil,
		},
		CacheBackend: cfg.Cache.Backend,
	}
	logger.Info("capabilities", "capabilities", info.Capabilities, "stub_mode", !cfg.HasAnyProviderKey())

	router := api.NewRouter(api.Handlers{
		Health:  handler.NewHealthHandler(info, analysisSvc, logger),
		Analyze: handler.NewAnalyzeHandler(analysisSvc, generator, logger),
		Video:   handler.NewVideoHandler(captionSource, transcriber, metadataSvc, logger),
		Chat:    handler.NewChatHandler(chatSvc, logger),
		Live:    handler.NewLiveHandler(liveSvc, logger),
		TTS:     handler.NewTTSHandler(ttsSvc, logger),
	}, api.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)

	// Start cache janitor
	janitor := worker.NewJanitor(worker.Config{Interval: cfg.Cache.SweepInterval}, map[string]worker.Sweeper{
		"analysis":      analysisSvc,
		"video_streams": videoResolver,
		"audio_streams": audioResolver,
	}, logger)
	janitor.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := janitor.Stop(janitorShutdownTimeout); err != nil {
		logger.Error("janitor shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildCache returns the analysis cache for the configured backend and a
// function that releases it.
func buildCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.Cache[domain.Analysis], func(), error) {
	if cfg.Backend != "redis" {
		logger.Info("using in-memory analysis cache", "max_entries", cfg.MaxEntries)
		return cache.NewMemory[domain.Analysis](cfg.TTL, cache.WithMaxEntries[domain.Analysis](cfg.MaxEntries)), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("using redis analysis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return cache.NewRedis[domain.Analysis](client, "analysis", cfg.TTL), func() { client.Close() }, nil
}
