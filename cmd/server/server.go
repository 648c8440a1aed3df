package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tutor-server/services/chat-api/internal/config"
	"tutor-server/services/chat-api/internal/domain/chat"
	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/domain/prompt"
	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/domain/tokenusage"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/domain/vocabulary"
	"tutor-server/services/chat-api/internal/infrastructure/crontab"
	"tutor-server/services/chat-api/internal/infrastructure/database"
	"tutor-server/services/chat-api/internal/infrastructure/database/repository/conversationrepo"
	"tutor-server/services/chat-api/internal/infrastructure/database/repository/tokenusagerepo"
	"tutor-server/services/chat-api/internal/infrastructure/database/repository/userrepo"
	"tutor-server/services/chat-api/internal/infrastructure/database/repository/vocabularyrepo"
	"tutor-server/services/chat-api/internal/infrastructure/database/transaction"
	"tutor-server/services/chat-api/internal/infrastructure/logger"
	"tutor-server/services/chat-api/internal/infrastructure/tts/edge"
	"tutor-server/services/chat-api/internal/interfaces/httpserver"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/handlers"
	"tutor-server/services/chat-api/internal/utils/httpclients"
	chatclient "tutor-server/services/chat-api/internal/utils/httpclients/chat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if cfg.AutoMigrate {
		if err := database.Migration(db, "chat_api."); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
	}
	txDB := transaction.NewDatabase(db)

	// Repositories
	userRepo := userrepo.NewUserGormRepository(txDB)
	convRepo := conversationrepo.NewConversationGormRepository(txDB)
	usageRepo := tokenusagerepo.NewTokenUsageGormRepository(txDB)
	vocabRepo := vocabularyrepo.NewVocabularyGormRepository(txDB)

	// Domain services
	users := user.NewService(userRepo, cfg.UserTokenLimit)
	convs := conversation.NewService(convRepo, userRepo, txDB, cfg.DeleteGracePeriod)
	usage := tokenusage.NewService(usageRepo)
	vocabs := vocabulary.NewService(vocabRepo)

	// Speech synthesis pipeline
	synth := edge.NewClient(edge.Config{
		Endpoint:     cfg.TTSEndpoint,
		TrustedToken: cfg.TTSTrustedToken,
	}, logger.WithComponent("tts-edge"))
	bridge := speech.NewBridge(synth, cfg.TTSSynthesisLimit, logger.WithComponent("tts-bridge"))
	audioCache := speech.NewAudioCache(cfg.TTSCacheSize, cfg.TTSCacheTTL)
	speechSvc := speech.NewService(audioCache, bridge, logger.WithComponent("speech"))

	// Streaming completion relay
	prompts := prompt.NewBuilder(prompt.TutorPrompt, cfg.MaxHistoryMessages, cfg.MaxPromptTokens)
	streamer := chatclient.NewCompletionClient(
		httpclients.NewClient("completion"),
		"completion", cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel,
	)
	relay := chat.NewRelay(
		convs, prompts, streamer, usage, speechSvc,
		cfg.AIModel, cfg.MaxCompletionTokens,
		cfg.Environment == "production",
		logger.WithComponent("relay"),
	)

	handlerProvider := handlers.NewProvider(cfg, relay, convs, speechSvc, users, usage, vocabs, log)
	httpServer := httpserver.New(cfg, log, users, handlerProvider)
	sweeper := crontab.NewCrontab(convs)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return httpServer.Run(egCtx)
	})
	eg.Go(func() error {
		return sweeper.Run(egCtx)
	})
	eg.Go(func() error {
		return runMetricsServer(egCtx, cfg.MetricsPort, log)
	})
	eg.Go(func() error {
		// pprof on the default mux
		return http.ListenAndServe("0.0.0.0:6060", nil)
	})

	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}
	log.Info().Msg("application exited cleanly")
}

func runMetricsServer(ctx context.Context, port int, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("metrics server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
