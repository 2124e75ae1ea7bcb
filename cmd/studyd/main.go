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

	"github.com/joho/godotenv"

	"recall-study/internal/analytics"
	"recall-study/internal/chat"
	"recall-study/internal/config"
	"recall-study/internal/identity"
	"recall-study/internal/llm"
	"recall-study/internal/logsink"
	"recall-study/internal/notify"
	"recall-study/internal/scheduler"
	"recall-study/internal/session"
	"recall-study/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	sink, err := newSink(cfg)
	if err != nil {
		log.Fatalf("failed to init log sink: %v", err)
	}

	llmClient, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider, cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	systemPrompt := readSystemPrompt(cfg.SystemPromptPath)

	alloc := identity.New(identity.Mode(cfg.IdentityMode))
	sessions := session.NewManager(alloc.Allocate)
	ctrl := chat.New(llmClient, sink, systemPrompt, chat.ContextMode(cfg.ContextMode), cfg.GatewayTimeout)
	server := web.NewServer(sessions, ctrl, cfg.StudyTitle)

	sched := setupReporting(cfg, sink)
	if sched != nil {
		defer sched.Stop()
	}

	go func() {
		log.Printf("study chat listening on %s (provider=%s, sink=%s, context=%s)",
			cfg.ListenAddr, cfg.LLMProvider, cfg.LogSink, cfg.ContextMode)
		if err := server.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newSink(cfg *config.Config) (logsink.Sink, error) {
	switch cfg.LogSink {
	case config.SinkSheets:
		return logsink.NewSheetsSink(context.Background(), cfg.SheetsCredentials, cfg.SpreadsheetID, cfg.SheetsRange)
	default:
		return logsink.NewFileSink(cfg.LogFilePath)
	}
}

// setupReporting wires the optional daily operator report: requires a
// notifier target and a sink that can read its records back.
func setupReporting(cfg *config.Config, sink logsink.Sink) *scheduler.Scheduler {
	if cfg.TelegramBotToken == "" {
		return nil
	}

	loader, ok := sink.(logsink.Loader)
	if !ok {
		log.Printf("daily reports disabled: the %s sink cannot read records back", cfg.LogSink)
		return nil
	}

	notifier, err := notify.New(cfg.TelegramBotToken, cfg.OperatorChatID)
	if err != nil {
		log.Printf("failed to init operator notifier, daily reports disabled: %v", err)
		return nil
	}

	sched := scheduler.New(cfg.ReportCronSpec)
	sched.SetReportFunction(func(ctx context.Context) error {
		entries, err := loader.Load()
		if err != nil {
			return err
		}
		stats := analytics.AnalyzeDailyLogs(entries, time.Now().UTC())
		return notifier.Send(stats.GenerateReportSummary())
	})
	if err := sched.Start(); err != nil {
		log.Printf("failed to start report scheduler: %v", err)
		return nil
	}
	return sched
}

func readSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("system prompt file not found or unreadable at %s: %v", path, err)
		return ""
	}
	return string(data)
}
