package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	appemail "mailsweep/internal/application/email"
	domain "mailsweep/internal/domain/email"
	"mailsweep/internal/infrastructure/config"
	"mailsweep/internal/infrastructure/gmail"
	"mailsweep/internal/infrastructure/llm"
	"mailsweep/internal/infrastructure/persistence/sqlite"
	httpapi "mailsweep/internal/interfaces/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// run serves until ctx is cancelled. Every resource it opens is closed
// before it returns.
func run(ctx context.Context, cfg *config.Config) error {
	cache, err := sqlite.NewCategoryCache(cfg.CategoryCacheDSN)
	if err != nil {
		return fmt.Errorf("open category cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close category cache")
		}
	}()

	var (
		classifier appemail.Classifier = appemail.NoopClassifier{}
		summarizer appemail.Summarizer
	)
	if cfg.ClassificationEnabled() {
		llmClient, err := llm.NewClient(cfg.OpenAIAPIKey, cfg.ModelName, log.Logger)
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		classifier, summarizer = llmClient, llmClient
	} else {
		log.Info().Msg("OPENAI_API_KEY not set, sender categorization disabled")
	}

	authn, err := gmail.NewAuthenticator(cfg.CredentialsPath, cfg.RedirectURL, cfg.TokenPath, log.Logger)
	if err != nil {
		return fmt.Errorf("load Google credentials: %w", err)
	}

	open := func(ctx context.Context, tok *oauth2.Token) (*appemail.Session, error) {
		// refreshes outlive the request that signed in
		srv, err := gmail.NewService(ctx, authn.TokenSource(context.Background(), tok))
		if err != nil {
			return nil, err
		}
		client := gmail.NewClient(srv, cfg.RequestsPerSecond, log.Logger)

		account, err := client.UserEmail(ctx)
		if err != nil {
			return nil, fmt.Errorf("get profile: %w", err)
		}

		return appemail.NewSession(account, appemail.Deps{
			Provider:   client,
			Classifier: classifier,
			Summarizer: summarizer,
			Cache:      cache,
		}, appemail.SessionConfig{
			MaxMessages: cfg.MaxEmailsPerFetch,
			Concurrency: cfg.MetadataConcurrency,
		}, log.Logger), nil
	}

	defaultFilter := domain.DefaultFilter()
	defaultFilter.AgeDays = cfg.DefaultDaysOld
	handler := httpapi.NewHandler(authn, open, defaultFilter, log.Logger)

	if tok, err := authn.CachedToken(); err != nil {
		log.Warn().Err(err).Msg("ignoring cached token")
	} else if tok != nil {
		s, err := open(ctx, tok)
		if err != nil {
			log.Warn().Err(err).Msg("cached token rejected, sign in again")
		} else {
			handler.SetSession(s)
			log.Info().Str("account", s.Account()).Msg("restored session")
		}
	}

	app := httpapi.NewApp(handler)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		log.Info().Msg("shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("mailsweep is running, open /auth/url to sign in")
	if err := app.Listen(cfg.ListenAddr); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
