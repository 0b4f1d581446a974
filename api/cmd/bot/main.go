package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"genecross/api/internal/archive"
	"genecross/api/internal/config"
	"genecross/api/internal/cross"
	"genecross/api/internal/httpserver"
	"genecross/api/internal/logging"
	"genecross/api/internal/store"
	"genecross/api/internal/telegram"
	"genecross/api/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]httpserver.HealthFunc{}

	// --- History ---
	var history *store.HistoryRepo
	if cfg.HistoryDriver != "" {
		db, err := store.Open(ctx, cfg.HistoryDriver, cfg.HistoryDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		history = store.NewHistoryRepo(db, cfg.HistoryDriver)
		if err := history.EnsureSchema(ctx); err != nil {
			return err
		}
		checks["db"] = db.PingContext
		log.Info().Str("driver", string(cfg.HistoryDriver)).Str("db", config.SafeDSNSummary(cfg.HistoryDSN())).Msg("history enabled")
	}

	// --- Archive ---
	arch, err := archive.Open(ctx, archive.Driver(cfg.ArchiveDriver), cfg.ArchiveDir, archive.S3Config{
		Bucket:          cfg.ArchiveBucket,
		Region:          cfg.ArchiveRegion,
		Endpoint:        cfg.ArchiveEndpoint,
		PathStyle:       cfg.ArchivePathStyle,
		AccessKeyID:     cfg.ArchiveAccessKey,
		SecretAccessKey: cfg.ArchiveSecretKey,
	})
	if err != nil {
		return err
	}
	if arch != nil {
		log.Info().Str("driver", string(arch.Driver())).Msg("archive enabled")
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	bot.Debug = false

	client := cross.New(cfg.CrossServiceURL, cfg.CrossTimeout)
	log.Info().Str("url", client.URL()).Dur("timeout", cfg.CrossTimeout).Str("mode", string(cfg.EditMode)).Msg("cross service")

	r := &telegram.Router{
		Bot:         bot,
		Cross:       client,
		Archive:     arch,
		DefaultMode: cfg.EditMode,
		Log:         log.With().Str("component", "telegram").Logger(),
	}
	if history != nil {
		r.History = history
	}

	mux := http.NewServeMux()
	httpserver.Mount(mux, checks)

	g, gctx := errgroup.WithContext(ctx)
	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path, err := registerWebhook(bot, webhookURL)
		if err != nil {
			return err
		}
		mux.HandleFunc(path, webhookHandler(gctx, bot, r, log))
		log.Info().Str("path", path).Msg("webhook mode")
	} else {
		g.Go(func() error {
			runPolling(gctx, bot, func(upd tgbotapi.Update) { r.HandleUpdate(gctx, upd) }, log)
			return nil
		})
	}
	g.Go(func() error { return httpserver.Run(gctx, addr, mux, log) })

	if history != nil && cfg.HistoryRetention > 0 {
		g.Go(func() error {
			purgeLoop(gctx, history, cfg.HistoryRetention, log)
			return nil
		})
	}

	err = g.Wait()
	r.Wait()
	return err
}

// ---------------- Modes -----------------

func registerWebhook(bot *tgbotapi.BotAPI, baseURL string) (string, error) {
	path := "/webhook/" + util.SHA256Hex([]byte(bot.Token))[:16]
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return "", err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return "", err
	}
	return path, nil
}

func webhookHandler(ctx context.Context, bot *tgbotapi.BotAPI, r *telegram.Router, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn().Err(err).Msg("bad webhook update")
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		// submissions outlive the webhook request
		r.HandleUpdate(ctx, *upd)
	}
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update), log zerolog.Logger) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	log.Info().Msg("polling mode")
	for ctx.Err() == nil {
		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
	log.Info().Msg("polling: context cancelled")
}

// ---------------- History retention -----------------

func purgeLoop(ctx context.Context, repo *store.HistoryRepo, keep time.Duration, log zerolog.Logger) {
	for {
		n, err := repo.PurgeOlderThan(ctx, keep)
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("history purge failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("history purged")
		}
		if !sleep(ctx, time.Hour) {
			return
		}
	}
}
