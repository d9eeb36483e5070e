package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"uml-architect/api/internal/config"
	"uml-architect/api/internal/session"
	"uml-architect/api/internal/store"
	"uml-architect/api/internal/telegram"
	"uml-architect/api/internal/uml"
	"uml-architect/api/internal/uml/gemini"
	"uml-architect/api/internal/uml/gpt"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Session holder ---
	var (
		sessions session.Store = session.NewMemory()
		db       *sql.DB
	)
	if dsn := resolveDSN(cfg.DatabaseURL); dsn != "" {
		db = openDB(ctx, dsn)
		defer db.Close()
		repo := store.NewSessionRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		sessions = repo
		go purgeLoop(ctx, repo, cfg.SessionTTL, time.Hour)
	} else {
		log.Printf("no database configured; last diagrams are kept in memory")
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.MustBotToken())
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	engines := &uml.Engines{
		OpenAI: gpt.New(config.Env),
		Gemini: gemini.New(config.Env),
	}
	r := &telegram.Router{
		Bot:        bot,
		Engines:    engines,
		EngManager: uml.NewManager(engines.OpenAI),
		Sessions:   sessions,
	}

	// ListenForWebhook registers on DefaultServeMux, so healthz lives there too.
	http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			pctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(pctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, webhookURL)
	} else {
		startPollingMode(ctx, addr, bot, r)
	}
	r.Wait()
}

func openDB(ctx context.Context, dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}
	log.Printf("db connected: %s", safeDSNSummary(dsn))
	return db
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Printf("webhook updates channel closed")
	}()

	srv := &http.Server{Addr: addr}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Printf("health server listening on %s/healthz", addr)
	log.Printf("webhook listening on %s%s", addr, path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	go func() {
		log.Printf("health server listening on %s/healthz", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatal(err)
		}
	}()

	runPolling(ctx, bot, r.HandleUpdate)
}

// ---------------- Session purge -----------------

type purger interface {
	PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// purgeLoop drops sessions idle longer than ttl, once at start and then every
// tick, until ctx is done. A zero ttl disables it.
func purgeLoop(ctx context.Context, p purger, ttl, every time.Duration) {
	if ttl <= 0 {
		log.Printf("session purge disabled")
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := p.PurgeOlderThan(ctx, ttl)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Printf("session purge: %v", err)
		case n > 0:
			log.Printf("session purge: removed %d idle sessions", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
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

func clampDelay(d time.Duration) time.Duration {
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	return min(max(d, baseDelay), maxDelay)
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err))
			log.Printf("polling error: %v; retry in %v", err, d)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// ---------------- Helpers -----------------

// resolveDSN prefers DATABASE_URL, then POSTGRES_* / PG* parts. Without a
// password or host there is no database and the bot keeps sessions in memory.
func resolveDSN(databaseURL string) string {
	if v := strings.TrimSpace(databaseURL); v != "" {
		return v
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := strings.TrimSpace(os.Getenv("PGHOST"))
	if pass == "" && host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenvDefault("POSTGRES_USER", "uml"), pass),
		Host:     net.JoinHostPort(defaultString(host, "db"), getenvDefault("PGPORT", "5432")),
		Path:     "/" + getenvDefault("POSTGRES_DB", "uml"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	return defaultString(strings.TrimSpace(os.Getenv(key)), def)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// shortHash is FNV-1a over the token, used to keep the webhook path secret.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return fmt.Sprintf("%016x", h)
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
