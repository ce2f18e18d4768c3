// Command bot boots the flatradar apartment-listing notification
// service.
//
// Startup sequence (adapted from the teacher's cmd/web/main.go, which
// loads env -> opens the control-plane DB -> loads tenants -> starts an
// HTTP server; flatradar has one "tenant" -- its own cache DB -- and one
// HTTP server exposing only metrics/health, plus a long-polling Telegram
// client instead of a host-routed web server):
//  1. Load configuration (internal/config.Load), which itself loads
//     .env, conf/global.yaml, FLATRADAR_ env overrides, and resolves any
//     vault: secrets.
//  2. Open the remote cache database (internal/database.Open).
//  3. Build the shared HTTP client, city-code cache, and wire every
//     self-registered source adapter's real collaborators via Configure.
//  4. Construct every domain store (subscriber, filterstore, cachestore,
//     seenset, shortlink), the aggregator, the Telegram Messenger, the
//     dispatcher, the scheduler, and the bot gateway.
//  5. Start the scheduler and the Telegram long-polling loop.
//  6. Serve /metrics and /healthz on the admin listener.
//  7. Block until SIGINT/SIGTERM, then shut everything down.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yanizio/flatradar/internal/adapter"
	"github.com/yanizio/flatradar/internal/aggregator"
	"github.com/yanizio/flatradar/internal/bot"
	"github.com/yanizio/flatradar/internal/cachestore"
	"github.com/yanizio/flatradar/internal/citycache"
	"github.com/yanizio/flatradar/internal/cityresolver"
	"github.com/yanizio/flatradar/internal/config"
	"github.com/yanizio/flatradar/internal/database"
	"github.com/yanizio/flatradar/internal/delivery"
	"github.com/yanizio/flatradar/internal/dispatcher"
	"github.com/yanizio/flatradar/internal/filterstore"
	"github.com/yanizio/flatradar/internal/httpclient"
	loggerpkg "github.com/yanizio/flatradar/internal/logger"
	"github.com/yanizio/flatradar/internal/middleware"
	"github.com/yanizio/flatradar/internal/scheduler"
	"github.com/yanizio/flatradar/internal/seenset"
	"github.com/yanizio/flatradar/internal/server"
	"github.com/yanizio/flatradar/internal/shortlink"
	"github.com/yanizio/flatradar/internal/subscriber"
)

// knownCities is the fixed set of Belarusian cities the source adapters
// recognize without a citycache probe (kufar.go's kufarCityGTSY union).
// cityresolver's real fuzzy-matching implementation is out of scope
// (spec.md §1); Static is enough to validate filters end to end.
var knownCities = []string{
	"baranovichi", "brest", "minsk", "gomel", "grodno", "vitebsk", "mogilev", "orsha",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := loggerpkg.New(cfg.Paths.Root, true, loggerpkg.Options{})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	dsn := resolveDSN(cfg.Database.CacheDSN, cfg.Database.CachePassword)
	db, err := database.Open(dsn)
	if err != nil {
		lg.Fatalf("connect cache db: %v", err)
	}
	defer db.Close()

	httpClient := httpclient.New(lg)
	cityCache := citycache.New(citycache.DefaultIdleTTL, citycache.DefaultMaxEntries, lg)
	defer cityCache.Stop()

	cacheStore := cachestore.New(db)
	seenSet := seenset.NewSeenSet(db)
	deliveredSet := seenset.NewDeliveredSet(db, lg)

	for _, src := range adapter.All() {
		if c, ok := src.(interface {
			Configure(*httpclient.Client, *citycache.Cache, *log.Logger, adapter.OldChecker)
		}); ok {
			c.Configure(httpClient, cityCache, lg, deliveredSet)
		}
	}

	subscribers := subscriber.New(db)
	filters := filterstore.New(db)
	shortlinks := shortlink.New(db)
	agg := aggregator.New(lg, nil)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		lg.Fatalf("connect telegram: %v", err)
	}
	messenger := delivery.New(botAPI, lg)

	resolver := cityresolver.Static(staticCityMap(knownCities))
	variants := bot.NewVariantStore(bot.DefaultVariantCacheSize)

	disp := dispatcher.New(
		lg, filters, cacheStore, seenSet, deliveredSet, subscribers, agg, messenger,
		variants, cfg.Bot.FXRateBYNUSD, nil,
	)
	sched := scheduler.New(lg, disp, cacheStore, cfg.Bot.CheckInterval())

	gateway := bot.New(
		lg, subscribers, filters, seenSet, shortlinks, resolver, messenger,
		sched, variants, cfg.Bot.AdminChatIDs,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sched.Start(ctx)
	go pollUpdates(ctx, lg, botAPI, gateway)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := server.New(cfg.HTTP.ListenAddr, withSecurity(cfg, mux))
	go func() {
		lg.Printf("admin server listening on %s", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Printf("admin server: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Printf("shutting down")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// withSecurity wraps h with the admin surface's security headers, and
// forces HTTPS redirects when the config demands it.
func withSecurity(cfg *config.Config, h http.Handler) http.Handler {
	h = middleware.Security(h)
	if cfg.HTTP.ForceHTTPS {
		h = middleware.ForceHTTPS(h)
	}
	return h
}

// resolveDSN substitutes the {password} placeholder in the YAML-held DSN
// template with the Vault-resolved secret, keeping credentials out of
// the static config file.
func resolveDSN(template, password string) string {
	return strings.ReplaceAll(template, "{password}", password)
}

func staticCityMap(cities []string) map[string]string {
	m := make(map[string]string, len(cities))
	for _, c := range cities {
		m[c] = c
	}
	return m
}

// pollUpdates runs Telegram long-polling until ctx is cancelled, handing
// every update to gateway. Grounded on the standard go-telegram-bot-api
// GetUpdatesChan usage other_examples' govega wires the same client with.
func pollUpdates(ctx context.Context, lg *log.Logger, api *tgbotapi.BotAPI, gateway *bot.Bot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			gateway.HandleUpdate(ctx, update)
		}
	}
}
