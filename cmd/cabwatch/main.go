package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cabwatch/internal/command"
	"cabwatch/internal/config"
	"cabwatch/internal/gateway"
	"cabwatch/internal/logging"
	"cabwatch/internal/notify"
	"cabwatch/internal/roster"
	"cabwatch/internal/scheduler"
	"cabwatch/internal/source"
	"cabwatch/internal/store"
	httptransport "cabwatch/internal/transport/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("DOTENV_PATH")); err != nil {
		panic(err)
	}
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	closer, err := logging.Init(logCfg)
	if err != nil {
		panic(err)
	}
	defer closer.Close()

	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build locations failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		archiver scheduler.Archiver
		visits   httptransport.VisitLister
	)
	if cfg.Server.PostgresDSN != "" {
		st, err := store.New(ctx, cfg.Server.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure schema failed")
		}
		archiver, visits = st, st
	}

	src, err := source.NewClient(cfg.Bot.SourceBaseURL, cfg.Bot.FetchTimeout())
	if err != nil {
		log.Fatal().Err(err).Msg("source init failed")
	}

	dir := notify.NewDirectory()
	notifier := notify.NewManager(notify.ConfigFrom(cfg.Bot, cfg.Notify, cfg.Locations.AlertChannel), dir, reg)
	if err := notifier.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("notifier start failed")
	}

	svc := command.NewService(reg, src, notifier, cfg.Bot.CabCapacity)
	chat := command.NewChatHandler(svc, dir, cfg.Locations.AdminDiscordTags)
	gw := gateway.New(gateway.Config{URL: cfg.Bot.DiscordGatewayURL, Token: cfg.Bot.DiscordBotToken}, dir, chat)
	sched := scheduler.New(scheduler.Config{Interval: cfg.Bot.RefreshInterval()}, reg, src, notifier, archiver)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gw.Run(ctx) })

	if cfg.Server.HTTPAddr != "" {
		r := httptransport.NewRouter(httptransport.Deps{
			Service:     svc,
			Cycles:      sched,
			Visits:      visits,
			AdminAPIKey: cfg.Server.AdminAPIKey,
		})
		httptransport.LogRoutes(r)
		server := &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("admin http listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		// Channel names are needed before the first topic update.
		select {
		case <-gw.Ready():
		case <-ctx.Done():
			return nil
		}
		if err := sched.InitialLoad(ctx); err != nil {
			log.Error().Err(err).Msg("initial load incomplete, first cycle will seed the rest")
		}
		log.Info().Dur("interval", cfg.Bot.RefreshInterval()).Msg("starting update loop")
		return sched.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("cabwatch stopped")
	}
	log.Info().Msg("cabwatch stopped")
}

func buildRegistry(cfg config.AppConfig) (*roster.Registry, error) {
	reg := roster.NewRegistry()
	for _, shop := range cfg.Locations.Shops {
		loc, err := roster.NewLocation(shop.ID, shop.TimeZone)
		if err != nil {
			return nil, err
		}
		if err := reg.AddLocation(loc); err != nil {
			return nil, err
		}
		for _, cookie := range shop.Cookies {
			if _, err := reg.AddCab(loc.ID, roster.NewCab(store.NewID(), cookie, cfg.Bot.CabCapacity)); err != nil {
				return nil, err
			}
		}
		log.Info().Str("location", loc.ID).Str("time_zone", loc.TimeZone).Int("cabs", len(shop.Cookies)).Msg("location configured")
	}
	reg.MarkVisible(cfg.Locations.VisiblePlayers...)
	reg.MarkWatched(cfg.Locations.TFTIPlayers...)
	return reg, nil
}
