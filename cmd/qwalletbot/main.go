package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/businas/qwallet-bot/internal/api/rest"
	"github.com/businas/qwallet-bot/internal/api/tg"
	"github.com/businas/qwallet-bot/internal/config"
	"github.com/businas/qwallet-bot/internal/logger"
	"github.com/businas/qwallet-bot/internal/service/ledger/v1/ledger"
	"github.com/businas/qwallet-bot/internal/service/notifier/v1/notifier"
	"github.com/businas/qwallet-bot/internal/service/secretary/v1/secretary"
	"github.com/businas/qwallet-bot/internal/service/tracker/v1/tracker"
	"github.com/businas/qwallet-bot/internal/storage/v1/inpsql"
)

func main() {
	wg := &sync.WaitGroup{}

	log := logger.InitLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// get configuration
	cfg, err := config.NewConfiguration()
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	cfg.ParseFlags()

	// initialize storage and services
	st, err := inpsql.InitStorage(ctx, cfg.StorageConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	mainService, err := ledger.InitService(st, secretaryService, cfg.LedgerConfig, cfg.BotConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	trackerService := tracker.InitTracker(cfg.LedgerConfig, log)
	trackerService.StartJanitor(ctx, wg)

	// initialize the telegram transport
	bot, err := tg.InitBot(cfg.BotConfig, mainService, trackerService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}

	// initialize the notification dispatcher
	queueService := notifier.InitNotifier(ctx, mainService.Queue, log, wg, bot, cfg.NotifierConfig.WorkerNumber, cfg.NotifierConfig.RetryNumber)
	queueService.ListenAndDeliver()

	// initialize the operational server
	server, err := rest.InitServer(cfg.OpsConfig, log, st)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}

	// set a listener for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-done
		log.Info().Msg("server shutdown attempted")
		ctxTO, cancelTO := context.WithTimeout(ctx, 5*time.Second)
		defer cancelTO()
		if err := server.Shutdown(ctxTO); err != nil {
			log.Fatal().Err(err).Msg("server shutdown failed")
		}
		cancel()
	}()

	// start up the operational server and the update loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("operational server start attempted")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("")
		}
	}()
	bot.ListenAndServe(ctx)
	wg.Wait()
	log.Info().Msg("server shutdown succeeded")
}
