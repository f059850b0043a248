package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"consentd/internal/audit"
	audithandler "consentd/internal/audit/handler"
	"consentd/internal/audit/recorder"
	"consentd/internal/audit/relay"
	authhandler "consentd/internal/auth/handler"
	authjwt "consentd/internal/auth/jwt"
	authservice "consentd/internal/auth/service"
	authstore "consentd/internal/auth/store"
	consenthandler "consentd/internal/consent/handler"
	consentservice "consentd/internal/consent/service"
	"consentd/internal/evidence"
	"consentd/internal/evidence/ratelimit"
	evidenceservice "consentd/internal/evidence/service"
	ingesthandler "consentd/internal/ingest/handler"
	"consentd/internal/platform/config"
	"consentd/internal/platform/httpserver"
	"consentd/internal/platform/logger"
	"consentd/internal/platform/metrics"
	platformredis "consentd/internal/platform/redis"
	templatehandler "consentd/internal/template/handler"
	templateservice "consentd/internal/template/service"
	httptransport "consentd/internal/transport/http"
)

const relayBufferSize = 256

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		db  *sql.DB
		err error
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	stores := selectStores(db, redisClient)

	group, ctx := errgroup.WithContext(ctx)

	recorderOpts := []recorder.Option{
		recorder.WithLogger(log),
		recorder.WithMetrics(m),
	}
	if cfg.KafkaBrokers != "" {
		publisher, err := relay.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		relayCh := make(chan audit.Event, relayBufferSize)
		recorderOpts = append(recorderOpts, recorder.WithRelay(relayCh))
		worker := relay.NewWorker(publisher, relayCh, log)
		group.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	auditor := recorder.New(stores.audit, recorderOpts...)

	evidenceSvc := evidenceservice.New(stores.evidence, cfg.OTPTTL,
		evidenceservice.WithSender(evidence.LogSender{Logger: log}),
		evidenceservice.WithLimiter(ratelimit.New(cfg.OTPIssuesPerWindow, cfg.OTPIssueWindow)),
		evidenceservice.WithLogger(log),
		evidenceservice.WithMetrics(m),
	)
	templateSvc := templateservice.New(stores.templates, templateservice.WithLogger(log))
	consentSvc := consentservice.New(stores.consents, evidenceSvc, templateSvc, auditor, stores.consentTx,
		consentservice.WithLogger(log),
		consentservice.WithMetrics(m),
	)

	tokens := authjwt.New(cfg.JWTSigningKey, 24*time.Hour)
	authSvc := authservice.New(authstore.NewMemory(), tokens, authservice.WithLogger(log))
	if err := authSvc.SeedDefaultOperator(ctx, "operator", "op123"); err != nil {
		log.Error("seed operator", "error", err)
		os.Exit(1)
	}
	if cfg.SeedDemoData {
		if err := templateSvc.Seed(ctx); err != nil {
			log.Error("seed templates", "error", err)
			os.Exit(1)
		}
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Consents:  consenthandler.New(consentSvc, log),
		Ingest:    ingesthandler.New(evidenceSvc, consentSvc, cfg.SimulatedDelivery, log),
		Audit:     audithandler.New(auditor, log),
		Templates: templatehandler.New(templateSvc, log),
		Auth:      authhandler.New(authSvc, log),
		Validator: tokens,
		Health: func() error {
			if db != nil {
				if err := db.PingContext(context.Background()); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(context.Background())
			}
			return nil
		},
		Metrics: m,
		Logger:  log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting consentd", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("consentd stopped")
}
