package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Leganyst/legal-marketplace/internal/api/rest"
	"github.com/Leganyst/legal-marketplace/internal/authtoken"
	"github.com/Leganyst/legal-marketplace/internal/db"
	"github.com/Leganyst/legal-marketplace/internal/metrics"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/scheduler"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

const (
	shutdownTimeout    = 10 * time.Second
	storeCheckSchedule = "@every 15s"
	jobTimeout         = time.Minute
)

func newServeCmd(load func() (*app, error)) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			if migrate {
				if err := db.Migrate(a.db, a.cfg.DB.Driver); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc := service.New(repository.NewStore(a.db), service.Options{
		Logger:                 a.logger,
		Metrics:                m,
		QueryTimeout:           a.cfg.QueryTimeout,
		PastConsultationWindow: a.cfg.PastConsultationWindow,
	})

	httpServer := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: rest.NewRouter(rest.Deps{
			Services: svc,
			Tokens:   authtoken.NewService(a.cfg.JWTSecret, a.cfg.JWTIssuer),
			Logger:   a.logger,
			Metrics:  m,
			Gatherer: reg,
			Ping:     sqlDB.PingContext,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC отдаёт только health и reflection для балансировщика.
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	// Фоновые задачи: проверка БД для gRPC health и напоминания о консультациях.
	jobs := scheduler.New(a.logger, jobTimeout)
	check := storeCheck(sqlDB.PingContext, healthServer, a.logger)
	if err := jobs.Add(storeCheckSchedule, "store-check", check); err != nil {
		return err
	}
	window := a.cfg.ReminderWindow
	if err := jobs.Add(a.cfg.ReminderSchedule, "consultation-reminders", func(ctx context.Context) error {
		_, err := svc.Orchestrator.SendConsultationReminders(ctx, window)
		return err
	}); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Info("grpc server listening", zap.String("addr", a.cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})
	jobs.RunNow("store-check", check)
	jobs.Start()

	// Грейсфул-шатдаун по сигналу или по падению одного из серверов.
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		jobs.Stop(shutdownCtx)
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// storeCheck переключает gRPC health в NOT_SERVING, пока БД недоступна.
func storeCheck(ping func(context.Context) error, hs *health.Server, logger *zap.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			logger.Warn("store ping failed", zap.Error(err))
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return err
		}
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return nil
	}
}
