package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/webmail/api"
	"github.com/customeros/webmail/config"
	"github.com/customeros/webmail/internal/cron"
	"github.com/customeros/webmail/internal/listeners"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/repository"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/services"
	"github.com/customeros/webmail/services/events"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(db)

	svcs, err := services.InitServices(context.Background(), cfg, appLogger, repos)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize services")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cron.NewCronManager(cfg, appLogger, kubernetesClient(appLogger), svcs.MailService),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppConfig.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// kubernetesClient returns nil outside a cluster; the cron manager then runs
// without leader election.
func kubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Infof("Not running in a cluster: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Failed to create kubernetes client: %v", err)
		return nil
	}
	return client
}

func (s *Server) Initialize() error {
	api.RegisterRoutes(s.router, s.services.MailService, s.repositories, s.config.AppConfig.APIKey)

	subscriber := s.services.EventsService.Subscriber
	if subscriber == nil {
		return nil
	}

	instanceID := s.config.AppConfig.InstanceID
	subscriber.RegisterListener(listeners.NewCacheInvalidatedListener(s.log, s.services.ThreadCache, instanceID))
	if err := subscriber.ListenQueueExclusive(events.InstanceQueueName(instanceID)); err != nil {
		return errors.Wrap(err, "failed to listen for cache invalidations")
	}
	return nil
}

func (s *Server) Run() error {
	if err := s.Initialize(); err != nil {
		return err
	}

	if err := s.cronManager.Start(os.Getenv("POD_NAME"), os.Getenv("POD_NAMESPACE")); err != nil {
		s.log.Errorf("Failed to start cron manager: %v", err)
	}

	go func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("HTTP server error: %v", err)
		}
	}()
	s.log.Info("Webmail is now running")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	s.log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down")
	}

	s.cronManager.Stop()

	// background refreshes get the rest of the shutdown budget
	closed := make(chan error, 1)
	go func() {
		closed <- s.services.Close()
	}()
	select {
	case err := <-closed:
		if err != nil {
			s.log.Errorf("Service shutdown error: %v", err)
		}
	case <-ctx.Done():
		s.log.Warn("Service shutdown timed out")
	}

	if s.tracerCloser != nil {
		_ = s.tracerCloser.Close()
	}
	_ = s.log.Sync()
	return nil
}
