package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andes-k8s/api/pkg/audit"
	"github.com/andes-k8s/api/pkg/common/config"
	"github.com/andes-k8s/api/pkg/common/database"
	"github.com/andes-k8s/api/pkg/common/kafka"
	"github.com/andes-k8s/api/pkg/common/logger"
	"github.com/andes-k8s/api/pkg/common/middleware"
	"github.com/andes-k8s/api/pkg/match"
	"github.com/andes-k8s/api/pkg/mpi"
	"github.com/andes-k8s/api/pkg/observability/metrics"
	"github.com/andes-k8s/api/pkg/search/redisindex"
	"github.com/andes-k8s/api/pkg/verify"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	repo := mpi.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate patient tables")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.AuditTopic)
	defer producer.Close()
	auditor := audit.NewKafkaAuditor(producer)

	profiles, err := mpi.LoadRegistry(cfg.ProfilesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load weight profiles")
	}

	index := redisindex.New(redisClient, cfg.IndexKeyPrefix)
	synchronizer := mpi.NewSynchronizer(index)
	builder := mpi.NewQueryBuilder(cfg.MatchWindowSize)
	scorer := mpi.NewScorer(match.NewComparator())

	service := mpi.NewService(repo, index, synchronizer, builder, scorer, profiles, auditor)
	app := &mpiApp{service: service}

	verifier := verify.NewClient(verify.Options{
		BaseURL:      cfg.VerifierBaseURL,
		TokenURL:     cfg.VerifierTokenURL,
		ClientID:     cfg.VerifierClientID,
		ClientSecret: cfg.VerifierClientSecret,
		Source:       cfg.VerifierSource,
		Timeout:      cfg.VerifierTimeout,
	})
	reconciler := mpi.NewReconciler(repo, verifier, synchronizer, auditor, cfg.ReconcilerMinConfidence)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runReconciler(ctx, reconciler, cfg.ReconcilerInterval)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.BodyLimit(1<<20))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/match", app.handleMatch).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/search", app.handleSearch).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("MPI Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down MPI Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("MPI Service stopped")
}

type mpiApp struct {
	service *mpi.Service
}

type matchRequest struct {
	Identity mpi.PatientIdentity `json:"objetoBusqueda"`
	Mode     mpi.MatchMode       `json:"mode,omitempty"`
	Field    string              `json:"field,omitempty"`
	Scanned  bool                `json:"escaneado,omitempty"`
	Profile  string              `json:"profile,omitempty"`
}

func (a *mpiApp) handleMatch(w http.ResponseWriter, r *http.Request) {
	metrics.ObserveMatchRequest()

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	result, err := a.service.Match(r.Context(), req.Identity, mpi.MatchOptions{
		Mode:          req.Mode,
		BlockingField: req.Field,
		Escaneado:     req.Scanned,
		Profile:       req.Profile,
	})
	if err != nil {
		var vErr *mpi.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result.Best())
}

func (a *mpiApp) handleSearch(w http.ResponseWriter, r *http.Request) {
	metrics.ObserveSearchRequest()

	docs, err := a.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		var vErr *mpi.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

// runReconciler triggers the batch on a fixed interval. The job itself never
// panics out, so the loop always reaches the next tick.
func runReconciler(ctx context.Context, job *mpi.Reconciler, interval time.Duration) {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			job.Run(ctx)
			logger.Log.WithField("duration", time.Since(start).String()).Info("reconciliation run finished")
		}
	}
}
