package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/digit-api/internal/auth"
	"github.com/Brownie44l1/digit-api/internal/handlers"
	"github.com/Brownie44l1/digit-api/internal/inference"
	"github.com/Brownie44l1/digit-api/internal/logging"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/onnx"
	"github.com/Brownie44l1/digit-api/internal/pipeline"
)

func main() {
	debug := getEnv("LOG_LEVEL", "info") == "debug"
	logger, err := logging.NewLogger(debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	root := projectRoot(logger)
	modelPath := getEnv("MODEL_PATH", filepath.Join(root, "models", "model.onnx"))
	metadataPath := getEnv("METADATA_PATH", filepath.Join(root, "models", "model_metadata.json"))

	metadata, err := loadMetadata(metadataPath, logger)
	if err != nil {
		logger.Fatal("failed to load model metadata", zap.Error(err), zap.String("path", metadataPath))
	}

	logger.Info("loading model", zap.String("path", modelPath))
	engine, err := onnx.NewEngine(modelPath, os.Getenv("ONNXRUNTIME_LIB"), metadata, logger.Named("onnx"))
	if err != nil {
		logger.Fatal("failed to initialize inference engine", zap.Error(err))
	}
	defer engine.Close()

	adapter, err := inference.NewAdapter(engine, metadata)
	if err != nil {
		logger.Fatal("model metadata rejected", zap.Error(err))
	}

	var opts []pipeline.Option
	if getBool("TRACE", false) {
		opts = append(opts, pipeline.WithTracer(pipeline.NewZapTracer(logger)))
	}
	classifier := pipeline.NewClassifier(adapter, opts...)

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = handlers.MaxUploadSize

	authMiddleware := auth.BearerMiddleware(os.Getenv("JWT_SECRET"), os.Getenv("JWT_AUDIENCE"))
	handlers.RegisterRoutes(r, handlers.NewHandler(classifier, logger), authMiddleware)

	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("digit API listening",
		zap.String("addr", addr),
		zap.Strings("classes", metadata.Classes),
		zap.Bool("auth", os.Getenv("JWT_SECRET") != ""),
	)
	if err := serveHTTPServer(server, getDuration("SHUTDOWN_TIMEOUT", 15*time.Second), logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// projectRoot resolves the repository root when started from cmd/server.
func projectRoot(logger *zap.Logger) string {
	wd, err := os.Getwd()
	if err != nil {
		logger.Fatal("failed to get working directory", zap.Error(err))
	}
	if filepath.Base(wd) == "server" {
		return filepath.Join(wd, "../..")
	}
	return wd
}

func loadMetadata(path string, logger *zap.Logger) (model.Metadata, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Warn("metadata file missing, assuming MNIST defaults", zap.String("path", path))
		return model.DefaultMetadata(), nil
	}
	return model.LoadMetadata(path)
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
