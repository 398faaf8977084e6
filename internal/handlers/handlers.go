package handlers

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/digit-api/internal/logging"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/pipeline"
	"github.com/Brownie44l1/digit-api/internal/raster"
	"github.com/Brownie44l1/digit-api/internal/strokes"
)

// MaxUploadSize caps multipart image uploads.
const MaxUploadSize = 10 << 20

// MaxJSONBodySize caps the JSON prediction bodies.
const MaxJSONBodySize = 1 << 20

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	loggerKey       = "logger"
)

// Classifier is the part of pipeline.Classifier the HTTP layer needs.
type Classifier interface {
	Classify(ctx context.Context, surface image.Image) (*model.ClassificationResult, error)
	ClassifyBuffer(ctx context.Context, buf *model.NormalizedBuffer) (*model.ClassificationResult, error)
	Metadata() model.Metadata
}

type Handler struct {
	classifier Classifier
	logger     *zap.Logger
}

func NewHandler(classifier Classifier, logger *zap.Logger) *Handler {
	return &Handler{
		classifier: classifier,
		logger:     logger.Named("handlers"),
	}
}

// RegisterRoutes wires the HTTP handlers to the Gin router. authMiddleware
// guards the prediction endpoints.
func RegisterRoutes(router *gin.Engine, h *Handler, authMiddleware gin.HandlerFunc) {
	router.Use(h.requestContext)

	router.GET("/health", h.Health)
	router.GET("/metadata", h.Metadata)

	predict := router.Group("/predict", authMiddleware)
	predict.POST("", h.Predict)
	predict.POST("/image", h.PredictFromImage)
	predict.POST("/strokes", h.PredictFromStrokes)
}

func (h *Handler) requestContext(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)
	c.Set(requestIDKey, requestID)

	reqLogger := logging.WithOperation(h.logger, c.Request.Method+" "+c.FullPath(), requestID)
	c.Set(loggerKey, reqLogger)
	c.Request = c.Request.WithContext(pipeline.ContextWithLogger(c.Request.Context(), reqLogger))

	c.Next()
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Metadata(c *gin.Context) {
	c.JSON(http.StatusOK, h.classifier.Metadata())
}

// Predict classifies an already normalized, row-major pixel array.
func (h *Handler) Predict(c *gin.Context) {
	var req model.PredictionRequest
	if !bindLimitedJSON(c, &req) {
		return
	}

	meta := h.classifier.Metadata()
	expectedSize := int(meta.InputShape.Size())
	if len(req.Image) != expectedSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("expected %d values, got %d", expectedSize, len(req.Image))})
		return
	}
	for i, v := range req.Image {
		if math.IsNaN(float64(v)) || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("value %d (%v) outside [0, 1]", i, v)})
			return
		}
	}

	height, width := meta.InputSize()
	buf := &model.NormalizedBuffer{Width: width, Height: height, Data: req.Image}
	result, err := h.classifier.ClassifyBuffer(c.Request.Context(), buf)
	h.respond(c, result, err)
}

// PredictFromImage classifies an uploaded PNG or JPEG drawing.
func (h *Handler) PredictFromImage(c *gin.Context) {
	if c.Request.ContentLength > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image file provided, use 'image' as the form field name"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
		return
	}
	defer src.Close()

	// Check dimensions from the header before decoding allocates the frame.
	config, _, err := image.DecodeConfig(src)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "invalid image format, supported: JPEG, PNG"})
		return
	}
	if err := raster.CheckSize(config.Width, config.Height); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error(), "stage": model.StageRasterize})
		return
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to rewind image"})
		return
	}

	img, format, err := image.Decode(src)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "invalid image format, supported: JPEG, PNG"})
		return
	}

	h.requestLogger(c).Debug("decoded upload",
		zap.String("filename", file.Filename),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)

	result, err := h.classifier.Classify(c.Request.Context(), img)
	h.respond(c, result, err)
}

// PredictFromStrokes renders pointer strokes onto a canvas and classifies it.
func (h *Handler) PredictFromStrokes(c *gin.Context) {
	var drawing strokes.Drawing
	if !bindLimitedJSON(c, &drawing) {
		return
	}

	surface, err := strokes.Render(drawing)
	if err != nil {
		h.respond(c, nil, model.NewStageError(model.StageRender, err))
		return
	}

	result, err := h.classifier.Classify(c.Request.Context(), surface)
	h.respond(c, result, err)
}

// bindLimitedJSON decodes the request body into dst, writing the error
// response itself when it fails.
func bindLimitedJSON(c *gin.Context, dst interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxJSONBodySize)
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body exceeds limit"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return false
	}
	return true
}

func (h *Handler) respond(c *gin.Context, result *model.ClassificationResult, err error) {
	requestID := c.GetString(requestIDKey)
	if err != nil {
		status := statusFor(err)
		log := h.requestLogger(c)
		if status >= http.StatusInternalServerError {
			log.Error("classification failed", zap.Error(err), zap.String("stage", model.StageOf(err)))
		} else {
			log.Info("classification rejected", zap.Error(err), zap.String("stage", model.StageOf(err)))
		}
		c.JSON(status, gin.H{"error": err.Error(), "stage": model.StageOf(err), "request_id": requestID})
		return
	}

	c.JSON(http.StatusOK, model.PredictionResponse{
		RequestID:     requestID,
		Digit:         result.PredictedClass,
		Label:         result.Label(h.classifier.Metadata().Classes),
		Confidence:    result.Confidence,
		Probabilities: result.Distribution,
	})
}

func (h *Handler) requestLogger(c *gin.Context) *zap.Logger {
	if logger, ok := c.Get(loggerKey); ok {
		if l, ok := logger.(*zap.Logger); ok {
			return l
		}
	}
	return h.logger
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrShapeMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrInference):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
