package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/zatca-middleware/internal/model"
	"github.com/rezonia/zatca-middleware/internal/processor"
	"github.com/rezonia/zatca-middleware/internal/qr"
	"github.com/rezonia/zatca-middleware/internal/signature"
	"github.com/rezonia/zatca-middleware/internal/validator"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	verifier *signature.Verifier
	logger   *zap.Logger
	srv      *http.Server
}

// Option configures the server
type Option func(*Server)

// WithPipeline sets the invoice pipeline
func WithPipeline(p *processor.Pipeline) Option {
	return func(s *Server) {
		s.pipeline = p
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new API server
func NewServer(config *Config, opts ...Option) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   config,
		router:   gin.New(),
		verifier: signature.NewVerifier(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = processor.NewPipeline(processor.WithLogger(s.logger))
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))

	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         config.Address,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// POS endpoints
	s.router.POST("/invoice", s.handleInvoice)
	s.router.POST("/webhook", s.handleWebhook)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices", s.handleInvoice)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/verify", s.handleVerify)
		v1.POST("/qr/decode", s.handleDecodeQR)
	}
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("clearance middleware listening", zap.String("address", s.config.Address))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with Run
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResult("failed to read request body"))
		return
	}

	// Acknowledge only; webhook bodies are not processed
	s.logger.Info("webhook received", zap.ByteString("body", body))

	c.JSON(http.StatusOK, WebhookResponse{Status: model.StatusReceived})
}

func (s *Server) handleInvoice(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResult("failed to read request body"))
		return
	}

	result, err := s.pipeline.ProcessJSON(c.Request.Context(), body)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleValidate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResult("failed to read request body"))
		return
	}

	payload, err := processor.DecodePayload(body)
	if err != nil {
		s.writeError(c, err)
		return
	}

	errs := validator.Messages(payload)
	c.JSON(http.StatusOK, ValidationResponse{
		Valid:  len(errs) == 0,
		Errors: errs,
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResult(processor.MsgInvalidJSON))
		return
	}
	for i, sub := range req.Submissions {
		if sub == nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResult(fmt.Sprintf("submission %d is null", i)))
			return
		}
	}

	var (
		results []*signature.VerificationResult
		err     error
	)
	ctx := c.Request.Context()
	switch {
	case len(req.Submissions) == 0:
		c.JSON(http.StatusBadRequest, model.NewErrorResult(signature.ErrEmptyChain().Error()))
		return
	case len(req.Submissions) == 1 && req.PreviousInvoiceHash != "":
		var result *signature.VerificationResult
		result, err = s.verifier.VerifyLink(ctx, req.Submissions[0], req.PreviousInvoiceHash)
		results = []*signature.VerificationResult{result}
	default:
		results, err = s.verifier.VerifyChain(ctx, req.Submissions)
	}

	response := VerifyResponse{Valid: err == nil, Results: results}
	for _, r := range results {
		if r == nil || !r.Valid {
			response.Valid = false
		}
	}

	if !response.Valid {
		if err != nil {
			response.Error = err.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleDecodeQR(c *gin.Context) {
	var req DecodeQRRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResult(processor.MsgInvalidJSON))
		return
	}

	fields, err := qr.Decode(req.QRBase64)
	if err != nil {
		s.writeError(c, err)
		return
	}

	response := DecodeQRResponse{Fields: make([]QRField, 0, len(fields))}
	for _, f := range fields {
		response.Fields = append(response.Fields, QRField{
			Tag:    f.Tag,
			Name:   qr.TagName(f.Tag),
			Length: f.Length(),
			Value:  f.Value,
		})
	}
	if decoded, err := qr.DecodeDisplay(req.QRBase64); err == nil {
		response.Display = decoded
	}

	c.JSON(http.StatusOK, response)
}

// writeError maps pipeline errors to status codes and the failure shape
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		perr *model.ParseError
		verr *model.ValidationError
		eerr *model.EncodingPreconditionError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &perr), errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &eerr):
		status = http.StatusUnprocessableEntity
	}

	s.logger.Warn("invoice request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)

	c.JSON(status, model.NewErrorResult(processor.Messages(err)...))
}
