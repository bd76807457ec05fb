package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxBodyBytes is the largest request body accepted. Source photos travel
// base64 encoded inside it.
const MaxBodyBytes = 50 << 20

const requestIDKey = "requestID"

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model string          `json:"model" binding:"required"`
	Data  json.RawMessage `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorResponse is the envelope the relay uses for its own failures.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

func newErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{Error: errorBody{Message: message, Status: status}}
}

type Opts struct {
	// APIKey is attached to every forwarded request. When empty, every
	// generate request fails with 500.
	APIKey string
	// BaseURL is the Gemini REST root, e.g.
	// https://generativelanguage.googleapis.com/v1beta
	BaseURL string
	Timeout time.Duration
}

// Server forwards generateContent calls to Gemini so that the API key
// never leaves the server.
type Server struct {
	apiKey   string
	provider *resty.Client
}

func NewServer(opts Opts) *Server {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Server{
		apiKey: opts.APIKey,
		provider: resty.New().
			SetDebug(false).
			SetBaseURL(opts.BaseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Router builds the gin engine serving the relay endpoints.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestID())

	router.GET("/health", HealthHandler)
	router.POST("/api/generate", limitBody(MaxBodyBytes), s.Generate)
	return router
}

// Generate handles POST /api/generate.
func (s *Server) Generate(c *gin.Context) {
	if s.apiKey == "" {
		c.JSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, "API Key not configured on server"))
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, "Model name is required"))
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, newErrorResponse(http.StatusRequestEntityTooLarge, "request entity too large"))
		default:
			c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, "Invalid JSON body: "+err.Error()))
		}
		return
	}

	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	logger := log.With().Str("requestID", c.GetString(requestIDKey)).Str("model", req.Model).Logger()
	started := time.Now()

	res, err := s.provider.R().
		SetContext(c.Request.Context()).
		SetHeader("x-goog-api-key", s.apiKey).
		SetBody([]byte(data)).
		Post(modelPath(req.Model))
	if err != nil {
		logger.Error().Err(err).Msg("provider request failed")
		c.JSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	body := res.Body()
	if !json.Valid(body) {
		logger.Error().Int("status", res.StatusCode()).Msg("provider returned a non-JSON body")
		c.JSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError,
			fmt.Sprintf("invalid JSON from provider (status %d)", res.StatusCode())))
		return
	}

	if !res.IsSuccess() {
		logger.Error().Int("status", res.StatusCode()).RawJSON("body", body).Msg("Gemini API error")
	} else {
		logger.Info().Dur("latency", time.Since(started)).Int("bytes", len(body)).Msg("generation forwarded")
	}
	c.Data(res.StatusCode(), "application/json; charset=utf-8", body)
}

// Run serves the relay on port until ctx is cancelled.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: s.Router(),
	}
	if s.apiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, generate requests will fail")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	log.Info().Msg("relay stopped")
	return nil
}

func modelPath(model string) string {
	return "/models/" + url.PathEscape(model) + ":generateContent"
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
