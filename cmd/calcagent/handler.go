// In file: cmd/calcagent/handler.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dileep-u-k/llm-calculator/internal/agent"
	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/cache"
	"github.com/dileep-u-k/llm-calculator/internal/llm"
	"github.com/dileep-u-k/llm-calculator/internal/tools"
	compver "github.com/dileep-u-k/llm-calculator/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	cacheKeyPrefix        = "eval"
	defaultRequestTimeout = 2 * time.Minute
)

// EvaluateHandler serves expression evaluations over HTTP.
type EvaluateHandler struct {
	evaluators  map[agent.Mode]agent.Evaluator
	defaultMode agent.Mode
	model       string
	cache       *cache.ResultCache // nil disables caching
	profiler    *llm.Profiler      // nil disables /stats profile output
	timeout     time.Duration
}

// NewEvaluateHandler wires the evaluators, one per mode, to the HTTP surface.
// resultCache and profiler may be nil, which disables caching and the
// profile section of /api/v1/stats.
func NewEvaluateHandler(evaluators map[agent.Mode]agent.Evaluator, defaultMode agent.Mode, model string, resultCache *cache.ResultCache, profiler *llm.Profiler) *EvaluateHandler {
	return &EvaluateHandler{
		evaluators:  evaluators,
		defaultMode: defaultMode,
		model:       model,
		cache:       resultCache,
		profiler:    profiler,
		timeout:     defaultRequestTimeout,
	}
}

// newRouter wires the handler into a gin engine.
func newRouter(h *EvaluateHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	engine.GET("/healthz", h.HandleHealth)
	v1 := engine.Group("/api/v1")
	{
		v1.POST("/evaluate", h.HandleEvaluate)
		v1.GET("/stats", h.HandleStats)
	}
	return engine
}

// HandleEvaluate is the main request handler.
func (h *EvaluateHandler) HandleEvaluate(c *gin.Context) {
	startTime := time.Now()
	requestID := uuid.NewString()
	c.Header("X-Request-ID", requestID)

	var req api.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body: " + err.Error(), Kind: "invalid_request", RequestID: requestID})
		return
	}

	mode := h.defaultMode
	if req.Mode != "" {
		mode = agent.Mode(strings.ToLower(req.Mode))
	}
	evaluator, ok := h.evaluators[mode]
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unsupported mode: " + req.Mode, Kind: "invalid_mode", RequestID: requestID})
		return
	}

	ctx := c.Request.Context()
	cacheKey := compver.GenerateVersionedCacheKey(cacheKeyPrefix, string(mode), h.model, req.Expression)
	cacheStatus := cache.StatusDisabled
	if h.cache != nil {
		var cached api.EvaluateResponse
		found, err := h.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("⚠️ Cache lookup failed: %v", err)
		}
		if found {
			log.Println("✅ Cache HIT")
			cached.CacheStatus = cache.StatusHit
			cached.LatencyMS = time.Since(startTime).Milliseconds()
			cached.RequestID = requestID
			c.JSON(http.StatusOK, cached)
			return
		}
		cacheStatus = cache.StatusMiss
	}

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ev, err := evaluator.Evaluate(runCtx, req.Expression)
	if err != nil {
		status, kind := classifyError(err)
		log.Printf("❌ [%s] Evaluation of %q failed (%s): %v", requestID, req.Expression, kind, err)
		errResp := api.ErrorResponse{Error: err.Error(), Kind: kind, RequestID: requestID}
		if ev != nil {
			errResp.Steps = ev.Steps
			errResp.LLMCalls = ev.LLMCalls
		}
		c.JSON(status, errResp)
		return
	}
	log.Printf("🧮 [%s] %q = %s in %d call(s)", requestID, req.Expression, agent.FormatNumber(ev.Value), ev.LLMCalls)

	resp := api.EvaluateResponse{
		Expression:  req.Expression,
		Result:      ev.Value,
		Steps:       ev.Steps,
		LLMCalls:    ev.LLMCalls,
		Mode:        string(mode),
		Model:       h.model,
		Usage:       ev.Usage,
		CacheStatus: cacheStatus,
		LatencyMS:   time.Since(startTime).Milliseconds(),
		RequestID:   requestID,
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, resp); err != nil {
			log.Printf("⚠️ Could not cache response: %v", err)
		} else {
			log.Println("✅ Response CACHED")
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth reports liveness and, when configured, redis reachability.
func (h *EvaluateHandler) HandleHealth(c *gin.Context) {
	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": GetBuildInfo().Version})
}

// HandleStats exposes cache counters and the model's call profile.
func (h *EvaluateHandler) HandleStats(c *gin.Context) {
	out := gin.H{"model": h.model}
	if h.cache != nil {
		out["cache"] = h.cache.Stats()
	}
	if h.profiler != nil {
		profile, err := h.profiler.GetProfile(c.Request.Context(), h.model)
		if err != nil {
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error(), Kind: "redis_error"})
			return
		}
		out["profile"] = profile
	}
	c.JSON(http.StatusOK, out)
}

// classifyError maps an evaluation failure to an HTTP status and error kind.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, tools.ErrDivisionByZero):
		return http.StatusUnprocessableEntity, "division_by_zero"
	case errors.Is(err, tools.ErrUnsupportedOperation):
		return http.StatusUnprocessableEntity, "unsupported_operation"
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusUnprocessableEntity, "unknown_tool"
	case errors.Is(err, agent.ErrNoToolCall):
		return http.StatusUnprocessableEntity, "no_tool_call"
	case errors.Is(err, agent.ErrMalformedArguments):
		return http.StatusUnprocessableEntity, "malformed_tool_arguments"
	case errors.Is(err, agent.ErrPatternNotFound):
		return http.StatusUnprocessableEntity, "pattern_not_found"
	case errors.Is(err, agent.ErrMaxIterationsExceeded):
		return http.StatusUnprocessableEntity, "max_iterations_exceeded"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "model_error"
	}
}
