// In file: internal/llm/profiler.go
package llm

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/tools"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOnline   = "online"
	StatusDegraded = "degraded"

	// latencyAlpha is the EWMA weight of the newest latency sample.
	latencyAlpha = 0.1
)

// ModelProfile is the per-model record of call outcomes kept in redis.
type ModelProfile struct {
	ModelID           string    `json:"model_id"`
	AvgLatencyMS      int64     `json:"avg_latency_ms"`
	Status            string    `json:"status"`
	ErrorRate         float64   `json:"error_rate"`
	TotalSuccesses    int64     `json:"total_successes"`
	TotalFailures     int64     `json:"total_failures"`
	TotalInputTokens  int64     `json:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens"`
	LastCall          time.Time `json:"last_call"`
}

// Profiler records the outcome of every model call in a redis hash.
type Profiler struct {
	rdb *redis.Client
}

// NewProfiler creates a Profiler that keeps one hash per model in rdb. The
// client is shared with the caller, which stays responsible for closing it.
func NewProfiler(rdb *redis.Client) *Profiler {
	return &Profiler{rdb: rdb}
}

func (p *Profiler) profileKey(modelID string) string {
	return fmt.Sprintf("profile:%s", modelID)
}

// GetProfile returns the stored profile. A model that was never called gets
// an empty online profile; nothing is written in that case.
func (p *Profiler) GetProfile(ctx context.Context, modelID string) (*ModelProfile, error) {
	data, err := p.rdb.HGetAll(ctx, p.profileKey(modelID)).Result()
	if err != nil {
		return nil, err
	}

	profile := &ModelProfile{ModelID: modelID, Status: StatusOnline}
	if len(data) == 0 {
		return profile, nil
	}
	if s := data["status"]; s != "" {
		profile.Status = s
	}
	profile.AvgLatencyMS, _ = strconv.ParseInt(data["avg_latency_ms"], 10, 64)
	profile.ErrorRate, _ = strconv.ParseFloat(data["error_rate"], 64)
	profile.TotalSuccesses, _ = strconv.ParseInt(data["total_successes"], 10, 64)
	profile.TotalFailures, _ = strconv.ParseInt(data["total_failures"], 10, 64)
	profile.TotalInputTokens, _ = strconv.ParseInt(data["total_input_tokens"], 10, 64)
	profile.TotalOutputTokens, _ = strconv.ParseInt(data["total_output_tokens"], 10, 64)
	profile.LastCall, _ = time.Parse(time.RFC3339Nano, data["last_call"])
	return profile, nil
}

// RecordSuccess folds a successful call into the model's profile.
func (p *Profiler) RecordSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage) error {
	key := p.profileKey(modelID)

	err := p.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "avg_latency_ms").Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		sample := latency.Milliseconds()
		next := sample
		if err == nil {
			next = int64(latencyAlpha*float64(sample) + (1-latencyAlpha)*float64(current))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "avg_latency_ms", next)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("failed to update latency for %s: %w", modelID, err)
	}

	pipe := p.rdb.TxPipeline()
	successes := pipe.HIncrBy(ctx, key, "total_successes", 1)
	failures := pipe.HGet(ctx, key, "total_failures")
	pipe.HIncrBy(ctx, key, "total_input_tokens", int64(usage.PromptTokens))
	pipe.HIncrBy(ctx, key, "total_output_tokens", int64(usage.CompletionTokens))
	pipe.HSet(ctx, key, "status", StatusOnline, "last_call", time.Now().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to record success for %s: %w", modelID, err)
	}

	totalFailures, _ := strconv.ParseInt(failures.Val(), 10, 64)
	return p.updateErrorRate(ctx, key, successes.Val(), totalFailures)
}

// RecordFailure marks the model degraded and updates its error rate.
func (p *Profiler) RecordFailure(ctx context.Context, modelID string) error {
	key := p.profileKey(modelID)

	pipe := p.rdb.TxPipeline()
	failures := pipe.HIncrBy(ctx, key, "total_failures", 1)
	successes := pipe.HGet(ctx, key, "total_successes")
	pipe.HSet(ctx, key, "status", StatusDegraded, "last_call", time.Now().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to record failure for %s: %w", modelID, err)
	}

	totalSuccesses, _ := strconv.ParseInt(successes.Val(), 10, 64)
	return p.updateErrorRate(ctx, key, totalSuccesses, failures.Val())
}

func (p *Profiler) updateErrorRate(ctx context.Context, key string, successes, failures int64) error {
	total := successes + failures
	if total == 0 {
		return nil
	}
	return p.rdb.HSet(ctx, key, "error_rate", float64(failures)/float64(total)).Err()
}

// ProfiledClient decorates an LLMClient and reports every call to a Profiler.
// Profiling failures are logged, never returned to the caller.
type ProfiledClient struct {
	next     LLMClient
	profiler *Profiler
	modelID  string
}

var _ LLMClient = (*ProfiledClient)(nil)

// NewProfiledClient wraps next so that every Generate call is recorded under
// modelID. Pass the same model name the handler reports in its stats.
func NewProfiledClient(next LLMClient, profiler *Profiler, modelID string) *ProfiledClient {
	return &ProfiledClient{next: next, profiler: profiler, modelID: modelID}
}

// Generate forwards the call to the wrapped client and records its latency,
// token usage and outcome. The wrapped client's result is returned unchanged.
func (c *ProfiledClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig, availableTools []tools.Tool) (*GenerationResult, error) {
	modelID := c.modelID
	if config != nil && config.Model != "" {
		modelID = config.Model
	}

	start := time.Now()
	result, err := c.next.Generate(ctx, messages, config, availableTools)
	if err != nil {
		if perr := c.profiler.RecordFailure(ctx, modelID); perr != nil {
			log.Printf("WARNING: %v", perr)
		}
		return nil, err
	}
	if perr := c.profiler.RecordSuccess(ctx, modelID, time.Since(start), result.Usage); perr != nil {
		log.Printf("WARNING: %v", perr)
	}
	return result, nil
}
