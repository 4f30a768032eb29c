// In file: cmd/calcagent/cache.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dileep-u-k/llm-calculator/internal/agent"
	"github.com/dileep-u-k/llm-calculator/internal/cache"
	compver "github.com/dileep-u-k/llm-calculator/internal/version"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	purgeExpression string
	purgeMode       string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached evaluations",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached evaluations from Redis",
	Long: `Purge removes every cached evaluation, or with --expression only the entry
the server would use for that expression under the configured model.

Environment:
  REDIS_ADDR   address of the Redis instance used by "calcagent serve"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadDotEnv()
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			return errors.New("REDIS_ADDR environment variable is not set")
		}

		agentCfg := agent.DefaultConfig()
		if cfgFile != "" {
			var err error
			if agentCfg, err = agent.LoadConfig(cfgFile); err != nil {
				return err
			}
		}
		mode := agentCfg.Mode
		if purgeMode != "" {
			mode = agent.Mode(purgeMode)
		}

		ctx := cmd.Context()
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("could not connect to Redis: %w", err)
		}

		resultCache := cache.New(rdb, cache.DefaultPrefix, cache.DefaultTTL)
		return purgeCache(ctx, cmd.OutOrStdout(), resultCache, mode, agentCfg.Model, purgeExpression)
	},
}

// purgeCache drops one evaluation when expression is set and everything
// under the cache prefix otherwise.
func purgeCache(ctx context.Context, w io.Writer, resultCache *cache.ResultCache, mode agent.Mode, model, expression string) error {
	if expression == "" {
		n, err := resultCache.Purge(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Removed %d cached evaluation(s)\n", n)
		return err
	}

	key := compver.GenerateVersionedCacheKey(cacheKeyPrefix, string(mode), model, expression)
	if err := resultCache.Delete(ctx, key); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Removed cached %s evaluation of %q for %s\n", mode, expression, model)
	return err
}

func init() {
	cachePurgeCmd.Flags().StringVar(&purgeExpression, "expression", "", "remove only the entry for this expression")
	cachePurgeCmd.Flags().StringVar(&purgeMode, "mode", "", "mode of the entry to remove (defaults to the configured mode)")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
