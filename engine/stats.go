package engine

import (
	"time"

	"github.com/rs/zerolog"
)

type SearchStats struct {
	Start           time.Time     `json:"-"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	Depth           int           `json:"depth"`
	Nodes           int64         `json:"nodes"`
	Evaluations     int64         `json:"evaluations"`
	Cutoffs         int64         `json:"cutoffs"`
	EvalCacheProbes int64         `json:"eval_cache_probes"`
	EvalCacheHits   int64         `json:"eval_cache_hits"`
	RootCandidates  int           `json:"root_candidates"`
	RootCompleted   int           `json:"root_completed"`
	QuickWin        bool          `json:"quick_win"`
	Truncated       bool          `json:"truncated"`
}

func logSearchStats(logger zerolog.Logger, tag string, stats SearchStats, result Result) {
	nps := 0.0
	if stats.Elapsed > 0 {
		nps = float64(stats.Nodes) / stats.Elapsed.Seconds()
	}
	evalHitRate := 0.0
	if stats.EvalCacheProbes > 0 {
		evalHitRate = float64(stats.EvalCacheHits) * 100.0 / float64(stats.EvalCacheProbes)
	}
	logger.Info().
		Str("tag", tag).
		Int64("t_ms", stats.Elapsed.Milliseconds()).
		Int("depth", stats.Depth).
		Int64("nodes", stats.Nodes).
		Float64("nps", nps).
		Int64("evals", stats.Evaluations).
		Int64("cutoffs", stats.Cutoffs).
		Float64("eval_hit_rate", evalHitRate).
		Int("root", stats.RootCandidates).
		Int("root_done", stats.RootCompleted).
		Bool("quick_win", stats.QuickWin).
		Bool("truncated", stats.Truncated).
		Stringer("move", result.Position).
		Int("score", result.Score).
		Msg("search stats")
}
