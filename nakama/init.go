package nakama

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"

	"gomokubot/engine"
)

const defaultSearchBudgetMs = 500

// InitModule wires RPCs for the Nakama runtime. Optional runtime env keys:
// "gomoku_engine_config" points at a JSON engine config file and
// "gomoku_engine_time_budget_ms" bounds searches the config leaves unlimited.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if path := env["gomoku_engine_config"]; path != "" {
		if _, err := engine.ApplyConfigFile(path); err != nil {
			logger.Error("Failed to load engine config %s: %v", path, err)
			return err
		}
		logger.Info("Loaded engine config from %s", path)
	}

	budgetMs := defaultSearchBudgetMs
	if raw := env["gomoku_engine_time_budget_ms"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			logger.Warn("Ignoring gomoku_engine_time_budget_ms=%q", raw)
		} else {
			budgetMs = parsed
		}
	}
	config, err := engine.EnsureSearchBudget(budgetMs)
	if err != nil {
		return err
	}
	logger.Info("Engine search budget %dms", config.SearchTimeBudgetMs)

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	logger.Info("Gomoku Go module loaded.")
	return nil
}
