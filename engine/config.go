package engine

import (
	"fmt"
	"sync"
)

type Config struct {
	WinLength          int        `json:"win_length"`
	CandidateRadius    int        `json:"candidate_radius"`
	MediumDepth        int        `json:"medium_depth"`
	HardDepth          int        `json:"hard_depth"`
	WinScore           int        `json:"win_score"`
	QuickWinExit       bool       `json:"quick_win_exit"`
	SearchTimeBudgetMs int        `json:"search_time_budget_ms"`
	MaxNodes           int64      `json:"max_nodes"`
	EvalCacheSize      int        `json:"eval_cache_size"`
	LogSearchStats     bool       `json:"log_search_stats"`
	Tiers              ScoreTiers `json:"tiers"`
}

// ScoreTiers is the evaluator's policy table. Bot and player tiers are
// intentionally unequal; retune them as a set, never one side alone.
type ScoreTiers struct {
	BotFour     int `json:"bot_four"`
	BotThree    int `json:"bot_three"`
	PlayerFour  int `json:"player_four"`
	PlayerThree int `json:"player_three"`
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func DefaultConfig() Config {
	return Config{
		WinLength:       5,
		CandidateRadius: 2,
		MediumDepth:     3,
		HardDepth:       5,
		WinScore:        10000,

		QuickWinExit: true,

		// 0 disables the limit.
		SearchTimeBudgetMs: 0,
		MaxNodes:           0,

		EvalCacheSize:  1 << 16,
		LogSearchStats: false,

		Tiers: DefaultScoreTiers(),
	}
}

func DefaultScoreTiers() ScoreTiers {
	return ScoreTiers{
		BotFour:     1000,
		BotThree:    100,
		PlayerFour:  800,
		PlayerThree: 80,
	}
}

func (c Config) Validate() error {
	if c.WinLength < 2 {
		return fmt.Errorf("%w: win_length must be >= 2, got %d", ErrInvalidConfig, c.WinLength)
	}
	if c.CandidateRadius < 1 {
		return fmt.Errorf("%w: candidate_radius must be >= 1, got %d", ErrInvalidConfig, c.CandidateRadius)
	}
	if c.MediumDepth < 1 || c.HardDepth < 1 {
		return fmt.Errorf("%w: search depths must be >= 1", ErrInvalidConfig)
	}
	if c.WinScore <= 0 {
		return fmt.Errorf("%w: win_score must be positive", ErrInvalidConfig)
	}
	t := c.Tiers
	if t.BotFour >= c.WinScore || t.PlayerFour >= c.WinScore || t.BotThree >= c.WinScore || t.PlayerThree >= c.WinScore {
		return fmt.Errorf("%w: score tiers must stay below win_score %d", ErrInvalidConfig, c.WinScore)
	}
	if t.BotFour < 0 || t.BotThree < 0 || t.PlayerFour < 0 || t.PlayerThree < 0 {
		return fmt.Errorf("%w: score tiers must be non-negative", ErrInvalidConfig)
	}
	if c.SearchTimeBudgetMs < 0 || c.MaxNodes < 0 || c.EvalCacheSize < 0 {
		return fmt.Errorf("%w: budgets and cache size must be non-negative", ErrInvalidConfig)
	}
	return nil
}

var configStore = &ConfigStore{config: DefaultConfig()}

func GetConfig() Config {
	return configStore.Get()
}

// UpdateConfig replaces the process-wide config after validating it.
func UpdateConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	configStore.Update(config)
	return nil
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig
	c.mu.Unlock()
}

// EnsureSearchBudget sets the process-wide time budget to budgetMs when the
// current config leaves it unlimited. An explicit budget is kept.
func EnsureSearchBudget(budgetMs int) (Config, error) {
	c := configStore.Get()
	if c.SearchTimeBudgetMs != 0 || budgetMs <= 0 {
		return c, nil
	}
	c.SearchTimeBudgetMs = budgetMs
	if err := UpdateConfig(c); err != nil {
		return Config{}, err
	}
	return c, nil
}
