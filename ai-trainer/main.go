package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"gomokubot/engine"
)

type trainer struct {
	client     *http.Client
	backendURL string
	apiAddr    string
	outputDir  string
	logger     zerolog.Logger
	rng        *rand.Rand
	baseConfig engine.Config

	boardSize          int
	mutationStrength   float64
	populationSize     int
	eliteCount         int
	trainingOpenings   int
	validationOpenings int
	openingPlies       int
	eloK               float64
	validationPassRate float64
	maxGenerations     int

	statusMu  sync.RWMutex
	status    trainerStatus
	jobMu     sync.Mutex
	jobCancel context.CancelFunc
	jobDone   chan struct{}
}

type trainerStatus struct {
	Running             bool    `json:"running"`
	Phase               string  `json:"phase"`
	Message             string  `json:"message"`
	StartedAt           string  `json:"started_at"`
	UpdatedAt           string  `json:"updated_at"`
	GamesPlayed         int     `json:"games_played"`
	Generation          int     `json:"generation"`
	PopulationSize      int     `json:"population_size"`
	LastValidationRate  float64 `json:"last_validation_rate"`
	ValidationThreshold float64 `json:"validation_threshold"`
	TrainingOpenings    int     `json:"training_openings"`
	GenerationStartedAt string  `json:"generation_started_at"`
	RoundMatchesTotal   int     `json:"round_matches_total"`
	EtaSeconds          int     `json:"eta_seconds"`

	CurrentMatch   *trainerMatch     `json:"current_match,omitempty"`
	TopContenders  []trainerStanding `json:"top_contenders,omitempty"`
	ChampionTiers  engine.ScoreTiers `json:"champion_tiers"`
	ChallengerTier engine.ScoreTiers `json:"challenger_tiers"`
}

type trainerMatch struct {
	BlackID      string `json:"black_id"`
	WhiteID      string `json:"white_id"`
	OpeningIndex int    `json:"opening_index"`
	Stage        string `json:"stage"`
}

type trainerStanding struct {
	ID    string            `json:"id"`
	Elo   float64           `json:"elo"`
	Tiers engine.ScoreTiers `json:"tiers"`
}

func main() {
	outputDir := getenv("TRAINER_OUTPUT_DIR", "logs")
	logger, closeLog, err := buildLogger(filepath.Join(outputDir, "AITrainer.log"), getenv("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	defer closeLog()

	baseConfig := engine.DefaultConfig()
	if path := os.Getenv("ENGINE_CONFIG_PATH"); path != "" {
		loaded, err := engine.LoadConfigFile(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("failed to load engine config")
		}
		baseConfig = loaded
	}
	baseConfig.SearchTimeBudgetMs = getenvInt("TRAINER_AI_TIME_BUDGET_MS", 800)
	baseConfig.LogSearchStats = false

	populationSize := getenvInt("TRAINER_POPULATION_SIZE", 6)
	if populationSize < 4 {
		populationSize = 4
	}
	eliteCount := getenvInt("TRAINER_ELITE_COUNT", 2)
	if eliteCount >= populationSize {
		eliteCount = populationSize - 1
	}
	mutationStrength := getenvFloat("TRAINER_MUTATION_STRENGTH", 0.15)
	if mutationStrength <= 0 {
		mutationStrength = 0.15
	}
	eloK := getenvFloat("TRAINER_ELO_K", 20)
	if eloK <= 0 {
		eloK = 20
	}
	validationPassRate := getenvFloat("TRAINER_VALIDATION_PASS_RATE", 0.55)
	if validationPassRate <= 0 || validationPassRate > 1 {
		validationPassRate = 0.55
	}
	seed := uint64(getenvInt("TRAINER_SEED", int(time.Now().UnixNano()%1_000_000_007)))

	t := &trainer{
		client:             &http.Client{Timeout: 10 * time.Second},
		backendURL:         strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		apiAddr:            getenv("TRAINER_API_ADDR", ":8090"),
		outputDir:          outputDir,
		logger:             logger,
		rng:                rand.New(rand.NewSource(seed)),
		baseConfig:         baseConfig,
		boardSize:          getenvInt("TRAINER_BOARD_SIZE", 9),
		mutationStrength:   mutationStrength,
		populationSize:     populationSize,
		eliteCount:         eliteCount,
		trainingOpenings:   getenvInt("TRAINER_TRAINING_OPENINGS", 4),
		validationOpenings: getenvInt("TRAINER_VALIDATION_OPENINGS", 4),
		openingPlies:       getenvInt("TRAINER_OPENING_PLIES", 4),
		eloK:               eloK,
		validationPassRate: validationPassRate,
		maxGenerations:     getenvInt("TRAINER_GENERATIONS", 0),
		status: trainerStatus{
			Phase:     "idle",
			Message:   "service ready",
			StartedAt: time.Now().UTC().Format(time.RFC3339),
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}

	t.logger.Info().
		Int("board_size", t.boardSize).
		Int("population", t.populationSize).
		Uint64("seed", seed).
		Str("backend", t.backendURL).
		Msg("AI trainer service started")
	server := t.startStatusAPI()

	if autostart := strings.ToLower(getenv("TRAINER_AUTOSTART", "")); autostart == "1" || autostart == "true" || autostart == "yes" {
		if err := t.startTraining(); err != nil {
			t.logger.Error().Err(err).Msg("autostart failed")
		}
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	<-sigCtx.Done()
	_ = t.stopTraining("shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	t.logger.Info().Msg("trainer service stopping")
}

func (t *trainer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/trainer/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": t.getStatus().Running})
	})
	r.Get("/api/trainer/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.getStatus())
	})
	r.Post("/api/trainer/start", func(w http.ResponseWriter, r *http.Request) {
		if err := t.startTraining(); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, t.getStatus())
	})
	r.Post("/api/trainer/stop", func(w http.ResponseWriter, r *http.Request) {
		if err := t.stopTraining("requested via api"); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, t.getStatus())
	})
	return r
}

func (t *trainer) startStatusAPI() *http.Server {
	server := &http.Server{Addr: t.apiAddr, Handler: t.router()}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error().Err(err).Msg("trainer api server error")
		}
	}()
	return server
}

func (t *trainer) getStatus() trainerStatus {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	return t.status
}

func (t *trainer) updateStatus(mutator func(*trainerStatus)) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	mutator(&t.status)
	t.status.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

func (t *trainer) startTraining() error {
	t.jobMu.Lock()
	defer t.jobMu.Unlock()
	if t.jobCancel != nil {
		return fmt.Errorf("training already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.jobCancel = cancel
	t.jobDone = done
	t.updateStatus(func(s *trainerStatus) {
		s.Running = true
		s.Phase = "starting"
		s.Message = "training starting"
	})

	go func() {
		defer close(done)
		err := t.runTraining(ctx)
		t.jobMu.Lock()
		t.jobCancel = nil
		t.jobMu.Unlock()
		t.updateStatus(func(s *trainerStatus) {
			s.Running = false
			s.CurrentMatch = nil
			switch {
			case err == nil:
				s.Phase = "finished"
				s.Message = "training finished"
			case errors.Is(err, context.Canceled):
				s.Phase = "stopped"
				s.Message = "training stopped"
			default:
				s.Phase = "error"
				s.Message = err.Error()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Error().Err(err).Msg("training failed")
		}
	}()
	return nil
}

func (t *trainer) stopTraining(reason string) error {
	t.jobMu.Lock()
	cancel := t.jobCancel
	done := t.jobDone
	t.jobMu.Unlock()
	if cancel == nil {
		return fmt.Errorf("training is not running")
	}
	t.logger.Info().Str("reason", reason).Msg("stopping training")
	cancel()
	if done != nil {
		<-done
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func buildLogger(path, level string) (zerolog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Logger{}, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	out := io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}, f)
	logger := zerolog.New(out).Level(parsed).With().Timestamp().Str("service", "ai-trainer").Logger()
	return logger, func() { _ = f.Close() }, nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(value, "%f", &parsed); err != nil {
		return fallback
	}
	return parsed
}
