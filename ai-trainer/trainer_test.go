package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"gomokubot/engine"
)

func newTestTrainer(t *testing.T) *trainer {
	t.Helper()
	config := engine.DefaultConfig()
	config.MediumDepth = 1
	config.CandidateRadius = 1
	config.EvalCacheSize = 1024
	return &trainer{
		client:             http.DefaultClient,
		outputDir:          t.TempDir(),
		logger:             zerolog.Nop(),
		rng:                rand.New(rand.NewSource(3)),
		baseConfig:         config,
		boardSize:          7,
		mutationStrength:   0.3,
		populationSize:     4,
		eliteCount:         1,
		trainingOpenings:   1,
		validationOpenings: 1,
		openingPlies:       2,
		eloK:               20,
		validationPassRate: 0.55,
		maxGenerations:     1,
	}
}

func TestUpdateEloIsZeroSum(t *testing.T) {
	a := contender{ID: "a", Elo: startingElo}
	b := contender{ID: "b", Elo: startingElo}
	updateElo(&a, &b, 1, 20)
	require.InDelta(t, startingElo+10, a.Elo, 1e-9)
	require.InDelta(t, startingElo-10, b.Elo, 1e-9)
	require.InDelta(t, 2*startingElo, a.Elo+b.Elo, 1e-9)

	c := contender{ID: "c", Elo: 1600}
	d := contender{ID: "d", Elo: 1400}
	updateElo(&c, &d, 0.5, 20)
	require.Less(t, c.Elo, 1600.0)
	require.Greater(t, d.Elo, 1400.0)
}

func TestSortContendersByElo(t *testing.T) {
	list := []contender{{ID: "low", Elo: 1400}, {ID: "high", Elo: 1600}, {ID: "mid", Elo: 1500}}
	sortContendersByElo(list)
	require.Equal(t, []string{"high", "mid", "low"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestMutateTiersStaysValid(t *testing.T) {
	tr := newTestTrainer(t)
	tr.mutationStrength = 0.9
	seeds := []engine.ScoreTiers{
		engine.DefaultScoreTiers(),
		{BotFour: 2, BotThree: 1, PlayerFour: 2, PlayerThree: 1},
		{BotFour: 9999, BotThree: 9998, PlayerFour: 9999, PlayerThree: 9000},
	}
	for _, seed := range seeds {
		for i := 0; i < 200; i++ {
			tiers := tr.mutateTiers(seed)
			config := tr.baseConfig
			config.Tiers = tiers
			require.NoError(t, config.Validate())
			require.Greater(t, tiers.BotFour, tiers.BotThree)
			require.Greater(t, tiers.PlayerFour, tiers.PlayerThree)
		}
	}
}

func TestNextGenerationKeepsChampionFirst(t *testing.T) {
	tr := newTestTrainer(t)
	champion := engine.DefaultScoreTiers()
	ranked := tr.initializePopulation(champion)
	require.Len(t, ranked, tr.populationSize)
	require.Equal(t, champion, ranked[0].Tiers)

	next := tr.nextGenerationPopulation(champion, ranked)
	require.Len(t, next, tr.populationSize)
	require.Equal(t, champion, next[0].Tiers)
	for _, c := range next {
		require.Equal(t, float64(startingElo), c.Elo)
	}
}

func TestBuildOpeningSuite(t *testing.T) {
	tr := newTestTrainer(t)
	tr.openingPlies = 4
	suite := tr.buildOpeningSuite(5, 41)
	require.Len(t, suite, 5)
	for _, opening := range suite {
		require.Len(t, opening, 4)
		seen := map[engine.Position]bool{}
		for _, pos := range opening {
			require.False(t, seen[pos])
			seen[pos] = true
			require.True(t, pos.Row >= 0 && pos.Row < tr.boardSize)
			require.True(t, pos.Col >= 0 && pos.Col < tr.boardSize)
		}
	}
	require.Equal(t, suite, tr.buildOpeningSuite(5, 41))
}

func TestSwapPerspective(t *testing.T) {
	board := engine.NewBoard(3)
	board.Set(0, 0, engine.MarkBot)
	board.Set(1, 1, engine.MarkPlayer)
	swapped := swapPerspective(board)
	require.Equal(t, engine.MarkPlayer, swapped.At(0, 0))
	require.Equal(t, engine.MarkBot, swapped.At(1, 1))
	require.Equal(t, engine.MarkEmpty, swapped.At(2, 2))
	require.Equal(t, engine.MarkBot, board.At(0, 0))
}

func TestSelfPlayGameTerminates(t *testing.T) {
	tr := newTestTrainer(t)
	opening := tr.buildOpeningSuite(1, 7)[0]
	outcome, err := tr.playConfiguredGame(context.Background(), engine.DefaultScoreTiers(), engine.DefaultScoreTiers(), opening)
	require.NoError(t, err)
	require.Contains(t, []int{sideDraw, sideBlack, sideWhite}, outcome.Winner)
	require.GreaterOrEqual(t, outcome.Moves, len(opening))
	require.LessOrEqual(t, outcome.Moves, tr.boardSize*tr.boardSize)
}

func TestSelfPlayStopsOnCancel(t *testing.T) {
	tr := newTestTrainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.playConfiguredGame(ctx, engine.DefaultScoreTiers(), engine.DefaultScoreTiers(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHeadToHeadScoreRange(t *testing.T) {
	tr := newTestTrainer(t)
	opening := tr.buildOpeningSuite(1, 7)[0]
	same := engine.DefaultScoreTiers()
	points, _, err := tr.playHeadToHead(context.Background(), same, same, opening)
	require.NoError(t, err)
	require.GreaterOrEqual(t, points, 0.0)
	require.LessOrEqual(t, points, 1.0)
}

func TestPersistTierPairRoundTrip(t *testing.T) {
	tr := newTestTrainer(t)
	champion := engine.ScoreTiers{BotFour: 1200, BotThree: 90, PlayerFour: 700, PlayerThree: 60}
	require.NoError(t, tr.persistTierPair(champion, engine.DefaultScoreTiers()))

	config, err := tr.readConfigFile(championConfigFile)
	require.NoError(t, err)
	require.Equal(t, champion, config.Tiers)
	require.Equal(t, tr.baseConfig.MediumDepth, config.MediumDepth)
	require.Equal(t, champion, tr.baseTiers())
}

func TestPushChampionPostsTiers(t *testing.T) {
	var got struct {
		Tiers engine.ScoreTiers `json:"tiers"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/config", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := newTestTrainer(t)
	require.NoError(t, tr.pushChampion(context.Background(), engine.DefaultScoreTiers()))

	tr.backendURL = srv.URL
	tiers := engine.ScoreTiers{BotFour: 1100, BotThree: 110, PlayerFour: 900, PlayerThree: 70}
	require.NoError(t, tr.pushChampion(context.Background(), tiers))
	require.Equal(t, tiers, got.Tiers)
}

func TestRunTrainingSingleGeneration(t *testing.T) {
	tr := newTestTrainer(t)
	require.NoError(t, tr.runTraining(context.Background()))

	status := tr.getStatus()
	require.Equal(t, 1, status.Generation)
	require.Equal(t, 6, status.GamesPlayed)
	require.NotEmpty(t, status.TopContenders)

	_, err := tr.readConfigFile(championConfigFile)
	require.NoError(t, err)
	_, err = tr.readConfigFile(challengerConfigFile)
	require.NoError(t, err)
}

func TestStatusAPI(t *testing.T) {
	tr := newTestTrainer(t)
	tr.status.Phase = "idle"
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/trainer/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status trainerStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, "idle", status.Phase)

	stop, err := http.Post(srv.URL+"/api/trainer/stop", "application/json", nil)
	require.NoError(t, err)
	defer stop.Body.Close()
	require.Equal(t, http.StatusConflict, stop.StatusCode)
}
