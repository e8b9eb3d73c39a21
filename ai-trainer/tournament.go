package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gomokubot/engine"
)

const startingElo = 1500

type contender struct {
	ID    string
	Tiers engine.ScoreTiers
	Elo   float64
}

func (t *trainer) runTraining(ctx context.Context) error {
	base := t.baseTiers()
	trainOpenings := t.buildOpeningSuite(t.trainingOpenings, 41)
	valOpenings := t.buildOpeningSuite(t.validationOpenings, 911)
	champion := contender{ID: "champion", Tiers: base, Elo: startingElo}
	population := t.initializePopulation(champion.Tiers)
	if err := t.persistTierPair(champion.Tiers, population[1].Tiers); err != nil {
		t.logger.Warn().Err(err).Msg("failed to persist initial tiers")
	}

	t.updateStatus(func(s *trainerStatus) {
		s.Phase = "running"
		s.Message = "tier training running"
		s.Generation = 0
		s.GamesPlayed = 0
		s.PopulationSize = t.populationSize
		s.ValidationThreshold = t.validationPassRate
		s.TrainingOpenings = len(trainOpenings)
		s.ChampionTiers = champion.Tiers
		s.ChallengerTier = population[1].Tiers
		s.TopContenders = toStandings(population, 8)
	})

	for generation := 1; t.maxGenerations == 0 || generation <= t.maxGenerations; generation++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		roundTotal := (len(population) * (len(population) - 1) / 2) * len(trainOpenings)
		roundStart := time.Now().UTC()
		t.updateStatus(func(s *trainerStatus) {
			s.Generation = generation
			s.GamesPlayed = 0
			s.GenerationStartedAt = roundStart.Format(time.RFC3339)
			s.RoundMatchesTotal = roundTotal
			s.EtaSeconds = 0
		})
		gamesPlayed, err := t.runPopulationRound(ctx, population, trainOpenings, generation, roundStart, roundTotal)
		if err != nil {
			return err
		}
		sortContendersByElo(population)
		best := population[0]
		challenger := population[1]

		promoted := false
		if best.Tiers != champion.Tiers {
			points, total, err := t.runValidation(ctx, best.Tiers, champion.Tiers, valOpenings)
			if err != nil {
				return err
			}
			rate := 0.0
			if total > 0 {
				rate = points / total
			}
			t.updateStatus(func(s *trainerStatus) {
				s.LastValidationRate = rate
			})
			if rate >= t.validationPassRate {
				champion = contender{ID: fmt.Sprintf("champion-g%d", generation), Tiers: best.Tiers, Elo: startingElo}
				promoted = true
			}
			t.logger.Info().
				Int("generation", generation).
				Str("candidate", best.ID).
				Float64("rate", rate).
				Bool("promoted", promoted).
				Msg("validation finished")
		}

		if err := t.persistTierPair(champion.Tiers, challenger.Tiers); err != nil {
			t.logger.Warn().Err(err).Msg("failed to persist tiers")
		}
		if promoted {
			if err := t.pushChampion(ctx, champion.Tiers); err != nil {
				t.logger.Warn().Err(err).Msg("failed to push champion tiers to backend")
			}
		}
		t.updateStatus(func(s *trainerStatus) {
			s.GamesPlayed = gamesPlayed
			s.CurrentMatch = nil
			s.EtaSeconds = 0
			s.ChampionTiers = champion.Tiers
			s.ChallengerTier = challenger.Tiers
			s.TopContenders = toStandings(population, 8)
		})
		t.logger.Info().
			Int("generation", generation).
			Interface("champion", champion.Tiers).
			Msg("generation finished")
		population = t.nextGenerationPopulation(champion.Tiers, population)
	}
	return nil
}

func (t *trainer) runPopulationRound(ctx context.Context, population []contender, openings [][]engine.Position, generation int, roundStart time.Time, roundTotal int) (int, error) {
	games := 0
	for i := 0; i < len(population); i++ {
		for j := i + 1; j < len(population); j++ {
			for openingIdx, opening := range openings {
				if err := ctx.Err(); err != nil {
					return games, err
				}
				t.updateStatus(func(s *trainerStatus) {
					s.CurrentMatch = &trainerMatch{
						BlackID:      population[i].ID,
						WhiteID:      population[j].ID,
						OpeningIndex: openingIdx,
						Stage:        "population",
					}
				})
				result, moves, err := t.playHeadToHead(ctx, population[i].Tiers, population[j].Tiers, opening)
				if err != nil {
					return games, err
				}
				updateElo(&population[i], &population[j], result, t.eloK)
				games++

				ranked := append([]contender(nil), population...)
				sortContendersByElo(ranked)
				t.updateStatus(func(s *trainerStatus) {
					s.GamesPlayed = games
					s.TopContenders = toStandings(ranked, 8)
					s.EtaSeconds = etaSeconds(roundStart, games, roundTotal)
				})
				if games%5 == 0 || games == 1 {
					t.logger.Debug().
						Int("generation", generation).
						Int("game", games).
						Str("first", population[i].ID).
						Str("second", population[j].ID).
						Float64("result", result).
						Int("moves", moves).
						Msg("population game")
				}
			}
		}
	}
	return games, nil
}

func (t *trainer) runValidation(ctx context.Context, candidate, champion engine.ScoreTiers, openings [][]engine.Position) (float64, float64, error) {
	points := 0.0
	total := 0.0
	for _, opening := range openings {
		if err := ctx.Err(); err != nil {
			return points, total, err
		}
		t.updateStatus(func(s *trainerStatus) {
			s.CurrentMatch = &trainerMatch{BlackID: "candidate", WhiteID: "champion", Stage: "validation"}
		})
		result, _, err := t.playHeadToHead(ctx, candidate, champion, opening)
		if err != nil {
			return points, total, err
		}
		points += result
		total++
	}
	return points, total, nil
}

// playHeadToHead plays both colour assignments and returns first's share of
// the points in [0,1] plus the average game length.
func (t *trainer) playHeadToHead(ctx context.Context, first, second engine.ScoreTiers, opening []engine.Position) (float64, int, error) {
	points := 0.0
	moves := 0
	for _, firstBlack := range []bool{true, false} {
		black, white := first, second
		if !firstBlack {
			black, white = second, first
		}
		outcome, err := t.playConfiguredGame(ctx, black, white, opening)
		if err != nil {
			return 0, 0, err
		}
		moves += outcome.Moves
		switch outcome.Winner {
		case sideBlack:
			if firstBlack {
				points++
			}
		case sideWhite:
			if !firstBlack {
				points++
			}
		default:
			points += 0.5
		}
	}
	return points / 2, moves / 2, nil
}

func (t *trainer) initializePopulation(seed engine.ScoreTiers) []contender {
	pop := make([]contender, 0, t.populationSize)
	pop = append(pop, contender{ID: "p0", Tiers: seed, Elo: startingElo})
	for i := 1; i < t.populationSize; i++ {
		pop = append(pop, contender{
			ID:    fmt.Sprintf("p%d", i),
			Tiers: t.mutateTiers(seed),
			Elo:   startingElo,
		})
	}
	return pop
}

func (t *trainer) nextGenerationPopulation(champion engine.ScoreTiers, ranked []contender) []contender {
	next := make([]contender, 0, t.populationSize)
	next = append(next, contender{ID: "p0", Tiers: champion, Elo: startingElo})
	for i := 0; i < len(ranked) && len(next) < t.populationSize && i < t.eliteCount+1; i++ {
		if ranked[i].Tiers == champion {
			continue
		}
		next = append(next, contender{
			ID:    fmt.Sprintf("elite-%d", i),
			Tiers: ranked[i].Tiers,
			Elo:   startingElo,
		})
	}
	parentPool := ranked
	if len(parentPool) > t.eliteCount+1 {
		parentPool = parentPool[:t.eliteCount+1]
	}
	for len(next) < t.populationSize {
		parent := parentPool[t.rng.Intn(len(parentPool))]
		next = append(next, contender{
			ID:    fmt.Sprintf("mut-%d", len(next)),
			Tiers: t.mutateTiers(parent.Tiers),
			Elo:   startingElo,
		})
	}
	return next
}

// mutateTiers scales every tier by a random factor in
// [1-strength, 1+strength]. Results stay in [1, WinScore) and each side's
// four keeps outranking its three.
func (t *trainer) mutateTiers(base engine.ScoreTiers) engine.ScoreTiers {
	ceiling := t.baseConfig.WinScore - 1
	mutate := func(v int) int {
		factor := 1 + (t.rng.Float64()*2-1)*t.mutationStrength
		next := int(math.Round(float64(v) * factor))
		if next < 1 {
			return 1
		}
		if next > ceiling {
			return ceiling
		}
		return next
	}
	out := engine.ScoreTiers{
		BotFour:     mutate(base.BotFour),
		BotThree:    mutate(base.BotThree),
		PlayerFour:  mutate(base.PlayerFour),
		PlayerThree: mutate(base.PlayerThree),
	}
	if out.BotThree >= out.BotFour {
		out.BotThree = out.BotFour - 1
	}
	if out.PlayerThree >= out.PlayerFour {
		out.PlayerThree = out.PlayerFour - 1
	}
	return out
}

func toStandings(list []contender, limit int) []trainerStanding {
	out := make([]trainerStanding, 0, min(len(list), limit))
	for i := 0; i < len(list) && i < limit; i++ {
		out = append(out, trainerStanding{ID: list[i].ID, Elo: list[i].Elo, Tiers: list[i].Tiers})
	}
	return out
}

func sortContendersByElo(list []contender) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Elo > list[j].Elo })
}

func updateElo(a *contender, b *contender, resultForA float64, k float64) {
	expA := 1.0 / (1.0 + math.Pow(10, (b.Elo-a.Elo)/400.0))
	expB := 1.0 / (1.0 + math.Pow(10, (a.Elo-b.Elo)/400.0))
	a.Elo += k * (resultForA - expA)
	b.Elo += k * ((1.0 - resultForA) - expB)
}

func etaSeconds(start time.Time, done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	avg := time.Since(start).Seconds() / float64(done)
	return int(math.Round(avg * float64(max(total-done, 0))))
}
