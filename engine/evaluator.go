package engine

// Scan directions: horizontal, vertical, diagonal and anti-diagonal.
var windowDirections = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Evaluate scores a board from the bot's side using the config's win length,
// sentinel and tier table. A completed line returns ±WinScore immediately.
func Evaluate(board Board, config Config) int {
	return evaluateWindows(board, config.WinLength, config.WinScore, config.Tiers)
}

// evaluateWindows keeps the best tier per side rather than a sum, so
// overlapping windows over the same run are not counted twice.
func evaluateWindows(board Board, winLength, winScore int, tiers ScoreTiers) int {
	size := board.size
	cells := board.cells
	bestBot := 0
	bestPlayer := 0
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			for _, dir := range windowDirections {
				endRow := row + dir[0]*(winLength-1)
				endCol := col + dir[1]*(winLength-1)
				if endRow < 0 || endRow >= size || endCol < 0 || endCol >= size {
					continue
				}
				bots, players := 0, 0
				idx := row*size + col
				step := dir[0]*size + dir[1]
				for i := 0; i < winLength; i++ {
					switch cells[idx] {
					case MarkBot:
						bots++
					case MarkPlayer:
						players++
					}
					idx += step
				}
				if players == 0 && bots > 0 {
					switch bots {
					case winLength:
						return winScore
					case winLength - 1:
						if tiers.BotFour > bestBot {
							bestBot = tiers.BotFour
						}
					case winLength - 2:
						if tiers.BotThree > bestBot {
							bestBot = tiers.BotThree
						}
					}
				}
				if bots == 0 && players > 0 {
					switch players {
					case winLength:
						return -winScore
					case winLength - 1:
						if tiers.PlayerFour > bestPlayer {
							bestPlayer = tiers.PlayerFour
						}
					case winLength - 2:
						if tiers.PlayerThree > bestPlayer {
							bestPlayer = tiers.PlayerThree
						}
					}
				}
			}
		}
	}
	return bestBot - bestPlayer
}

// isWinSentinel reports a forced win or loss.
func isWinSentinel(score, winScore int) bool {
	return score >= winScore || score <= -winScore
}
