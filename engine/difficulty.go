package engine

import (
	"fmt"
	"strings"
)

type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium", "":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	default:
		return DifficultyEasy, fmt.Errorf("%w: %q", ErrUnknownDifficulty, raw)
	}
}

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

// SearchDepth is 0 for Easy, which never searches.
func (d Difficulty) SearchDepth(config Config) int {
	switch d {
	case DifficultyMedium:
		return config.MediumDepth
	case DifficultyHard:
		return config.HardDepth
	default:
		return 0
	}
}

func (d Difficulty) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDifficulty, int(d))
	}
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
