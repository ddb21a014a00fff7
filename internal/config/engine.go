package config

import "fmt"

// EngineConfig holds the inference engine's tuning thresholds.
// All values have defaults; zero values are rejected by Validate rather than
// silently interpreted.
type EngineConfig struct {
	// DiscriminateMinPool is the smallest candidate pool for which an
	// entropy-discriminating question is still worth asking. Below this,
	// direct guesses beat further halving.
	DiscriminateMinPool int `yaml:"discriminate_min_pool"`

	// GuessPoolSize triggers a direct guess whenever the pool is at or
	// below this size.
	GuessPoolSize int `yaml:"guess_pool_size"`

	// GuessMidPoolSize with GuessMidPoolTurns triggers a guess on a
	// moderately small pool once enough turns have passed.
	GuessMidPoolSize  int `yaml:"guess_mid_pool_size"`
	GuessMidPoolTurns int `yaml:"guess_mid_pool_turns"`

	// GuessConfidence triggers a guess when the top candidate's derived
	// confidence exceeds it regardless of pool size.
	GuessConfidence float64 `yaml:"guess_confidence"`

	// MaxQuestionWords rejects oracle-proposed questions longer than this,
	// as likely compound or overly specific.
	MaxQuestionWords int `yaml:"max_question_words"`

	// OutOfBaseTurnBudget is the turn count after which an exhausted
	// candidate pool switches the engine to oracle-only guessing.
	// Empirically tuned; applied in exactly one place.
	OutOfBaseTurnBudget int `yaml:"out_of_base_turn_budget"`

	// MaxGuesses caps the guess list surfaced per turn.
	MaxGuesses int `yaml:"max_guesses"`
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DiscriminateMinPool: 10,
		GuessPoolSize:       2,
		GuessMidPoolSize:    5,
		GuessMidPoolTurns:   8,
		GuessConfidence:     0.85,
		MaxQuestionWords:    20,
		OutOfBaseTurnBudget: 18,
		MaxGuesses:          3,
	}
}

// Validate rejects nonsensical threshold combinations.
func (e EngineConfig) Validate() error {
	if e.DiscriminateMinPool <= 0 {
		return fmt.Errorf("discriminate_min_pool must be > 0")
	}
	if e.GuessPoolSize <= 0 {
		return fmt.Errorf("guess_pool_size must be > 0")
	}
	if e.GuessPoolSize > e.DiscriminateMinPool {
		return fmt.Errorf("guess_pool_size (%d) must not exceed discriminate_min_pool (%d)",
			e.GuessPoolSize, e.DiscriminateMinPool)
	}
	if e.GuessConfidence <= 0 || e.GuessConfidence > 1 {
		return fmt.Errorf("guess_confidence must be in (0,1]")
	}
	if e.MaxQuestionWords <= 0 {
		return fmt.Errorf("max_question_words must be > 0")
	}
	if e.OutOfBaseTurnBudget <= 0 {
		return fmt.Errorf("out_of_base_turn_budget must be > 0")
	}
	if e.MaxGuesses <= 0 {
		return fmt.Errorf("max_guesses must be > 0")
	}
	return nil
}
