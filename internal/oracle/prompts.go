package oracle

import (
	"fmt"
	"strings"

	"telepath/internal/types"
)

// Context is the structured game state handed to the oracle on every
// round-trip.
type Context struct {
	Traits             []types.Trait
	Turns              []types.Turn
	RejectedGuesses    []string
	AmbiguousQuestions []string
	OutOfBase          bool
}

const questionSystemPrompt = `You are the question-asker in a 20-questions guessing game.
The player is thinking of a character (real or fictional) and you must identify them.
You will receive the facts confirmed so far, the full question history, and guesses
already rejected. Respond with a single JSON object and nothing else:
{"question": "<one short yes/no question>", "top_guesses": [{"name": "<character>", "confidence": <0..1>}]}
Rules:
- The question must be answerable with yes or no.
- Never re-ask a topic already covered by the history or the confirmed facts.
- Never guess a name that was already rejected.
- Keep the question under 15 words.`

const extractionSystemPrompt = `You extract structured facts from a 20-questions game exchange.
Given one question and the player's answer, respond with a single JSON object and nothing else:
{"key": "<trait key>", "value": "<value>", "confidence": <0..1>}
Valid keys: gender, species, category, origin_medium, has_powers, alignment,
age_group, fictional, hair_color, occupation, era, nationality.
If the exchange confirms no usable fact, use {"key": "", "value": "", "confidence": 0}.
The value must reflect what the ANSWER establishes, not what the question asked.`

// BuildQuestionPrompt renders the game context for a question/guess proposal.
func BuildQuestionPrompt(c Context) string {
	var b strings.Builder

	b.WriteString("Confirmed facts about the character:\n")
	if len(c.Traits) == 0 {
		b.WriteString("  (none yet)\n")
	}
	for _, t := range c.Traits {
		fmt.Fprintf(&b, "  - %s = %s (confidence %.2f)\n", t.Key, t.Value, t.Confidence)
	}

	b.WriteString("\nQuestion history:\n")
	if len(c.Turns) == 0 {
		b.WriteString("  (no questions asked yet)\n")
	}
	for i, turn := range c.Turns {
		fmt.Fprintf(&b, "  %d. %q -> %s\n", i+1, turn.Question, turn.Answer)
	}

	if len(c.RejectedGuesses) > 0 {
		b.WriteString("\nGuesses already rejected (do not repeat):\n")
		for _, g := range c.RejectedGuesses {
			fmt.Fprintf(&b, "  - %s\n", g)
		}
	}

	if len(c.AmbiguousQuestions) > 0 {
		b.WriteString("\nQuestions the player could not answer (avoid these topics):\n")
		for _, q := range c.AmbiguousQuestions {
			fmt.Fprintf(&b, "  - %s\n", q)
		}
	}

	if c.OutOfBase {
		b.WriteString("\nThe character is outside the local database. Lean on your own knowledge and prioritize naming guesses.\n")
	}

	b.WriteString("\nPropose the next question and your current best guesses.")
	return b.String()
}

// BuildExtractionPrompt renders one Q&A pair for trait extraction.
func BuildExtractionPrompt(question string, answer types.Answer) string {
	return fmt.Sprintf("Question: %q\nAnswer: %s\n\nExtract the confirmed fact.", question, answer)
}

// QuestionSystemPrompt returns the system prompt for question proposals.
func QuestionSystemPrompt() string { return questionSystemPrompt }

// ExtractionSystemPrompt returns the system prompt for trait extraction.
func ExtractionSystemPrompt() string { return extractionSystemPrompt }
