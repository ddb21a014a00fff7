package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telepath/internal/config"
	"telepath/internal/logging"
	"telepath/internal/oracle"
	"telepath/internal/rules"
	"telepath/internal/types"
)

// Engine drives the game turn by turn. It is turn-synchronous: exactly one
// oracle round-trip for trait extraction and one for the question proposal
// per player answer, with the session mutated only between round-trips.
type Engine struct {
	mu sync.Mutex

	cfg           config.EngineConfig
	oracleTimeout time.Duration
	client        oracle.Client
	store         []types.Subject

	tables    *rules.Tables
	extractor *Extractor
	selector  *Selector
	validator *Validator
	resolver  Resolver

	sess    *Session
	pending string
}

// Options carries the engine's optional collaborators.
type Options struct {
	// OracleTimeout caps each oracle round-trip. Zero means 30s.
	OracleTimeout time.Duration

	// Resolver performs external guess lookups. Nil disables them.
	Resolver Resolver

	// MaxConcurrentLookups caps validator fan-out. Zero means 4.
	MaxConcurrentLookups int
}

// New assembles an engine over a candidate store and rule tables. The store
// is read-only after this call.
func New(cfg config.EngineConfig, client oracle.Client, tables *rules.Tables, store []types.Subject, opts Options) *Engine {
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 30 * time.Second
	}
	e := &Engine{
		cfg:           cfg,
		oracleTimeout: opts.OracleTimeout,
		client:        client,
		store:         store,
		resolver:      opts.Resolver,
		sess:          NewSession(),
	}
	e.install(tables, opts.MaxConcurrentLookups)
	return e
}

// install wires the table-dependent collaborators. Callers hold e.mu or are
// still constructing.
func (e *Engine) install(tables *rules.Tables, maxLookups int) {
	e.tables = tables
	e.extractor = NewExtractor(e.client, tables, e.oracleTimeout)
	e.selector = NewSelector(e.cfg, tables, e.store)
	e.validator = NewValidator(e.store, e.resolver, maxLookups)
}

// SetTables swaps in freshly loaded rule tables between turns. Used by the
// live-reload watcher.
func (e *Engine) SetTables(tables *rules.Tables) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.install(tables, e.validator.maxConcurrent)
	logging.Rules("Engine switched to rule tables version %s", tables.Version)
}

// Session exposes the live session for presentation-layer reads.
func (e *Engine) Session() *Session { return e.sess }

// Reset starts a fresh game.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.Reset()
	e.pending = ""
}

// Start produces the opening question of a new game.
func (e *Engine) Start(ctx context.Context) (*types.TurnOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending != "" {
		return nil, fmt.Errorf("a question is already pending")
	}
	return e.nextTurn(ctx), nil
}

// Advance consumes the player's answer to the pending question and produces
// the next turn. No failure mid-turn is fatal: oracle errors fall back to
// deterministic paths and rejected extractions skip silently.
func (e *Engine) Advance(ctx context.Context, answer types.Answer) (*types.TurnOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !answer.Valid() {
		return nil, fmt.Errorf("unrecognized answer %q", answer)
	}
	if e.pending == "" {
		return nil, fmt.Errorf("no question pending")
	}

	question := e.pending
	e.pending = ""
	turn := e.sess.TurnCount() + 1

	if answer == types.AnswerDontKnow {
		e.sess.RecordAmbiguous(question)
	} else if trait := e.extractor.Extract(ctx, question, answer, turn); trait != nil {
		if e.fantasyContradiction(*trait) {
			logging.Session("Dropping fantasy trait %s=%q for a real subject", trait.Key, trait.Value)
		} else {
			e.sess.AddTrait(*trait)
		}
	}
	e.sess.RecordTurn(question, answer)

	return e.nextTurn(ctx), nil
}

// RejectGuess records a wrong guess and resumes questioning.
func (e *Engine) RejectGuess(ctx context.Context, name string) (*types.TurnOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.RejectGuess(name)
	e.pending = ""
	return e.nextTurn(ctx), nil
}

// nextTurn recomputes the pool, consults the oracle, and selects the next
// question or guess. Callers hold e.mu.
func (e *Engine) nextTurn(ctx context.Context) *types.TurnOutput {
	traits := e.sess.Traits()
	pool := Filter(e.store, traits, e.tables)

	if pool.Empty() && e.sess.TurnCount() >= e.cfg.OutOfBaseTurnBudget {
		if !e.sess.OutOfBase() {
			logging.Session("Knowledge base exhausted after %d turns, oracle-only guessing from here", e.sess.TurnCount())
		}
		e.sess.SetOutOfBase(true)
	} else if !pool.Empty() && e.sess.OutOfBase() {
		// A trait replacement repaired the ledger; the pool is live again.
		logging.Session("Candidate pool recovered (%d subjects), leaving oracle-only mode", len(pool.Subjects))
		e.sess.SetOutOfBase(false)
	}

	reply := e.propose(ctx)
	sel := e.selector.Select(e.sess, pool, reply)

	if e.sess.OutOfBase() {
		// Guesses past the knowledge base rest on the oracle alone.
		for i := range sel.Guesses {
			sel.Guesses[i].Confidence /= 2
		}
	}

	guesses := e.validator.FilterGuesses(ctx, e.sess, sel.Guesses, traits)

	if sel.IsGuessPhase && len(guesses) == 0 {
		// Every candidate was invalidated; keep the game moving with a question.
		sel = Selection{Question: e.selector.fallbackQuestion(
			e.sess, e.sess.AskedQuestions(), e.sess.TraitKeys(), confirmedReal(e.sess))}
	}

	e.pending = sel.Question
	return &types.TurnOutput{
		Question:     sel.Question,
		Traits:       traits,
		Guesses:      guesses,
		IsGuessPhase: sel.IsGuessPhase,
		OutOfBase:    e.sess.OutOfBase(),
	}
}

// propose runs the question/guess oracle round-trip. Timeouts and transport
// errors degrade to a malformed reply, which the selector treats as "use the
// deterministic paths".
func (e *Engine) propose(ctx context.Context) types.ParsedReply {
	if e.client == nil {
		return types.ParsedReply{Kind: types.ReplyMalformed}
	}
	callCtx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	raw, err := e.client.CompleteWithSystem(callCtx, oracle.QuestionSystemPrompt(),
		oracle.BuildQuestionPrompt(oracle.Context{
			Traits:             e.sess.Traits(),
			Turns:              e.sess.Turns(),
			RejectedGuesses:    e.sess.RejectedNames(),
			AmbiguousQuestions: e.sess.AmbiguousQuestions(),
			OutOfBase:          e.sess.OutOfBase(),
		}))
	if err != nil {
		logging.Oracle("Question proposal failed, deterministic fallback will serve: %v", err)
		return types.ParsedReply{Kind: types.ReplyMalformed}
	}
	return oracle.ParseReply(raw)
}

// fantasyContradiction rejects traits whose value carries fantasy vocabulary
// once the subject is confirmed real.
func (e *Engine) fantasyContradiction(t types.Trait) bool {
	if t.Key == types.KeyFictional {
		return false
	}
	return confirmedReal(e.sess) && e.tables.TouchesFantasy(t.Value)
}
