package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"telepath/internal/engine"
	"telepath/internal/lookup"
	"telepath/internal/oracle"
	"telepath/internal/rules"
	"telepath/internal/store"
	"telepath/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rulesDir string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a game",
	Long: `Starts an interactive game. Think of a character, real or fictional,
and answer with:

  y  yes          n  no
  p  probably     b  probably not
  d  don't know

During a guess, y confirms and n rejects. r restarts, q quits.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&rulesDir, "rules-dir", "", "override rule tables from a directory (live-reloaded)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	client, err := oracle.NewClient(cfg.Oracle)
	if err != nil {
		return err
	}

	tables, err := loadRuleTables()
	if err != nil {
		return err
	}

	subjects, err := store.LoadCatalogue(cfg.Dataset.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to load subject catalogue: %w", err)
	}

	var resolver engine.Resolver
	if cfg.Lookup.Enabled {
		resolver = lookup.NewClient(cfg.Lookup.BaseURL, cfg.GetLookupTimeout(), logger)
	}

	eng := engine.New(cfg.Engine, client, tables, subjects, engine.Options{
		OracleTimeout:        cfg.GetOracleTimeout(),
		Resolver:             resolver,
		MaxConcurrentLookups: cfg.Lookup.MaxConcurrent,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if rulesDir != "" {
		go func() {
			if err := rules.Watch(ctx, rulesDir, eng.SetTables); err != nil && ctx.Err() == nil {
				logger.Warn("rule watcher stopped", zap.Error(err))
			}
		}()
	}

	p := tea.NewProgram(newPlayModel(ctx, eng, len(subjects)), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func loadRuleTables() (*rules.Tables, error) {
	if rulesDir == "" {
		return rules.Default()
	}
	return rules.LoadDir(func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(rulesDir, name))
	})
}

// =============================================================================
// TUI MODEL
// =============================================================================

type phase int

const (
	phaseThinking phase = iota // waiting on the engine
	phaseAsking                // question on screen, awaiting y/n/p/b/d
	phaseGuessing              // guess on screen, awaiting y/n
	phaseWon
	phaseLost
	phaseFailed
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	guessStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	traitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type playModel struct {
	ctx     context.Context
	eng     *engine.Engine
	catalog int

	phase    phase
	spin     spinner.Model
	out      *types.TurnOutput
	guessIdx int
	turn     int
	err      error
}

// turnMsg carries an engine result back into the update loop.
type turnMsg struct {
	out *types.TurnOutput
	err error
}

func newPlayModel(ctx context.Context, eng *engine.Engine, catalog int) playModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return playModel{ctx: ctx, eng: eng, catalog: catalog, phase: phaseThinking, spin: sp}
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.startGame())
}

func (m playModel) startGame() tea.Cmd {
	return func() tea.Msg {
		out, err := m.eng.Start(m.ctx)
		return turnMsg{out: out, err: err}
	}
}

func (m playModel) advance(a types.Answer) tea.Cmd {
	return func() tea.Msg {
		out, err := m.eng.Advance(m.ctx, a)
		return turnMsg{out: out, err: err}
	}
}

func (m playModel) rejectGuess(name string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.eng.RejectGuess(m.ctx, name)
		return turnMsg{out: out, err: err}
	}
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case turnMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseFailed
			return m, nil
		}
		m.out = msg.out
		m.guessIdx = 0
		m.turn = m.eng.Session().TurnCount()
		if msg.out.IsGuessPhase && len(msg.out.Guesses) > 0 {
			m.phase = phaseGuessing
		} else {
			m.phase = phaseAsking
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m playModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.eng.Reset()
		m.phase = phaseThinking
		m.out = nil
		m.err = nil
		return m, m.startGame()
	}

	switch m.phase {
	case phaseAsking:
		if a, ok := keyToAnswer(key); ok {
			m.phase = phaseThinking
			return m, m.advance(a)
		}

	case phaseGuessing:
		switch key {
		case "y":
			m.phase = phaseWon
			return m, nil
		case "n":
			name := m.out.Guesses[m.guessIdx].Name
			if m.guessIdx+1 < len(m.out.Guesses) {
				// More candidates from this turn; burn through them first.
				m.eng.Session().RejectGuess(name)
				m.guessIdx++
				return m, nil
			}
			if m.out.OutOfBase {
				// Last oracle-only guess rejected; concede.
				m.eng.Session().RejectGuess(name)
				m.phase = phaseLost
				return m, nil
			}
			m.phase = phaseThinking
			return m, m.rejectGuess(name)
		}
	}
	return m, nil
}

func keyToAnswer(key string) (types.Answer, bool) {
	switch key {
	case "y":
		return types.AnswerYes, true
	case "n":
		return types.AnswerNo, true
	case "p":
		return types.AnswerProbably, true
	case "b":
		return types.AnswerProbablyNot, true
	case "d":
		return types.AnswerDontKnow, true
	}
	return "", false
}

func (m playModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n",
		titleStyle.Render("telepath"),
		faintStyle.Render(fmt.Sprintf("turn %d · %d subjects in catalogue", m.turn, m.catalog)))

	switch m.phase {
	case phaseThinking:
		fmt.Fprintf(&b, "%s reading your mind...\n", m.spin.View())

	case phaseAsking:
		fmt.Fprintf(&b, "%s\n\n", questionStyle.Render(m.out.Question))
		b.WriteString(faintStyle.Render("[y]es  [n]o  [p]robably  probably not [b]  [d]on't know"))
		b.WriteString("\n")
		if m.out.OutOfBase {
			fmt.Fprintf(&b, "\n%s\n", warnStyle.Render("(beyond my catalogue now, working from intuition)"))
		}

	case phaseGuessing:
		g := m.out.Guesses[m.guessIdx]
		fmt.Fprintf(&b, "Is it %s  %s\n\n",
			guessStyle.Render(g.Name+"?"),
			faintStyle.Render(fmt.Sprintf("(%.0f%% sure)", g.Confidence*100)))
		b.WriteString(faintStyle.Render("[y]es, that's it   [n]o, keep trying"))
		b.WriteString("\n")

	case phaseWon:
		fmt.Fprintf(&b, "%s\n\n", guessStyle.Render("Got it!"))
		b.WriteString(faintStyle.Render("[r]estart  [q]uit"))
		b.WriteString("\n")

	case phaseLost:
		b.WriteString("You win, I'm out of ideas.\n\n")
		b.WriteString(faintStyle.Render("[r]estart  [q]uit"))
		b.WriteString("\n")

	case phaseFailed:
		fmt.Fprintf(&b, "%s %v\n\n", warnStyle.Render("error:"), m.err)
		b.WriteString(faintStyle.Render("[r]estart  [q]uit"))
		b.WriteString("\n")
	}

	if m.out != nil && len(m.out.Traits) > 0 {
		b.WriteString("\n" + faintStyle.Render("confirmed so far") + "\n")
		for _, t := range m.out.Traits {
			b.WriteString(traitStyle.Render(fmt.Sprintf("  %s = %s", t.Key, t.Value)) + "\n")
		}
	}
	return b.String()
}
