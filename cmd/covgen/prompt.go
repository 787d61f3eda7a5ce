package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"covgen/internal/registry"
	"covgen/internal/settings"
	"covgen/internal/snapshot"
	"covgen/internal/validate"
)

// question is one form field.
type question struct {
	key    string
	prompt string
	value  string
}

// Keys of the per-parameter fields; the full key is "<parameter>/<field>".
const (
	fieldInput = "input"
	fieldBins  = "bins"
	fieldRange = "range"
	fieldName  = "bin_name"

	generationsKey = "generations"
)

// formQuestions asks for the first override record of every parameter the
// settings do not exclude, then for the generation selection. Current
// snapshot values are the starting answers.
func formQuestions(reg *registry.Registry, st *settings.Settings, snap *snapshot.Snapshot) []question {
	var qs []question
	for _, p := range reg.Parameters() {
		if st.IsExcluded(p) {
			continue
		}
		var first snapshot.Input
		if pi := snap.Parameters[p]; !pi.UseDefault && len(pi.Inputs) > 0 {
			first = pi.Inputs[0]
		}
		allowed := validate.DescribeAllowed(reg, p)
		qs = append(qs,
			question{p + "/" + fieldInput, fmt.Sprintf("%s domain, allowed %s (blank = table defaults)", p, allowed), first.Input},
			question{p + "/" + fieldBins, p + " bin count (optional)", first.Bins},
			question{p + "/" + fieldRange, p + " split width (optional)", first.Range},
			question{p + "/" + fieldName, p + " bin name (optional)", first.BinName},
		)
	}
	var selected []string
	for _, g := range reg.Generations() {
		if snap.SelectedGenerations == nil || snap.SelectedGenerations[g] {
			selected = append(selected, g)
		}
	}
	qs = append(qs, question{
		generationsKey,
		fmt.Sprintf("generations to emit, comma separated (of %s)", strings.Join(reg.Generations(), ", ")),
		strings.Join(selected, ", "),
	})
	return qs
}

// applyAnswers writes prompt answers back into snap. Only the first record
// of a parameter is replaced; later records are kept.
func applyAnswers(snap *snapshot.Snapshot, reg *registry.Registry, answers map[string]string) {
	if snap.Parameters == nil {
		snap.Parameters = make(map[string]snapshot.ParameterInputs)
	}
	for _, p := range reg.Parameters() {
		input, asked := answers[p+"/"+fieldInput]
		if !asked {
			continue
		}
		pi := snap.Parameters[p]
		rec := snapshot.Input{
			Input:   strings.TrimSpace(input),
			Bins:    strings.TrimSpace(answers[p+"/"+fieldBins]),
			Range:   strings.TrimSpace(answers[p+"/"+fieldRange]),
			BinName: strings.TrimSpace(answers[p+"/"+fieldName]),
		}
		pi.UseDefault = rec.Input == "" && len(pi.Inputs) <= 1
		if len(pi.Inputs) == 0 {
			pi.Inputs = []snapshot.Input{rec}
		} else {
			pi.Inputs[0] = rec
		}
		snap.Parameters[p] = pi
	}

	gens, asked := answers[generationsKey]
	if !asked {
		return
	}
	picked := make(map[string]bool)
	for _, g := range strings.Split(gens, ",") {
		if g = strings.TrimSpace(g); g != "" {
			picked[g] = true
		}
	}
	snap.SelectedGenerations = make(map[string]bool)
	for _, g := range reg.Generations() {
		snap.SelectedGenerations[g] = len(picked) == 0 || picked[g]
	}
}

// ---------------------------------------------------------------------------
// TUI prompt helpers
// ---------------------------------------------------------------------------

// promptModel is a bubbletea model that asks one question at a time.
type promptModel struct {
	questions []question
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newPromptModel(questions []question) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.prompt
		ti.CharLimit = 512
		ti.SetValue(q.value)
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyShiftTab:
			if m.idx > 0 {
				m.inputs[m.idx].Blur()
				m.idx--
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("[%d/%d] %s: %s\n", m.idx+1, len(m.questions), q.prompt, m.inputs[m.idx].View())
}

// answers returns the current values keyed by question key.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		out[q.key] = m.inputs[i].Value()
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by question key.
func promptQuestions(questions []question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	p := tea.NewProgram(newPromptModel(questions))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	return final.answers(), nil
}
