package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/elefant-ai/p2vn/internal/engine"
	"github.com/elefant-ai/p2vn/pkg/events"
	"github.com/elefant-ai/p2vn/pkg/state"
)

const PlaceHolderText = "Say something..."

// Messages forwarded from the engine goroutine. Suspension requests carry
// a snapshot of the player state taken on the engine goroutine, so the UI
// never touches live state that tool dispatch may be mutating.
type engineEventMsg struct{ event events.Event }
type inputRequestMsg struct {
	resolve func(string)
	state   stateSnapshot
}
type continueRequestMsg struct {
	resolve func()
	state   stateSnapshot
}
type turnErrorMsg struct{ err *engine.TurnError }
type engineDoneMsg struct{ err error }
type progressTickMsg struct{}

// stateSnapshot is the meta panel's immutable view of player progress.
type stateSnapshot struct {
	objectives []string
	notes      []string
	inventory  []string
	affinity   map[string]int
}

// snapshotPlayerState copies the fields the meta panel renders. Must be
// called on the engine goroutine (inside a suspension handler, before the
// engine blocks) so the reads cannot race tool dispatch.
func snapshotPlayerState(ps *state.PlayerState) stateSnapshot {
	snap := stateSnapshot{
		objectives: append([]string(nil), ps.Dossier.Objectives...),
		notes:      append([]string(nil), ps.Dossier.Notes...),
		affinity:   make(map[string]int, len(ps.Affinity)),
	}
	for _, it := range ps.Inventory {
		snap.inventory = append(snap.inventory, it.Name)
	}
	for id, v := range ps.Affinity {
		snap.affinity[id] = v
	}
	return snap
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narrationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	continueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

// transcriptEntry is one rendered unit of the scene so the log can be
// reflowed on resize and exported as plain text.
type transcriptEntry struct {
	speaker string // "" for narration and system lines
	text    string
	style   lipgloss.Style
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	title string

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	transcript []transcriptEntry
	scene      *events.SceneLoaded
	stateSnap  stateSnapshot

	// Suspension resolvers handed over by the engine. At most one is set
	// at a time.
	pendingContinue func()
	pendingInput    func(string)

	thinking     bool
	progressTick int
	ended        bool
	err          error

	showQuitModal bool
}

func NewConsoleUI(title string) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		title:        title,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeChatContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			return m.handleEnter()
		case tea.KeySpace:
			// Space also advances dialogue, like any visual novel.
			if m.pendingContinue != nil {
				return m.ackContinue()
			}
		}

	case engineEventMsg:
		m.applyEvent(msg.event)
		m.writeChatContent()

	case continueRequestMsg:
		m.pendingContinue = msg.resolve
		m.stateSnap = msg.state
		m.thinking = false
		m.writeMetadata()
		m.writeChatContent()

	case inputRequestMsg:
		m.pendingInput = msg.resolve
		m.stateSnap = msg.state
		m.thinking = false
		m.textarea.Focus()
		m.writeMetadata()
		m.writeChatContent()
		return m, textarea.Blink

	case turnErrorMsg:
		m.appendLine("", "Something went wrong talking to the story. Press Enter to try again.", errorStyle)
		// Prefill the failed input so Enter re-submits it.
		m.textarea.SetValue(msg.err.Input)
		m.writeChatContent()

	case engineDoneMsg:
		m.ended = true
		m.err = msg.err
		if msg.err != nil {
			m.appendLine("", "Engine stopped: "+msg.err.Error(), errorStyle)
		} else {
			m.appendLine("", "The story has ended. Press Ctrl+C to exit.", continueStyle)
		}
		m.writeChatContent()

	case progressTickMsg:
		if m.thinking {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) handleEnter() (tea.Model, tea.Cmd) {
	if m.pendingContinue != nil {
		return m.ackContinue()
	}

	if m.pendingInput == nil {
		return *m, nil
	}

	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return *m, nil
	}
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.textarea.Reset()
	m.textarea.Blur()
	m.appendLine("You", input, userStyle)

	resolve := m.pendingInput
	m.pendingInput = nil
	m.thinking = true
	m.progressTick = 0
	resolve(input)

	m.writeChatContent()
	return *m, progressTick()
}

func (m *ConsoleUI) ackContinue() (tea.Model, tea.Cmd) {
	resolve := m.pendingContinue
	m.pendingContinue = nil
	resolve()
	m.writeChatContent()
	return *m, nil
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/help":
		m.appendLine("", strings.TrimSpace(`
Commands:
- /help - Show this help
- /export - Copy the transcript to the clipboard
- Enter - Send / advance dialogue
- Ctrl+C - Quit`), promptStyle)

	case "/export":
		if err := clipboard.WriteAll(m.plainTranscript()); err != nil {
			m.appendLine("", "Export failed: "+err.Error(), errorStyle)
		} else {
			m.appendLine("", "Transcript copied to clipboard.", continueStyle)
		}
	}

	m.textarea.Reset()
	m.writeChatContent()
	return m, nil
}

// applyEvent folds one engine event into the transcript.
func (m *ConsoleUI) applyEvent(ev events.Event) {
	switch ev := ev.(type) {
	case events.SceneLoaded:
		m.scene = &ev
		m.appendLine("", "— "+ev.Title+" —", titleStyle)

	case events.Typewriter:
		m.appendLine("", ev.Text, narrationStyle)

	case events.DialogueChunk:
		m.appendLine(ev.SpeakerName, ev.Text, speakerStyle)

	case events.AIThinking:
		m.thinking = true

	case events.SceneTransition:
		m.appendLine("", strings.Repeat("·", 24), separatorStyle)

	case events.SceneEnded:
		line := "Scene over (" + ev.Result + ")"
		if ev.Summary != "" {
			line += ": " + ev.Summary
		}
		m.appendLine("", line, continueStyle)
	}
}

func (m *ConsoleUI) appendLine(speaker, text string, style lipgloss.Style) {
	m.transcript = append(m.transcript, transcriptEntry{speaker: speaker, text: text, style: style})
}

func (m *ConsoleUI) plainTranscript() string {
	var sb strings.Builder
	for _, e := range m.transcript {
		if e.speaker != "" {
			sb.WriteString(e.speaker + ": ")
		}
		sb.WriteString(e.text + "\n")
	}
	return sb.String()
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// writeChatContent reflows the whole transcript for the current width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 10 {
		chatWidth = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.title)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	for _, e := range m.transcript {
		if e.speaker != "" {
			prefix := e.style.Render(e.speaker+":") + " "
			content.WriteString(prefix + wordwrap.String(e.text, chatWidth-len(e.speaker)-2) + "\n\n")
			continue
		}
		content.WriteString(e.style.Render(wordwrap.String(e.text, chatWidth)) + "\n\n")
	}

	if m.thinking {
		content.WriteString(m.renderProgressBar())
	}
	if m.pendingContinue != nil {
		content.WriteString(continueStyle.Render("▼ press Enter"))
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

// writeMetadata rebuilds the side panel from the last snapshot. Safe to
// call at any time (resize, ticks); only the snapshot is read.
func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SCENE") + "\n\n")

	if m.scene != nil {
		content.WriteString(m.scene.Title + "\n\n")
		content.WriteString("Cast:\n")
		for _, p := range m.scene.Participants {
			content.WriteString("• " + p.Name + "\n")
		}
		content.WriteString("\n")
	}

	snap := m.stateSnap

	if len(snap.objectives) > 0 {
		content.WriteString("Objectives:\n")
		for _, o := range snap.objectives {
			content.WriteString("• " + o + "\n")
		}
		content.WriteString("\n")
	}
	if len(snap.notes) > 0 {
		content.WriteString("Notes:\n")
		for _, n := range snap.notes {
			content.WriteString("• " + n + "\n")
		}
		content.WriteString("\n")
	}
	if len(snap.inventory) > 0 {
		content.WriteString("Inventory:\n")
		for _, name := range snap.inventory {
			content.WriteString("• " + name + "\n")
		}
		content.WriteString("\n")
	}
	if len(snap.affinity) > 0 && m.scene != nil {
		content.WriteString("Affinity:\n")
		for _, p := range m.scene.Participants {
			if v, ok := snap.affinity[p.ID]; ok {
				content.WriteString(fmt.Sprintf("• %s: %+d\n", p.Name, v))
			}
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /export: Copy log\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.pendingInput != nil {
					m.textarea.Focus()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Leave the story? Progress is saved automatically.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep playing"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
