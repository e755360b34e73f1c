// ABOUTME: Interactive TUI wizard for connecting a SocialConnect account.
// ABOUTME: 3-step bubbletea model collecting API URL, username, and password.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/connect/internal/config"
	"github.com/2389-research/connect/internal/models"
)

// DefaultAPIURL is the default SocialConnect API endpoint.
const DefaultAPIURL = config.DefaultAPIBaseURL

// Step represents the current wizard step.
type Step int

const (
	StepAPIURL Step = iota
	StepUsername
	StepPassword
	StepValidating
	StepDone
	StepFailed
)

// validationResultMsg carries the result of an async login attempt.
type validationResultMsg struct {
	login *models.LoginResponse
	err   error
}

// ValidateFn is the function signature for credential validation.
type ValidateFn func(ctx context.Context, apiURL, username, password string) (*models.LoginResponse, error)

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [3]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	login         *models.LoginResponse
	validationErr error
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling the API URL and
// username from existing config. The password is never pre-filled.
func NewSetupModel(apiURL, username string) SetupModel {
	urlInput := textinput.New()
	urlInput.Placeholder = DefaultAPIURL
	urlInput.Focus()
	urlInput.Width = 50
	if apiURL != "" {
		urlInput.SetValue(apiURL)
	}

	userInput := textinput.New()
	userInput.Placeholder = "username or email"
	userInput.Width = 50
	if username != "" {
		userInput.SetValue(username)
	}

	passInput := textinput.New()
	passInput.Placeholder = "password"
	passInput.EchoMode = textinput.EchoPassword
	passInput.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:       StepAPIURL,
		inputs:     [3]textinput.Model{urlInput, userInput, passInput},
		spinner:    s,
		validateFn: ValidateLogin,
		cancelCtx:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepAPIURL, StepUsername, StepPassword:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.login = msg.login
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)

		if m.step == StepAPIURL {
			val := strings.TrimSpace(m.inputs[0].Value())
			if val == "" {
				m.inputs[0].SetValue(DefaultAPIURL)
			} else {
				m.inputs[0].SetValue(strings.TrimRight(val, "/"))
			}
		}

		// Don't advance on empty username or password
		if m.step == StepUsername && strings.TrimSpace(m.inputs[1].Value()) == "" {
			return m, nil
		}
		if m.step == StepPassword && m.inputs[2].Value() == "" {
			return m, nil
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepAPIURL:
			m.step = StepUsername
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepUsername:
			m.step = StepPassword
			m.inputs[2].Focus()
			return m, textinput.Blink
		case StepPassword:
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
	}

	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	apiURL := m.inputs[0].Value()
	username := strings.TrimSpace(m.inputs[1].Value())
	password := m.inputs[2].Value()
	fn := m.validateFn
	return func() tea.Msg {
		login, err := fn(ctx, apiURL, username, password)
		return validationResultMsg{login: login, err: err}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   SOCIALCONNECT"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Log in to your SocialConnect account.\n\n")

	switch m.step {
	case StepAPIURL:
		b.WriteString(stepStyle.Render("Step 1 of 3: API URL"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepUsername:
		b.WriteString(fmt.Sprintf("  API URL: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: Username"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepPassword:
		b.WriteString(fmt.Sprintf("  API URL:  %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Username: %s\n\n", m.inputs[1].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Password"))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case StepValidating:
		b.WriteString(fmt.Sprintf("  API URL:  %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Username: %s\n\n", m.inputs[1].Value()))
		b.WriteString(m.spinner.View())
		b.WriteString(" Logging in...")
		b.WriteString("\n")

	case StepDone:
		if m.login != nil {
			b.WriteString(successStyle.Render(fmt.Sprintf("✓ Logged in as %s", m.login.User.Username)))
		} else {
			b.WriteString(successStyle.Render("✓ Saved (not logged in)"))
		}
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Login failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered API URL and username.
func (m SetupModel) Result() (apiURL, username string) {
	return m.inputs[0].Value(), strings.TrimSpace(m.inputs[1].Value())
}

// Login returns the successful login response, or nil after "save anyway".
func (m SetupModel) Login() *models.LoginResponse {
	return m.login
}

// ShouldSave returns true if the wizard completed (via login success or
// "save anyway") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
