package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/application/services"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
)

// progressBuffer decouples the download workers from the render loop; a
// full buffer briefly blocks a worker, it never drops an event.
const progressBuffer = 128

// RunDashboard mirrors the given categories while rendering a live terminal
// dashboard. It returns the same per-category reports a plain run would.
// Quitting the dashboard cancels the run; reports then cover whatever
// finished before the cancellation.
func RunDashboard(ctx context.Context, syncService *services.SyncService, categories []domain.Category) ([]services.CategoryReport, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressCh := make(chan services.ProgressEvent, progressBuffer)
	doneCh := make(chan []services.CategoryReport, 1)

	go func() {
		reports := syncService.SyncAll(runCtx, categories, func(event services.ProgressEvent) {
			progressCh <- event
		})
		close(progressCh)
		doneCh <- reports
	}()

	model := newDashboardModel(categories, progressCh, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen())

	_, runErr := program.Run()

	// The producer goroutine may still be mid-run when the UI exits early;
	// draining until close lets it finish and deliver the reports.
	cancel()
	for range progressCh {
	}
	reports := <-doneCh

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return reports, fmt.Errorf("dashboard failed: %w", runErr)
	}
	return reports, nil
}

// scopeProgress is the dashboard's view of one category being mirrored
type scopeProgress struct {
	category   domain.Category
	phase      scopePhase
	page       int
	collected  int
	total      int
	downloaded int
	present    int
	failed     int
	skipped    int
	last       string
	err        error
}

type scopePhase int

const (
	phaseWaiting scopePhase = iota
	phaseListing
	phaseDownloading
	phaseDone
	phaseFailed
)

// dashboardModel holds the state for the Bubble Tea dashboard
type dashboardModel struct {
	scopes       []scopeProgress
	index        map[string]int
	progress     <-chan services.ProgressEvent
	cancel       context.CancelFunc
	start        time.Time
	now          time.Time
	finished     bool
	stopping     bool
	windowWidth  int
	windowHeight int
}

// newDashboardModel creates a new dashboard model
func newDashboardModel(categories []domain.Category, progress <-chan services.ProgressEvent, cancel context.CancelFunc) dashboardModel {
	scopes := make([]scopeProgress, len(categories))
	index := make(map[string]int, len(categories))
	for i, category := range categories {
		scopes[i] = scopeProgress{category: category}
		index[category.Value()] = i
	}

	now := time.Now()
	return dashboardModel{
		scopes:   scopes,
		index:    index,
		progress: progress,
		cancel:   cancel,
		start:    now,
		now:      now,
	}
}

// Init implements the Bubble Tea init method
func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForProgress(m.progress),
	)
}

// Update implements the Bubble Tea update method
func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.stopping = true
			m.cancel()
			return m, tea.Quit
		}

	case tickMsg:
		m.now = time.Time(msg)
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case progressMsg:
		m.apply(services.ProgressEvent(msg))
		return m, waitForProgress(m.progress)

	case streamClosedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one progress event into the matching scope row
func (m *dashboardModel) apply(event services.ProgressEvent) {
	i, ok := m.index[event.Scope.Value()]
	if !ok {
		return
	}
	scope := &m.scopes[i]

	switch event.Kind {
	case services.ProgressPage:
		scope.phase = phaseListing
		scope.page = event.Page
		scope.collected = event.Collected
		scope.total = event.Total

	case services.ProgressDownload:
		scope.phase = phaseDownloading
		if event.Outcome == nil {
			return
		}
		scope.last = event.Outcome.Identity().String()
		switch event.Outcome.Status() {
		case domain.StatusDownloaded:
			scope.downloaded++
		case domain.StatusAlreadyPresent:
			scope.present++
		case domain.StatusFailed:
			scope.failed++
		}

	case services.ProgressScopeDone:
		scope.phase = phaseDone
		if event.Batch != nil {
			scope.downloaded = event.Batch.Downloaded
			scope.present = event.Batch.Present
			scope.failed = event.Batch.Failed
			scope.skipped = event.Batch.Skipped
		}

	case services.ProgressScopeFailed:
		scope.phase = phaseFailed
		scope.err = event.Err
	}
}

// View implements the Bubble Tea view method
func (m dashboardModel) View() string {
	header := m.renderHeader()
	table := m.renderScopeTable()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, table, footer)
}

// renderHeader renders the dashboard header
func (m dashboardModel) renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Render("📦 Dify Marketplace Mirror")

	var packages, fetched int
	for _, scope := range m.scopes {
		packages += scope.downloaded + scope.present + scope.failed + scope.skipped
		fetched += scope.downloaded
	}
	runInfo := fmt.Sprintf("Categories: %d | Packages: %d (%d new) | %s",
		len(m.scopes), packages, fetched, m.now.Sub(m.start).Round(time.Second))

	status := "LIVE"
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	if m.stopping {
		status = "STOPPING"
		statusStyle = statusStyle.Foreground(lipgloss.Color("196"))
	} else if m.finished {
		status = "DONE"
	}

	line := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		"  ",
		runInfo,
		"  ",
		statusStyle.Render(status),
	)

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Render("────────────────────────────────────────────────────────────")

	return lipgloss.JoinVertical(lipgloss.Left, line, divider)
}

// renderScopeTable renders one row per category
func (m dashboardModel) renderScopeTable() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Render(fmt.Sprintf("%-16s │ %-12s │ %-14s │ %-22s │ %s",
			"CATEGORY", "PHASE", "LISTING", "PACKAGES", "LAST"))

	// Width left for the LAST column once the fixed columns are drawn.
	lastWidth := 40
	if m.windowWidth > 0 {
		lastWidth = m.windowWidth - 78
		if lastWidth < 16 {
			lastWidth = 16
		}
	}

	rows := []string{header}
	for _, scope := range m.scopes {
		listing := ""
		if scope.total > 0 || scope.collected > 0 {
			listing = fmt.Sprintf("p%d %d/%d", scope.page, scope.collected, scope.total)
		}

		packages := fmt.Sprintf("↓%d =%d ✗%d s%d",
			scope.downloaded, scope.present, scope.failed, scope.skipped)

		last := scope.last
		if scope.phase == phaseFailed && scope.err != nil {
			last = scope.err.Error()
		}

		row := fmt.Sprintf("%-16s │ %-12s │ %-14s │ %-22s │ %s",
			truncateString(scope.category.Value(), 16),
			m.phaseLabel(scope.phase),
			listing,
			packages,
			truncateString(last, lastWidth),
		)
		rows = append(rows, m.phaseStyle(scope.phase).Render(row))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// phaseLabel returns the display name of a scope phase
func (m dashboardModel) phaseLabel(phase scopePhase) string {
	switch phase {
	case phaseListing:
		return "listing"
	case phaseDownloading:
		return "downloading"
	case phaseDone:
		return "done"
	case phaseFailed:
		return "failed"
	default:
		return "waiting"
	}
}

// phaseStyle returns the row style for a scope phase
func (m dashboardModel) phaseStyle(phase scopePhase) lipgloss.Style {
	switch phase {
	case phaseDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	case phaseFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	case phaseWaiting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	default:
		return lipgloss.NewStyle()
	}
}

// renderFooter renders the control instructions footer
func (m dashboardModel) renderFooter() string {
	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Render("────────────────────────────────────────────────────────────")

	controls := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("Controls: [q] Cancel and quit")

	return lipgloss.JoinVertical(lipgloss.Left, divider, controls)
}

// tickMsg is sent every refresh interval
type tickMsg time.Time

// tickCmd creates a tick command
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// progressMsg carries one mirror progress event into the UI
type progressMsg services.ProgressEvent

// streamClosedMsg is sent when the mirror run has finished
type streamClosedMsg struct{}

// waitForProgress subscribes to the next progress event
func waitForProgress(ch <-chan services.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return progressMsg(event)
	}
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
