package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

const maxAlerts = 8

var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	debugColor     = lipgloss.Color("#9999ff")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#222222"))
	footerStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
)

// Dashboard - терминальный экран с сигналами, алертами и хвостом логов
type Dashboard struct {
	config  config.UIConfig
	logFile string

	mu       sync.RWMutex
	signals  map[string]*models.TradingSignal
	alerts   []models.LiquidationAlert
	logs     []string
	selected int
	detail   bool

	program *tea.Program
}

type refreshMsg struct{}

type model struct {
	d *Dashboard
}

func NewDashboard(cfg config.UIConfig, logFile string) *Dashboard {
	return &Dashboard{
		config:  cfg,
		logFile: logFile,
		signals: make(map[string]*models.TradingSignal),
		logs:    []string{"CryptoPulse started. Waiting for data..."},
	}
}

// Run блокируется, пока пользователь не выйдет или не отменится ctx
func (d *Dashboard) Run(ctx context.Context) error {
	p := tea.NewProgram(model{d: d}, tea.WithAltScreen(), tea.WithContext(ctx))
	d.mu.Lock()
	d.program = p
	d.mu.Unlock()

	go d.refreshLogs(ctx)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

func (d *Dashboard) refreshLogs(ctx context.Context) {
	rate := time.Duration(d.config.RefreshRate) * time.Millisecond
	if rate <= 0 {
		rate = time.Second
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lines, err := tailLogs(d.logFile)
			if err != nil {
				logger.Warn("failed to read log file", zap.String("path", d.logFile), zap.Error(err))
				continue
			}
			if len(lines) > 0 {
				d.mu.Lock()
				d.logs = lines
				d.mu.Unlock()
			}
			d.refresh()
		}
	}
}

func (d *Dashboard) refresh() {
	d.mu.RLock()
	p := d.program
	d.mu.RUnlock()
	if p != nil {
		p.Send(refreshMsg{})
	}
}

// UpdateSignals заменяет последний сигнал каждой пары из signals
func (d *Dashboard) UpdateSignals(signals map[string]*models.TradingSignal) {
	d.mu.Lock()
	for key, s := range signals {
		d.signals[key] = s
	}
	d.mu.Unlock()
	d.refresh()
}

// Publish сохраняет последние алерты. Реализует alert.Publisher
func (d *Dashboard) Publish(_ context.Context, event models.AlertEvent) {
	d.mu.Lock()
	alerts := make([]models.LiquidationAlert, 0, len(event.Alerts)+len(d.alerts))
	alerts = append(alerts, event.Alerts...)
	alerts = append(alerts, d.alerts...)
	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	d.alerts = alerts
	d.mu.Unlock()
	d.refresh()
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		d := m.d
		d.mu.Lock()
		defer d.mu.Unlock()

		switch key.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up":
			d.selected = max(0, d.selected-1)
		case "down":
			d.selected = max(0, min(len(d.signals)-1, d.selected+1))
		case "enter":
			d.detail = !d.detail
		}
	}
	return m, nil
}

func (m model) View() string {
	d := m.d
	d.mu.RLock()
	defer d.mu.RUnlock()

	sections := []string{
		titleStyle.Render("CryptoPulse - signals and liquidation monitor"),
		renderSignals(d.signals, d.selected, d.detail),
		renderAlerts(d.alerts),
		renderLogs(d.logs),
		footerStyle.Render("Keys: up/down select, enter details, q quit"),
	}
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func sortedKeys(signals map[string]*models.TradingSignal) []string {
	keys := make([]string, 0, len(signals))
	for k := range signals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderSignals(signals map[string]*models.TradingSignal, selected int, detail bool) string {
	var b strings.Builder
	keys := sortedKeys(signals)

	if len(keys) == 0 {
		b.WriteString("  Waiting for data...\n")
	}
	for i, key := range keys {
		s := signals[key]
		line := fmt.Sprintf("  %-22s %s %5.1f%%  price %.4f  %s",
			key, signalStyle(s.SignalType).Render(fmt.Sprintf("%-4s", s.SignalType)),
			s.Confidence, s.Price, s.Timestamp.Format("15:04:05"))
		if i == selected {
			line = selectedStyle.Render(">" + line[1:])
		}
		b.WriteString(line + "\n")

		if i == selected && detail {
			for _, r := range s.Reasons {
				b.WriteString("      - " + r + "\n")
			}
		}
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("SIGNALS"), b.String()))
}

func renderAlerts(alerts []models.LiquidationAlert) string {
	var b strings.Builder
	if len(alerts) == 0 {
		b.WriteString("  No liquidation alerts\n")
	}
	for _, a := range alerts {
		line := fmt.Sprintf("  %s %-8s %s %s %.2f (%.2f%% away, %.0f%%)",
			a.Timestamp.Format("15:04:05"), a.RiskLevel, a.Symbol, a.Zone.Side, a.Zone.Price, a.Distance, a.Zone.Confidence)
		b.WriteString(riskStyle(a.RiskLevel).Render(line) + "\n")
	}
	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("LIQUIDATION ALERTS"), b.String()))
}

func renderLogs(logs []string) string {
	var b strings.Builder
	for _, line := range logs {
		style := lipgloss.NewStyle()
		switch {
		case strings.Contains(line, "[ERROR]"):
			style = style.Foreground(errorColor)
		case strings.Contains(line, "[WARN]"):
			style = style.Foreground(warningColor)
		case strings.Contains(line, "[INFO]"):
			style = style.Foreground(successColor)
		case strings.Contains(line, "[DEBUG]"):
			style = style.Foreground(debugColor)
		}
		b.WriteString("  " + style.Render(line) + "\n")
	}
	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("LOGS"), b.String()))
}

func signalStyle(t models.SignalType) lipgloss.Style {
	switch t {
	case models.SignalBuy:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case models.SignalSell:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(warningColor)
	}
}

func riskStyle(level models.RiskLevel) lipgloss.Style {
	switch level {
	case models.RiskCritical:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	case models.RiskHigh:
		return lipgloss.NewStyle().Foreground(errorColor)
	case models.RiskMedium:
		return lipgloss.NewStyle().Foreground(warningColor)
	default:
		return lipgloss.NewStyle()
	}
}
