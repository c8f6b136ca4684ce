package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fdg312/meal-planner/internal/planner"
)

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl *planner.Controller, exporter Exporter) error {
	p := tea.NewProgram(New(ctx, ctrl, exporter, time.Now), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
