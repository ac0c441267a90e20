package main

import (
	"fmt"
	"time"

	"github.com/desertthunder/loopauth/internal/server"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/desertthunder/loopauth/internal/ui"
)

// redirectLogs sends log output to a file while the TUI owns the terminal. The returned func restores the logger.
func (r *Runner) redirectLogs() (func(), error) {
	fileLogger, err := shared.NewFileLogger("./tmp/loopauth-tui.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	previous := r.logger
	r.SetLogger(fileLogger)
	return func() { r.SetLogger(previous) }, nil
}

// waitInteractive shows the waiting screen until the flow delivers, times out or the user quits.
func (r *Runner) waitInteractive(flow *server.Flow, authURL string, timeout time.Duration) (string, error) {
	return ui.Run(ui.Options{
		AppName: r.config.OAuth.AppName,
		AuthURL: authURL,
		Port:    flow.Port(),
		Done:    flow.Done(),
		Timeout: timeout,
		Open:    r.openURL,
	})
}
