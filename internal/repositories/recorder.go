package repositories

import (
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
)

// FlowRecorder writes one history row per listener run.
//
// Recording is best-effort: failures are logged as warnings and never surface to the caller.
// A nil *FlowRecorder is valid and records nothing.
type FlowRecorder struct {
	repo   *FlowRepository
	logger *log.Logger
}

// NewFlowRecorder creates a [FlowRecorder] backed by db.
func NewFlowRecorder(db *sql.DB, logger *log.Logger) *FlowRecorder {
	return &FlowRecorder{repo: NewFlowRepository(db), logger: logger}
}

// Begin records a waiting flow for port. It returns nil when the row could not be written.
func (r *FlowRecorder) Begin(port int) *models.Flow {
	if r == nil {
		return nil
	}

	flow := models.NewFlow(0, port)
	if err := r.repo.Create(flow); err != nil {
		r.logger.Warn("could not record flow", "port", port, "error", err)
		return nil
	}

	r.logger.Debug("recorded flow", "id", flow.ID(), "sequence", flow.Sequence())
	return flow
}

// Finish moves flow to status, storing a redacted copy of callbackURL.
func (r *FlowRecorder) Finish(flow *models.Flow, status models.FlowStatus, callbackURL string, err error) {
	if r == nil || flow == nil {
		return
	}

	redacted := ""
	if callbackURL != "" {
		redacted = shared.RedactURL(callbackURL)
	}

	flow.Complete(status, redacted, err)
	if err := r.repo.Update(flow); err != nil {
		r.logger.Warn("could not update flow", "id", flow.ID(), "status", status, "error", err)
	}
}
