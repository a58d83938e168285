package service

import "lending-recon/pkg/logger"

// ScheduleRegenerator is the external amortization collaborator. The
// executor calls it whenever a reconciliation changes a loan's
// outstanding capital; the schedule math itself lives outside this
// service.
type ScheduleRegenerator interface {
	Regenerate(loanID int64) error
}

// LoggingScheduleRegenerator records regeneration requests without
// performing them; the default wiring until the schedule service is
// attached.
type LoggingScheduleRegenerator struct{}

func (LoggingScheduleRegenerator) Regenerate(loanID int64) error {
	logger.GetLogger().WithField("loan_id", loanID).Info("Amortization schedule regeneration requested")
	return nil
}
