package worker

import (
	"log/slog"

	"github.com/cradoe/lenda/internal/helper"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/cradoe/lenda/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          repository.Database
	Helper      *helper.HelperRepository
	Logger      *slog.Logger
}

// ledgerAuditGroupID is used for workers that append account-log entries
// whenever the ledger commits a balance mutation.
const ledgerAuditGroupID = "ledger-audit-group"

// Our workers typically need access to the database and the kafka event
// stream. Worker-specific dependencies can be passed as arguments to the
// worker.
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Helper:      wk.Helper,
		Logger:      wk.Logger,
	}
}
