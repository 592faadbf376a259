package worker

import (
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/lenda/internal/ledger"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/cradoe/lenda/internal/stream"
)

// AuditWorker consumes committed ledger events and appends one account-log
// entry per event. The ledger publishes after commit, so everything seen
// here documents a durable balance mutation.
func (wk *Worker) AuditWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: ledgerAuditGroupID,
		Topic:   ledger.EventsTopic,
	})

	if err != nil {
		wk.Logger.Error("Error creating audit consumer", "error", err)
		return
	}

	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			var ledgerEvent ledger.Event
			if err := json.Unmarshal(e.Value, &ledgerEvent); err != nil {
				wk.Logger.Error("Error decoding ledger event", "error", err)
				continue
			}

			wk.recordAudit(&ledgerEvent)
		case kafka.Error:
			wk.Logger.Error("Kafka error", "error", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) recordAudit(event *ledger.Event) bool {
	var description string
	switch event.Type {
	case repository.TransactionTypeFunding:
		description = "Wallet funded with " + wk.Helper.FormatAmount(event.Amount)
	case repository.TransactionTypeWithdrawal:
		description = "Wallet withdrawal of " + wk.Helper.FormatAmount(event.Amount)
	default:
		description = "Wallet transaction of " + wk.Helper.FormatAmount(event.Amount)
	}

	_, err := wk.DB.AccountLog().Insert(&repository.AccountLog{
		UserID:      event.UserID,
		Entity:      repository.AccountLogTransactionEntity,
		EntityId:    event.TransactionID,
		Description: description,
	})

	if err != nil {
		wk.Logger.Error("Error recording ledger audit", "transaction_id", event.TransactionID, "error", err)
		return false
	}

	return true
}
