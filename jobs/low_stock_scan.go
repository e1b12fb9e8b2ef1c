package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pets-things/pets-things/internal/reports"
)

// TaskLowStockScan triggers the scheduled low stock sweep.
const TaskLowStockScan = "inventory:low_stock_scan"

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// LowStockLister resolves rows below their minimum quantity.
type LowStockLister interface {
	LowStock(ctx context.Context, filter reports.StockFilter) ([]reports.StockLevel, error)
}

// EmailEnqueuer submits notification emails to the queue.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// LowStockScanJob logs every stock row under its minimum and notifies
// the operations address when any are found.
type LowStockScanJob struct {
	Reports  LowStockLister
	Mailer   EmailEnqueuer
	NotifyTo string
	Logger   *slog.Logger
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(rep LowStockLister, mailer EmailEnqueuer, notifyTo string, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Reports: rep, Mailer: mailer, NotifyTo: notifyTo, Logger: logger}
}

// Handle processes low stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	rows, err := j.Reports.LowStock(ctx, reports.StockFilter{})
	if err != nil {
		j.Logger.Error("low stock scan", slog.Any("error", err))
		return err
	}
	for _, row := range rows {
		j.Logger.Warn("stock below minimum",
			slog.String("location", row.LocationName),
			slog.String("product", row.ProductName),
			slog.Int64("on_hand", row.OnHand),
			slog.Int64("min_qty", row.MinQty))
	}
	if len(rows) == 0 {
		j.Logger.Info("low stock scan clean")
		return nil
	}
	if j.Mailer != nil && j.NotifyTo != "" {
		body := fmt.Sprintf("%d stock rows are below their minimum quantity.", len(rows))
		if _, err := j.Mailer.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      j.NotifyTo,
			Subject: "Low stock alert",
			Body:    body,
		}); err != nil {
			j.Logger.Error("enqueue low stock email", slog.Any("error", err))
			return err
		}
	}
	return nil
}
