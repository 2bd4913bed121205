package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/playrise/questengine/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID     string
	UserID      *int64
	QuestID     string
	Action      string
	Request     interface{}
	Response    interface{}
	SettleError string
	IP          string
	DurationMs  int
}

// Service logs audit entries asynchronously in batches. Settlement
// failures land here with SettleError set, which is what the operator
// re-settlement job scans for.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AuditLog
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async DB write.
func (svc *Service) Log(entry Entry) {
	reqJSON, _ := json.Marshal(entry.Request)
	respJSON, _ := json.Marshal(entry.Response)
	record := &model.AuditLog{
		TraceID:     entry.TraceID,
		UserID:      entry.UserID,
		QuestID:     entry.QuestID,
		Action:      entry.Action,
		Request:     datatypes.JSON(reqJSON),
		Response:    datatypes.JSON(respJSON),
		SettleError: entry.SettleError,
		IP:          entry.IP,
		DurationMs:  entry.DurationMs,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// FailedSettlements returns audit rows recording settlements that
// failed after the status transition committed, newest first.
func (svc *Service) FailedSettlements(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.AuditLog
	err := svc.db.WithContext(ctx).
		Where("settle_error <> ''").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
