package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-billing-pos/internal/models"
)

const maxRetryDelay = 5 * time.Minute

// QueueConfig tunes the reconcile worker.
type QueueConfig struct {
	MaxAttempts   int
	RetryDelay    time.Duration
	SweepInterval time.Duration
	BatchSize     int
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxAttempts:   5,
		RetryDelay:    2 * time.Second,
		SweepInterval: 30 * time.Second,
		BatchSize:     50,
	}
}

// EnqueueReconcile records that billNo needs reconciling. It must be called with the
// transaction of the mutation so the job commits (or rolls back) with it. Re-enqueueing an
// existing job resets it to pending and bumps its generation.
func EnqueueReconcile(tx *gorm.DB, billNo string, now time.Time) error {
	job := models.ReconcileJob{
		OriginalBillNo: billNo,
		Status:         models.JobPending,
		Generation:     1,
		NextAttemptAt:  now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "original_bill_no"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":          models.JobPending,
			"attempts":        0,
			"last_error":      "",
			"next_attempt_at": now,
			"generation":      gorm.Expr("generation + 1"),
			"updated_at":      now,
		}),
	}).Create(&job).Error
	if err != nil {
		return fmt.Errorf("enqueue reconcile %s: %w", billNo, err)
	}
	return nil
}

// ReconcileQueue drains reconcile_jobs in the background with bounded, backed-off retries.
type ReconcileQueue struct {
	db         *gorm.DB
	reconciler *Reconciler
	cfg        QueueConfig
	log        *zap.Logger
	now        func() time.Time

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReconcileQueue(db *gorm.DB, reconciler *Reconciler, cfg QueueConfig, log *zap.Logger) *ReconcileQueue {
	def := DefaultQueueConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &ReconcileQueue{
		db:         db,
		reconciler: reconciler,
		cfg:        cfg,
		log:        log.Named("reconcile_queue"),
		now:        time.Now,
		wake:       make(chan struct{}, 1),
	}
}

// Notify wakes the worker. It never blocks.
func (q *ReconcileQueue) Notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start replays whatever is pending and then keeps draining until Stop.
func (q *ReconcileQueue) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	q.wg.Add(1)
	go q.loop(ctx)

	q.log.Info("reconcile worker started",
		zap.Int("max_attempts", q.cfg.MaxAttempts),
		zap.Duration("sweep_interval", q.cfg.SweepInterval),
	)
}

// Stop cancels the worker and waits for it, bounded by ctx.
func (q *ReconcileQueue) Stop(ctx context.Context) error {
	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("reconcile worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ReconcileQueue) loop(ctx context.Context) {
	defer q.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-timer.C:
		}

		if _, err := q.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			q.log.Error("failed to process reconcile jobs", zap.Error(err))
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(q.nextWait(ctx))
	}
}

// nextWait sleeps until the earliest backed-off job is due, capped by the sweep interval.
func (q *ReconcileQueue) nextWait(ctx context.Context) time.Duration {
	wait := q.cfg.SweepInterval

	var job models.ReconcileJob
	err := q.db.WithContext(ctx).
		Where("status = ?", models.JobPending).
		Order("next_attempt_at ASC").
		First(&job).Error
	if err != nil {
		return wait
	}
	if until := job.NextAttemptAt.Sub(q.now()); until < wait {
		if until < 0 {
			until = 0
		}
		return until
	}
	return wait
}

// ProcessPending runs every due pending job once and reports how many succeeded.
func (q *ReconcileQueue) ProcessPending(ctx context.Context) (int, error) {
	var jobs []models.ReconcileJob
	err := q.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.JobPending, q.now()).
		Order("next_attempt_at ASC").
		Limit(q.cfg.BatchSize).
		Find(&jobs).Error
	if err != nil {
		return 0, fmt.Errorf("find pending reconcile jobs: %w", err)
	}

	done := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := q.run(ctx, job); err != nil {
			continue
		}
		done++
	}
	return done, nil
}

// run executes one job. Success deletes the row unless a newer request bumped its generation
// meanwhile; failure schedules a retry or marks the job failed.
func (q *ReconcileQueue) run(ctx context.Context, job models.ReconcileJob) error {
	runErr := q.reconciler.Reconcile(ctx, job.OriginalBillNo)
	if runErr == nil {
		err := q.db.WithContext(ctx).
			Where("id = ? AND generation = ?", job.ID, job.Generation).
			Delete(&models.ReconcileJob{}).Error
		if err != nil {
			q.log.Error("failed to clear reconcile job",
				zap.String("bill_no", job.OriginalBillNo), zap.Error(err))
		}
		return nil
	}

	attempts := job.Attempts + 1
	updates := map[string]any{
		"attempts":   attempts,
		"last_error": runErr.Error(),
		"updated_at": q.now(),
	}
	if attempts >= q.cfg.MaxAttempts {
		updates["status"] = models.JobFailed
		q.log.Error("reconcile job failed permanently",
			zap.String("bill_no", job.OriginalBillNo),
			zap.Int("attempts", attempts),
			zap.Error(runErr),
		)
	} else {
		updates["next_attempt_at"] = q.now().Add(q.backoff(attempts))
		q.log.Warn("reconcile job failed, will retry",
			zap.String("bill_no", job.OriginalBillNo),
			zap.Int("attempts", attempts),
			zap.Error(runErr),
		)
	}

	err := q.db.WithContext(ctx).Model(&models.ReconcileJob{}).
		Where("id = ? AND generation = ?", job.ID, job.Generation).
		Updates(updates).Error
	if err != nil {
		q.log.Error("failed to record reconcile failure",
			zap.String("bill_no", job.OriginalBillNo), zap.Error(err))
	}
	return runErr
}

func (q *ReconcileQueue) backoff(attempts int) time.Duration {
	d := q.cfg.RetryDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// Retry reconciles billNo immediately, regardless of any job state. The error is returned
// to the caller; on success any job for the bill is cleared.
func (q *ReconcileQueue) Retry(ctx context.Context, billNo string) error {
	if _, err := ParseBillNo(billNo); err != nil {
		return err
	}

	var job models.ReconcileJob
	err := q.db.WithContext(ctx).Where("original_bill_no = ?", billNo).First(&job).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return q.reconciler.Reconcile(ctx, billNo)
	case err != nil:
		return fmt.Errorf("load reconcile job %s: %w", billNo, err)
	}

	// a manual retry gets a fresh budget
	job.Attempts = 0
	if err := q.db.WithContext(ctx).Model(&models.ReconcileJob{}).
		Where("id = ? AND generation = ?", job.ID, job.Generation).
		Updates(map[string]any{"status": models.JobPending, "attempts": 0}).Error; err != nil {
		return fmt.Errorf("reset reconcile job %s: %w", billNo, err)
	}
	return q.run(ctx, job)
}

// Failures lists jobs that exhausted their retries.
func (q *ReconcileQueue) Failures(ctx context.Context) ([]models.ReconcileJob, error) {
	var jobs []models.ReconcileJob
	err := q.db.WithContext(ctx).
		Where("status = ?", models.JobFailed).
		Order("updated_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list failed reconcile jobs: %w", err)
	}
	return jobs, nil
}
