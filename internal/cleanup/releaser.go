package cleanup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

// Releaser は登録されたポートをアロケータに返却します。
type Releaser struct {
	releaser PortReleaser
	logger   logger.Logger

	mu      sync.Mutex
	targets map[string]CleanupTarget
	timers  map[string]*time.Timer
}

// NewReleaser は新しい Releaser を作成します。
func NewReleaser(releaser PortReleaser, logger logger.Logger) *Releaser {
	return &Releaser{
		releaser: releaser,
		logger:   logger,
		targets:  make(map[string]CleanupTarget),
		timers:   make(map[string]*time.Timer),
	}
}

// RegisterTarget は解放対象を登録します。
func (r *Releaser) RegisterTarget(ctx context.Context, target CleanupTarget) error {
	if target.ID == "" {
		return fmt.Errorf("クリーンアップ対象の ID が空です")
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[target.ID]; exists {
		return fmt.Errorf("クリーンアップ対象は既に登録されています: %s", target.ID)
	}
	r.targets[target.ID] = target

	r.logger.Debug(ctx, "クリーンアップ対象を登録しました",
		types.Field{Key: "id", Value: target.ID},
		types.Field{Key: "ports", Value: target.Ports})
	return nil
}

// UnregisterTarget はポートを解放せずに登録を取り消します。
func (r *Releaser) UnregisterTarget(ctx context.Context, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[targetID]; !exists {
		return fmt.Errorf("クリーンアップ対象が見つかりません: %s", targetID)
	}
	delete(r.targets, targetID)
	r.stopTimerLocked(targetID)
	return nil
}

// ExecuteCleanup は対象のポートを解放し、登録を取り消します。
func (r *Releaser) ExecuteCleanup(ctx context.Context, targetID string) error {
	r.mu.Lock()
	target, exists := r.targets[targetID]
	if exists {
		delete(r.targets, targetID)
		r.stopTimerLocked(targetID)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("クリーンアップ対象が見つかりません: %s", targetID)
	}

	for _, port := range target.Ports {
		r.releaser.ReleasePort(port)
	}
	r.logger.Info(ctx, "ポートを解放しました",
		types.Field{Key: "id", Value: target.ID},
		types.Field{Key: "ports", Value: target.Ports})
	return nil
}

// ExecuteAllCleanup は登録されたすべての対象を解放します。
func (r *Releaser) ExecuteAllCleanup(ctx context.Context) error {
	var errs error
	for _, target := range r.ListTargets(ctx) {
		errs = multierr.Append(errs, r.ExecuteCleanup(ctx, target.ID))
	}
	return errs
}

// ScheduleCleanup は delay 経過後に対象を解放します。
func (r *Releaser) ScheduleCleanup(ctx context.Context, targetID string, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[targetID]; !exists {
		return fmt.Errorf("クリーンアップ対象が見つかりません: %s", targetID)
	}

	r.stopTimerLocked(targetID)
	r.timers[targetID] = time.AfterFunc(delay, func() {
		if err := r.ExecuteCleanup(ctx, targetID); err != nil {
			r.logger.Debug(ctx, "スケジュールされたクリーンアップをスキップしました",
				types.Field{Key: "id", Value: targetID})
		}
	})
	return nil
}

// ListTargets は登録されている対象を ID 順に返します。
func (r *Releaser) ListTargets(ctx context.Context) []CleanupTarget {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets := make([]CleanupTarget, 0, len(r.targets))
	for _, target := range r.targets {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].ID < targets[j].ID
	})
	return targets
}

func (r *Releaser) stopTimerLocked(targetID string) {
	if timer, ok := r.timers[targetID]; ok {
		timer.Stop()
		delete(r.timers, targetID)
	}
}
