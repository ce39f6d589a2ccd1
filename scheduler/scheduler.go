package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cinereads/config"
	"cinereads/logger"
)

// debug模式下清理过期缓存的间隔
const debugSweepInterval = 60 * time.Second

// 将秒数转换为时间间隔
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// 验证小时和分钟是否有效，无效时回退到 04:00
func validateHourMinute(hour, minute int) (int, int) {
	const defaultHour, defaultMinute = 4, 0

	if hour < 0 || hour > 23 {
		logger.Warn("无效的小时值", "hour", hour, "default", defaultHour)
		hour = defaultHour
	}
	if minute < 0 || minute > 59 {
		logger.Warn("无效的分钟值", "minute", minute, "default", defaultMinute)
		minute = defaultMinute
	}
	return hour, minute
}

// 计算下一个指定时间点
func getNextTimePoint(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if next.Before(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Maintainer 缓存维护操作，由 cache.Cache 实现
type Maintainer interface {
	Sweep(ctx context.Context) (int, error)
	Compact(ctx context.Context) error
}

// 任务类型
type TaskType int

const (
	TaskSweep TaskType = iota
	TaskCompact
)

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	IsRunning   bool
	Description string
}

// 任务调度器
type Scheduler struct {
	cfg   *config.Config
	cache Maintainer
	tasks map[TaskType]*TaskStatus
	mutex sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// 创建新的调度器
func NewScheduler(cfg *config.Config, cache Maintainer) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:    cfg,
		cache:  cache,
		tasks:  make(map[TaskType]*TaskStatus),
		ctx:    ctx,
		cancel: cancel,
	}
}

// 启动调度器
func Start(cfg *config.Config, cache Maintainer) *Scheduler {
	scheduler := NewScheduler(cfg, cache)

	// 初始化任务
	scheduler.initTasks(time.Now())

	// 启动主循环
	scheduler.wg.Add(1)
	go scheduler.run()

	logger.Info("调度器已启动", "check_interval_sec", scheduler.checkInterval().Seconds())
	return scheduler
}

// Stop 停止主循环并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Info("调度器已停止")
}

// sweepInterval debug模式下固定为60秒
func (s *Scheduler) sweepInterval() time.Duration {
	if s.cfg.Debug.Enabled {
		return debugSweepInterval
	}
	interval := secondsToDuration(s.cfg.Cache.SweepIntervalSec)
	if interval <= 0 {
		interval = 10 * time.Minute // 默认值
	}
	return interval
}

func (s *Scheduler) checkInterval() time.Duration {
	interval := secondsToDuration(s.cfg.Scheduler.CheckIntervalSec)
	if interval <= 0 {
		interval = 60 * time.Second // 默认值
	}
	return interval
}

// 初始化任务
func (s *Scheduler) initTasks(now time.Time) {
	sweepInterval := s.sweepInterval()
	s.tasks[TaskSweep] = &TaskStatus{
		LastRun:     now,
		NextRun:     now.Add(sweepInterval),
		Description: fmt.Sprintf("清理过期缓存 (每%d秒)", int(sweepInterval.Seconds())),
	}
	if s.cfg.Debug.Enabled {
		logger.Info("Debug模式已启用", "sweep_interval_sec", sweepInterval.Seconds())
	}

	// 每天在指定时间点压缩缓存
	hour, minute := validateHourMinute(s.cfg.Scheduler.CompactHour, s.cfg.Scheduler.CompactMinute)
	nextCompact := getNextTimePoint(now, hour, minute)
	s.tasks[TaskCompact] = &TaskStatus{
		LastRun:     nextCompact.Add(-24 * time.Hour),
		NextRun:     nextCompact,
		Description: fmt.Sprintf("压缩缓存存储 (%02d:%02d)", hour, minute),
	}

	logger.Info("定时任务初始化完成", "task_count", len(s.tasks))
}

// 主循环
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.checkTasks(now)
		}
	}
}

// 检查任务
func (s *Scheduler) checkTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for taskType, status := range s.tasks {
		// 如果任务正在运行，跳过
		if status.IsRunning {
			continue
		}

		// 如果到达或超过下次运行时间，执行任务
		if !now.Before(status.NextRun) {
			status.IsRunning = true
			s.wg.Add(1)
			go s.runTask(taskType, now)
		}
	}
}

// 运行任务
func (s *Scheduler) runTask(taskType TaskType, now time.Time) {
	defer s.wg.Done()
	defer func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		status := s.tasks[taskType]
		status.IsRunning = false
		status.LastRun = now

		// 更新下次运行时间
		switch taskType {
		case TaskSweep:
			status.NextRun = now.Add(s.sweepInterval())
		case TaskCompact:
			hour, minute := validateHourMinute(s.cfg.Scheduler.CompactHour, s.cfg.Scheduler.CompactMinute)
			status.NextRun = getNextTimePoint(now.Add(time.Minute), hour, minute)
		}

		logger.Debug("任务执行完成", "task", status.Description, "next_run", status.NextRun.Format("2006-01-02 15:04:05"))
	}()

	start := time.Now()
	switch taskType {
	case TaskSweep:
		removed, err := s.cache.Sweep(s.ctx)
		if err != nil {
			logger.Error("清理过期缓存失败", "removed", removed, "error", err)
			return
		}
		if removed > 0 {
			logger.Info("已清理过期缓存", "removed", removed, "duration_ms", time.Since(start).Milliseconds())
		}
	case TaskCompact:
		logger.Info("开始压缩缓存存储")
		if err := s.cache.Compact(s.ctx); err != nil {
			logger.Error("压缩缓存存储失败", "error", err)
			return
		}
		logger.Info("缓存存储压缩完成", "duration_ms", time.Since(start).Milliseconds())
	}
}
