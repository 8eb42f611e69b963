package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
)

// ScheduledTask is one recurring task managed by the scheduler.
type ScheduledTask struct {
	ID       string `json:"task_id"`
	Name     string `json:"name"`
	Interval int    `json:"interval"` // seconds
	Callback string `json:"callback"`
	Enabled  bool   `json:"enabled"`
	LastRun  int64  `json:"last_run"` // unix seconds, 0 when never run
	NextRun  int64  `json:"next_run"`
	RunCount int    `json:"run_count"`
}

// ScheduleOptions configures a ScheduleTool.
type ScheduleOptions struct {
	// MaxTasks bounds the number of live tasks; 0 falls back to 100.
	MaxTasks int
	// MinInterval is the smallest accepted interval in seconds; 0 falls
	// back to 60.
	MinInterval int
	// Tick is the scheduler poll interval; 0 falls back to 1s.
	Tick time.Duration
	// Logger receives scheduler diagnostics.
	Logger logging.Logger
}

// ScheduleTool manages recurring tasks executed by named callbacks. Start
// runs the ticker goroutine; tasks whose callback is not registered are
// skipped until one appears.
type ScheduleTool struct {
	opts ScheduleOptions

	mu        sync.Mutex
	tasks     map[string]*ScheduledTask
	order     []string
	counter   int
	callbacks map[string]func(ctx context.Context) error
	running   bool
	stop      context.CancelFunc
	done      chan struct{}
	now       func() time.Time
}

// NewScheduleTool creates a ScheduleTool. Start must be called for tasks
// to actually run.
func NewScheduleTool(optFns ...func(o *ScheduleOptions)) *ScheduleTool {
	opts := ScheduleOptions{
		MaxTasks:    100,
		MinInterval: 60,
		Tick:        time.Second,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTasks <= 0 {
		opts.MaxTasks = 100
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 60
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &ScheduleTool{
		opts:      opts,
		tasks:     make(map[string]*ScheduledTask),
		callbacks: make(map[string]func(ctx context.Context) error),
		now:       time.Now,
	}
}

// Name returns the tool identifier.
func (t *ScheduleTool) Name() string { return "schedule_tool" }

// Description returns the tool description shown to the model.
func (t *ScheduleTool) Description() string {
	return "Manages recurring scheduled tasks. " +
		"Actions: create, cancel, pause, resume, list."
}

// Parameters returns the JSON schema for tool parameters.
func (t *ScheduleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"create", "cancel", "pause", "resume", "list"},
				"description": "Schedule operation to perform",
			},
			"name": map[string]any{
				"type":        "string",
				"description": "Task name for create",
			},
			"interval": map[string]any{
				"type":        "integer",
				"description": "Run interval in seconds for create (minimum 60)",
			},
			"callback": map[string]any{
				"type":        "string",
				"description": "Registered callback name for create (default: default)",
			},
			"task_id": map[string]any{
				"type":        "string",
				"description": "Task id for cancel, pause and resume",
			},
		},
	}
}

// Execute routes the call to the requested schedule operation.
func (t *ScheduleTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	switch stringParam(params, "action") {
	case "create":
		name := stringParam(params, "name")
		if name == "" {
			name = "Tugas Baru"
		}
		callback := stringParam(params, "callback")
		if callback == "" {
			callback = "default"
		}
		task, err := t.CreateTask(name, intParam(params, "interval", 60), callback)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Tugas terjadwal dibuat: %s (%s, setiap %d detik)", task.Name, task.ID, task.Interval), nil
	case "cancel":
		task, err := t.CancelTask(stringParam(params, "task_id"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Tugas '%s' dibatalkan", task.Name), nil
	case "pause":
		if err := t.PauseTask(stringParam(params, "task_id")); err != nil {
			return "", err
		}
		return "Tugas dijeda", nil
	case "resume":
		if err := t.ResumeTask(stringParam(params, "task_id")); err != nil {
			return "", err
		}
		return "Tugas dilanjutkan", nil
	case "list":
		data, err := json.Marshal(t.Tasks())
		if err != nil {
			return "", fmt.Errorf("marshal tasks: %w", err)
		}
		return string(data), nil
	default:
		return fmt.Sprintf("Schedule tool siap. Tugas terjadwal aktif: %d. Operasi: create, cancel, pause, resume, list.", t.Len()), nil
	}
}

// RegisterCallback binds a name tasks can reference to a function.
func (t *ScheduleTool) RegisterCallback(name string, fn func(ctx context.Context) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks[name] = fn
	t.opts.Logger.Info("callback registered", "name", name)
}

// CreateTask adds a recurring task.
func (t *ScheduleTool) CreateTask(name string, interval int, callback string) (*ScheduledTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.tasks) >= t.opts.MaxTasks {
		return nil, fmt.Errorf("Batas tugas tercapai (%d)", t.opts.MaxTasks)
	}
	if interval < t.opts.MinInterval {
		return nil, fmt.Errorf("Interval minimum: %d detik", t.opts.MinInterval)
	}

	t.counter++
	task := &ScheduledTask{
		ID:       fmt.Sprintf("sched_%d", t.counter),
		Name:     name,
		Interval: interval,
		Callback: callback,
		Enabled:  true,
		NextRun:  t.now().Unix() + int64(interval),
	}
	t.tasks[task.ID] = task
	t.order = append(t.order, task.ID)

	t.opts.Logger.Info("scheduled task created", "name", name, "interval_s", interval)
	copied := *task
	return &copied, nil
}

// CancelTask removes a task and returns it.
func (t *ScheduleTool) CancelTask(taskID string) (*ScheduledTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("Tugas tidak ditemukan: %s", taskID)
	}
	delete(t.tasks, taskID)
	for i, id := range t.order {
		if id == taskID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.opts.Logger.Info("scheduled task cancelled", "name", task.Name)
	copied := *task
	return &copied, nil
}

// PauseTask disables a task without removing it.
func (t *ScheduleTool) PauseTask(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return fmt.Errorf("Tugas tidak ditemukan: %s", taskID)
	}
	task.Enabled = false
	return nil
}

// ResumeTask re-enables a paused task. The next run is pushed a full
// interval out.
func (t *ScheduleTool) ResumeTask(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return fmt.Errorf("Tugas tidak ditemukan: %s", taskID)
	}
	task.Enabled = true
	task.NextRun = t.now().Unix() + int64(task.Interval)
	return nil
}

// Tasks returns all tasks in creation order.
func (t *ScheduleTool) Tasks() []ScheduledTask {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ScheduledTask, 0, len(t.order))
	for _, id := range t.order {
		if task, ok := t.tasks[id]; ok {
			out = append(out, *task)
		}
	}
	return out
}

// Len returns the number of live tasks.
func (t *ScheduleTool) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// Start launches the scheduler goroutine. It returns immediately; a second
// call while running is a no-op.
func (t *ScheduleTool) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.running = true
	t.stop = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	t.opts.Logger.Info("scheduler started")
	go func() {
		defer close(done)
		ticker := time.NewTicker(t.opts.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				t.runDue(runCtx)
			}
		}
	}()
}

// Stop halts the scheduler goroutine and waits for it to exit.
func (t *ScheduleTool) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stop := t.stop
	done := t.done
	t.mu.Unlock()

	stop()
	<-done
	t.opts.Logger.Info("scheduler stopped")
}

// runDue executes every enabled task whose time has come. The next run is
// scheduled before the callback executes, so a slow callback cannot pile
// up runs.
func (t *ScheduleTool) runDue(ctx context.Context) {
	now := t.now().Unix()

	type dueTask struct {
		id   string
		name string
		fn   func(ctx context.Context) error
	}

	t.mu.Lock()
	var due []dueTask
	for _, id := range t.order {
		task := t.tasks[id]
		if task == nil || !task.Enabled || now < task.NextRun {
			continue
		}
		task.NextRun = now + int64(task.Interval)
		fn := t.callbacks[task.Callback]
		if fn == nil {
			continue
		}
		due = append(due, dueTask{id: id, name: task.Name, fn: fn})
	}
	t.mu.Unlock()

	for _, d := range due {
		if ctx.Err() != nil {
			return
		}
		if err := d.fn(ctx); err != nil {
			t.opts.Logger.Error("scheduled task failed", "task", d.name, "error", err.Error())
			continue
		}
		t.mu.Lock()
		if task, ok := t.tasks[d.id]; ok {
			task.RunCount++
			task.LastRun = now
		}
		t.mu.Unlock()
	}
}
