package tasks

import (
	"sync"
	"time"
)

// Status is the polled view of one background task. Progress 100 is
// terminal for both success and failure; a failure carries an "error" key in
// the result rather than a separate status enum.
type Status struct {
	Status   string         `json:"status"`
	Progress int            `json:"progress"`
	Result   map[string]any `json:"result"`
}

// Done reports whether the task reached a terminal state.
func (s Status) Done() bool { return s.Progress >= 100 }

// Failed reports whether the terminal result carries an error.
func (s Status) Failed() bool {
	_, ok := s.Result["error"]
	return s.Done() && ok
}

// Evaluation is a completed model evaluation with its provenance.
type Evaluation struct {
	TaskID      string         `json:"task_id"`
	CompletedAt time.Time      `json:"completed_at"`
	Metrics     map[string]any `json:"metrics"`
}

// Registry tracks the progress of long-running train/evaluate tasks. Each
// entry has a single writer (the owning task) and any number of pollers; ids
// are unique per submission and never reused. Entries are retained for the
// life of the process so completed runs stay auditable.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]Status
	latest *Evaluation
	now    func() time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: map[string]Status{}, now: time.Now}
}

// Update records the task's current status and progress. A terminal update
// whose result contains an "accuracy" metric becomes the latest evaluation.
func (r *Registry) Update(taskID, status string, progress int, result map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[taskID] = Status{Status: status, Progress: progress, Result: result}
	if progress >= 100 && result != nil {
		if _, ok := result["accuracy"]; ok {
			r.latest = &Evaluation{TaskID: taskID, CompletedAt: r.now(), Metrics: result}
		}
	}
}

// Get returns the status of a task and whether it exists.
func (r *Registry) Get(taskID string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tasks[taskID]
	return st, ok
}

// LatestEvaluation returns the most recent completed evaluation, or nil.
func (r *Registry) LatestEvaluation() *Evaluation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil
	}
	cp := *r.latest
	return &cp
}

// Completed returns every task that reached a terminal state.
func (r *Registry) Completed() map[string]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Status)
	for id, st := range r.tasks {
		if st.Done() {
			out[id] = st
		}
	}
	return out
}
