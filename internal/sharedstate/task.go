package sharedstate

import (
	"context"
	"fmt"

	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
)

// IntegrateTask is the unit of work queued after every shared-state
// mutating request: integrate a shard's pending changes into canonical
// state and run the narrative's reduce hook, all under the manager's
// lock. Scheduling it through the Task Runner keeps request handlers
// from blocking on the reduce step (e.g. matchmaking, which may itself
// enqueue further tasks).
type IntegrateTask struct {
	taskrunner.BaseTask
	Manager *Manager
	Shard   *Shard
	Reduce  ReduceFunc
}

func (t *IntegrateTask) Execute(ctx context.Context) error {
	return t.Manager.Integrate(ctx, t.Shard, t.Reduce)
}

func (t *IntegrateTask) String() string {
	return fmt.Sprintf("IntegrateTask[%s]", t.Manager.Name())
}
