package model

import "time"

// ReconcileTask tracks one task awaiting an explicit reconcile
// request, grounded on ArangoManager.h's ReconcileTasks helper
// (_taskId, _slaveId, _nextReconcile, _backoff).
type ReconcileTask struct {
	TaskID        string
	NodeID        string
	NextReconcile time.Time
	Backoff       time.Duration
}

// Position locates a task within Plan/Current by role and
// index, mirroring ArangoManager.h's _task2position
// (unordered_map<string, pair<TaskType,int>>).
type Position struct {
	Role  Role
	Index int
}
