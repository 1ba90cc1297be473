package interfaces

import (
	"context"
	"time"
)

// WorkerRun 一次机器人进程启动记录
type WorkerRun struct {
	RunID     string    `json:"run_id"`
	Username  string    `json:"username"`
	Slot      int       `json:"slot"`
	Zone      int       `json:"zone"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// WorkerLauncher 启动外部机器人进程
type WorkerLauncher interface {
	Launch(ctx context.Context) ([]WorkerRun, error)
}
