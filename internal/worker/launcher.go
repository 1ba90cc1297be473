// Package worker 启动外部机器人进程并把输出转发到日志
package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"Datametry/internal/config"
	"Datametry/internal/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProcessLauncher 每个配置的机器人启动一个进程：command [script] <username> <slot> <zone>
type ProcessLauncher struct {
	base   context.Context // 取消时终止所有子进程
	cfg    config.WorkersConfig
	logger *logrus.Logger
	wg     sync.WaitGroup
}

var _ interfaces.WorkerLauncher = (*ProcessLauncher)(nil)

// NewProcessLauncher 创建启动器；base 取消时所有子进程被终止
func NewProcessLauncher(base context.Context, cfg config.WorkersConfig, logger *logrus.Logger) *ProcessLauncher {
	return &ProcessLauncher{base: base, cfg: cfg, logger: logger}
}

func (l *ProcessLauncher) args(bot config.BotConfig) []string {
	args := make([]string, 0, 4)
	if l.cfg.Script != "" {
		args = append(args, l.cfg.Script)
	}
	return append(args, bot.Username, strconv.Itoa(bot.Slot), strconv.Itoa(bot.Zone))
}

func (l *ProcessLauncher) dir() string {
	if l.cfg.Dir != "" {
		return l.cfg.Dir
	}
	if l.cfg.Script != "" {
		return filepath.Dir(l.cfg.Script)
	}
	return ""
}

// Launch 依次启动所有机器人；某个进程启动失败时返回已启动的记录和错误
func (l *ProcessLauncher) Launch(ctx context.Context) ([]interfaces.WorkerRun, error) {
	runs := make([]interfaces.WorkerRun, 0, len(l.cfg.Bots))
	for _, bot := range l.cfg.Bots {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		run, err := l.start(bot)
		if err != nil {
			return runs, fmt.Errorf("启动机器人%s失败: %w", bot.Username, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (l *ProcessLauncher) start(bot config.BotConfig) (interfaces.WorkerRun, error) {
	cmd := exec.CommandContext(l.base, l.cfg.Command, l.args(bot)...)
	cmd.Dir = l.dir()
	out, err := cmd.StdoutPipe()
	if err != nil {
		return interfaces.WorkerRun{}, err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return interfaces.WorkerRun{}, err
	}

	run := interfaces.WorkerRun{
		RunID:     uuid.NewString(),
		Username:  bot.Username,
		Slot:      bot.Slot,
		Zone:      bot.Zone,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now().UTC(),
	}
	entry := l.logger.WithFields(logrus.Fields{
		"bot":    bot.Username,
		"run_id": run.RunID,
	})
	entry.WithField("pid", run.PID).Info("机器人进程已启动")

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.stream(entry, out)
		if err := cmd.Wait(); err != nil {
			entry.WithError(err).Warn("机器人进程退出")
			return
		}
		entry.Info("机器人进程退出")
	}()
	return run, nil
}

// stream 逐行转发进程输出，读到 EOF 为止
func (l *ProcessLauncher) stream(entry *logrus.Entry, r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		entry.Info(sc.Text())
	}
	if err := sc.Err(); err != nil {
		entry.WithError(err).Warn("读取机器人输出失败")
	}
}

// Wait 等待所有已启动进程退出且输出读完
func (l *ProcessLauncher) Wait() {
	l.wg.Wait()
}
