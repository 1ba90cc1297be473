package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"Datametry/internal/config"
	"Datametry/internal/database/dbtest"
	"Datametry/internal/model"
	"Datametry/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/goleak"

	. "github.com/smartystreets/goconvey/convey"
)

// flakyMessages 前 failures 次调用返回错误，第 panicAt 次调用 panic
type flakyMessages struct {
	repository.MessageRepository
	calls    atomic.Int64
	failures int64
	panicAt  int64
}

func (f *flakyMessages) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n := f.calls.Add(1)
	if n == f.panicAt {
		panic("boom")
	}
	if n <= f.failures {
		return 0, errors.New("store down")
	}
	return 0, nil
}

func TestRetentionSweep(t *testing.T) {
	Convey("RetentionSweeper.Sweep", t, func() {
		ctx := context.Background()
		logger, _ := test.NewNullLogger()
		now := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
		db := dbtest.NewSQLite(t)
		msgRepo := repository.NewMessageRepository(db)
		playerRepo := repository.NewPlayerRepository(db)
		itemRepo := repository.NewItemRepository(db)
		cfg := config.RetentionConfig{Window: 72 * time.Hour, Interval: time.Minute}

		_, err := msgRepo.SaveMessage(ctx, &model.Player{Nickname: strPtr("old")}, "stale", now.Add(-73*time.Hour))
		So(err, ShouldBeNil)
		_, err = msgRepo.SaveMessage(ctx, &model.Player{Nickname: strPtr("fresh")}, "recent", now.Add(-time.Hour))
		So(err, ShouldBeNil)
		So(itemRepo.SaveObservation(ctx, &model.ItemObservation{Timestamp: now.Add(-48 * time.Hour), Item: strPtr("Diamond")}), ShouldBeNil)

		Convey("deletes messages older than the window and keeps newer ones", func() {
			s := NewRetentionSweeper(msgRepo, playerRepo, itemRepo, cfg, 0, logger)
			res, err := s.Sweep(ctx, now)
			So(err, ShouldBeNil)
			So(res, ShouldResemble, SweepResult{Messages: 1})

			var left []model.Message
			So(db.Find(&left).Error, ShouldBeNil)
			So(left, ShouldHaveLength, 1)
			So(left[0].Text, ShouldEqual, "recent")

			var items int64
			So(db.Model(&model.ItemObservation{}).Count(&items).Error, ShouldBeNil)
			So(items, ShouldEqual, 1)
		})

		Convey("optionally prunes orphaned players and expires items", func() {
			cfg.PrunePlayers = true
			s := NewRetentionSweeper(msgRepo, playerRepo, itemRepo, cfg, 24*time.Hour, logger)
			res, err := s.Sweep(ctx, now)
			So(err, ShouldBeNil)
			So(res, ShouldResemble, SweepResult{Messages: 1, Players: 1, Items: 1})

			_, err = playerRepo.GetPlayerByNickname(ctx, "old")
			So(err, ShouldNotBeNil)
			_, err = playerRepo.GetPlayerByNickname(ctx, "fresh")
			So(err, ShouldBeNil)
		})

		Convey("a failing step does not stop the others", func() {
			cfg.PrunePlayers = true
			flaky := &flakyMessages{failures: 1}
			s := NewRetentionSweeper(flaky, playerRepo, itemRepo, cfg, 24*time.Hour, logger)
			res, err := s.Sweep(ctx, now)
			So(err, ShouldNotBeNil)
			So(res.Items, ShouldEqual, 1)
		})
	})
}

func TestRetentionRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("RetentionSweeper.Run keeps going after failures and stops on cancel", t, func() {
		logger, hook := test.NewNullLogger()
		flaky := &flakyMessages{failures: 1, panicAt: 2}
		s := NewRetentionSweeper(flaky, nil, nil, config.RetentionConfig{
			Window:   time.Hour,
			Interval: time.Millisecond,
		}, 0, logger)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		deadline := time.Now().Add(5 * time.Second)
		for flaky.calls.Load() < 4 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		cancel()

		var err error
		select {
		case err = <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
		So(err, ShouldBeNil)
		So(flaky.calls.Load(), ShouldBeGreaterThanOrEqualTo, 4)

		var warned, panicked bool
		for _, e := range hook.AllEntries() {
			switch e.Level {
			case logrus.WarnLevel:
				warned = true
			case logrus.ErrorLevel:
				panicked = true
			}
		}
		So(warned, ShouldBeTrue)
		So(panicked, ShouldBeTrue)
	})
}
