package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"Datametry/internal/database/dbtest"
	"Datametry/internal/interfaces"
	"Datametry/internal/model"

	"github.com/DATA-DOG/go-sqlmock"

	. "github.com/smartystreets/goconvey/convey"
)

func strPtr(s string) *string { return &s }

func TestPlayerRepository(t *testing.T) {
	Convey("PlayerRepository", t, func() {
		ctx := context.Background()
		db := dbtest.NewSQLite(t)
		repo := NewPlayerRepository(db)

		Convey("upsert keeps the id and overwrites the prefix fields", func() {
			id1, err := repo.UpsertPlayer(ctx, &model.Player{Nickname: strPtr("Steve"), Privilege: strPtr("Admin")})
			So(err, ShouldBeNil)
			So(id1, ShouldBeGreaterThan, 0)

			id2, err := repo.UpsertPlayer(ctx, &model.Player{Nickname: strPtr("Steve"), Clan: strPtr("ABC")})
			So(err, ShouldBeNil)
			So(id2, ShouldEqual, id1)

			p, err := repo.GetPlayerByNickname(ctx, "Steve")
			So(err, ShouldBeNil)
			So(p.Privilege, ShouldBeNil)
			So(*p.Clan, ShouldEqual, "ABC")

			var n int64
			So(db.Model(&model.Player{}).Count(&n).Error, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("players without a nickname are always new rows", func() {
			id1, err := repo.UpsertPlayer(ctx, &model.Player{})
			So(err, ShouldBeNil)
			id2, err := repo.UpsertPlayer(ctx, &model.Player{})
			So(err, ShouldBeNil)
			So(id2, ShouldNotEqual, id1)
		})

		Convey("prune removes only players without messages", func() {
			msgs := NewMessageRepository(db)
			_, err := msgs.SaveMessage(ctx, &model.Player{Nickname: strPtr("talker")}, "hi", time.Now().UTC())
			So(err, ShouldBeNil)
			_, err = repo.UpsertPlayer(ctx, &model.Player{Nickname: strPtr("silent")})
			So(err, ShouldBeNil)

			n, err := repo.PrunePlayersWithoutMessages(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			_, err = repo.GetPlayerByNickname(ctx, "talker")
			So(err, ShouldBeNil)
			_, err = repo.GetPlayerByNickname(ctx, "silent")
			So(err, ShouldNotBeNil)
		})

		Convey("prune locks candidates on postgres and re-checks them when deleting", func() {
			mockDB, mock := dbtest.NewMock(t)
			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT "id" FROM "players" WHERE NOT EXISTS \(SELECT 1 FROM "messages" WHERE messages\.player_id = players\.id\) FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
			// player 2 received a message while the candidates were being locked
			mock.ExpectExec(`DELETE FROM "players" WHERE id IN \(\$1,\$2\) AND NOT EXISTS \(SELECT 1 FROM "messages" WHERE messages\.player_id = players\.id\)`).
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			n, err := NewPlayerRepository(mockDB).PrunePlayersWithoutMessages(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("prune rolls back when the delete fails", func() {
			mockDB, mock := dbtest.NewMock(t)
			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT "id" FROM "players" .* FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
			mock.ExpectExec(`DELETE FROM "players"`).WillReturnError(errors.New("deadlock detected"))
			mock.ExpectRollback()

			_, err := NewPlayerRepository(mockDB).PrunePlayersWithoutMessages(ctx)
			So(err, ShouldNotBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})
	})
}

func TestMessageRepository(t *testing.T) {
	Convey("MessageRepository", t, func() {
		ctx := context.Background()
		db := dbtest.NewSQLite(t)
		repo := NewMessageRepository(db)
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		save := func(nick *string, text string, at time.Time) {
			_, err := repo.SaveMessage(ctx, &model.Player{Nickname: nick}, text, at)
			So(err, ShouldBeNil)
		}

		Convey("search applies window, term and nickname", func() {
			save(strPtr("Steve"), "old Diamond", now.Add(-2*time.Hour))
			save(strPtr("Steve"), "selling DIAMOND cheap", now.Add(-30*time.Minute))
			save(strPtr("Alex"), "diamonds here", now.Add(-10*time.Minute))
			save(strPtr("Alex"), "nothing", now.Add(-5*time.Minute))
			save(nil, "anon diamond", now.Add(-time.Minute))

			views, err := repo.SearchMessages(ctx, MessageFilter{Since: now.Add(-time.Hour), Term: "diamond"})
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 3)
			So(views[0].Text, ShouldEqual, "selling DIAMOND cheap")
			So(*views[0].Nickname, ShouldEqual, "Steve")
			So(views[1].Text, ShouldEqual, "diamonds here")
			So(views[2].Nickname, ShouldBeNil)

			views, err = repo.SearchMessages(ctx, MessageFilter{Since: now.Add(-time.Hour), Term: "diamond", Nickname: strPtr("Alex")})
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 1)
			So(views[0].Text, ShouldEqual, "diamonds here")
		})

		Convey("like wildcards in the term match literally", func() {
			save(strPtr("Steve"), "100% sure", now)
			save(strPtr("Steve"), "100 sure", now)
			save(strPtr("Steve"), "a_b", now)
			save(strPtr("Steve"), "axb", now)

			views, err := repo.SearchMessages(ctx, MessageFilter{Since: now.Add(-time.Hour), Term: "0%"})
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 1)

			views, err = repo.SearchMessages(ctx, MessageFilter{Since: now.Add(-time.Hour), Term: "a_b"})
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 1)
			So(views[0].Text, ShouldEqual, "a_b")
		})

		Convey("delete removes strictly older messages", func() {
			save(strPtr("Steve"), "old", now.Add(-73*time.Hour))
			save(strPtr("Steve"), "new", now.Add(-time.Hour))

			n, err := repo.DeleteMessagesBefore(ctx, now.Add(-72*time.Hour))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			var left []model.Message
			So(db.Find(&left).Error, ShouldBeNil)
			So(left, ShouldHaveLength, 1)
			So(left[0].Text, ShouldEqual, "new")
		})
	})
}

func TestAggregateRepository(t *testing.T) {
	Convey("AggregateRepository", t, func() {
		ctx := context.Background()
		db := dbtest.NewSQLite(t)
		repo := NewAggregateRepository(db)
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		Convey("later snapshot replaces the earlier one", func() {
			So(repo.UpsertAggregates(ctx, []*model.ItemAggregate{
				{Timestamp: at, Item: "Diamond", Median: 10, TheMostSeller: "Steve"},
			}), ShouldBeNil)
			So(repo.UpsertAggregates(ctx, []*model.ItemAggregate{
				{Timestamp: at.Add(time.Hour), Item: "Diamond", Median: 12, TheMostSeller: "Alex"},
			}), ShouldBeNil)

			rows, err := repo.ListAggregates(ctx, AggregateFilter{})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Median, ShouldEqual, 12)
			So(rows[0].TheMostSeller, ShouldEqual, "Alex")

			rows, err = repo.ListAggregates(ctx, AggregateFilter{Seller: strPtr("Steve")})
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("one invalid row rolls back the whole batch", func() {
			err := repo.UpsertAggregates(ctx, []*model.ItemAggregate{
				{Timestamp: at, Item: "Diamond", Median: 10},
				{Timestamp: at, Item: "Iron", Median: -1},
			})
			So(errors.Is(err, model.ErrInvalidAggregate), ShouldBeTrue)

			rows, err := repo.ListAggregates(ctx, AggregateFilter{})
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})
	})
}

func TestItemRepository(t *testing.T) {
	Convey("ItemRepository", t, func() {
		ctx := context.Background()
		db := dbtest.NewSQLite(t)
		repo := NewItemRepository(db)
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		for _, o := range []*model.ItemObservation{
			{Timestamp: at.Add(-time.Hour), Item: strPtr("Diamond"), Seller: strPtr("Steve")},
			{Timestamp: at, Item: strPtr("Diamond"), Seller: strPtr("Alex")},
			{Timestamp: at, Item: strPtr("Iron"), Seller: strPtr("Steve")},
		} {
			So(repo.SaveObservation(ctx, o), ShouldBeNil)
		}

		rows, err := repo.ListObservations(ctx, interfaces.ItemFilter{Seller: strPtr("Steve")})
		So(err, ShouldBeNil)
		So(rows, ShouldHaveLength, 2)

		n, err := repo.DeleteObservationsBefore(ctx, at)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 1)

		rows, err = repo.ListObservations(ctx, interfaces.ItemFilter{Item: strPtr("Diamond")})
		So(err, ShouldBeNil)
		So(rows, ShouldHaveLength, 1)
		So(*rows[0].Seller, ShouldEqual, "Alex")
	})
}
