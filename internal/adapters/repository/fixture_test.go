package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/storepulse/internal/adapters/repository"
	"github.com/okian/storepulse/internal/domain/calendar"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFixture(t *testing.T) {
	ctx := context.Background()
	at := func(day, hour, minute int) time.Time {
		return time.Date(2024, time.February, day, hour, minute, 0, 0, time.UTC)
	}
	fixture := repository.Fixture{
		Profiles: []repository.ProfileRow{
			{ID: 1, Email: "ann@example.com", Name: "Ann", CustomerID: "C1"},
			{ID: 2, Email: "bob@example.com", Name: "Bob"},
		},
		Carts: []repository.CartRow{
			{ID: 1, ProfileID: 1, CreatedAt: at(14, 8, 0), UpdatedAt: at(15, 9, 10)},
			{ID: 2, ProfileID: 2, CreatedAt: at(15, 7, 0), UpdatedAt: at(15, 10, 20)},
		},
		CartItems: []repository.CartItemRow{
			{ID: 1, CartID: 2, UpdatedAt: at(15, 10, 25)},
		},
		Orders: []repository.OrderRow{
			{ID: 1, ProfileID: 1, Status: "COMPLETED", Amount: 2500, CreatedAt: at(15, 9, 15), CompletedAt: at(15, 9, 30)},
			{ID: 2, ProfileID: 2, Status: "PENDING", Amount: 900, CreatedAt: at(15, 10, 30)},
		},
	}

	Convey("Given an empty SQLite store", t, func() {
		store, err := repository.Open(ctx, repository.Config{Backend: "sqlite"})
		So(err, ShouldBeNil)
		defer store.Close()

		So(store.CreateSchema(ctx), ShouldBeNil)

		Convey("CreateSchema can run twice", func() {
			So(store.CreateSchema(ctx), ShouldBeNil)
			tables, err := store.Tables(ctx)
			So(err, ShouldBeNil)
			So(tables, ShouldResemble, []string{"cartItems", "carts", "orders", "profiles"})
		})

		Convey("When a fixture is loaded", func() {
			So(fixture.Len(), ShouldEqual, 7)
			So(store.Load(ctx, fixture), ShouldBeNil)
			day := calendar.NewDate(2024, time.February, 15)

			Convey("Then the analytics queries read it back", func() {
				start, end := day.Span(time.UTC)
				carts, err := store.CartsUpdatedBetween(ctx, start, end)
				So(err, ShouldBeNil)
				So(len(carts), ShouldEqual, 2)
				So(carts[0].UpdatedAt, ShouldEqual, at(15, 9, 10))

				total, err := store.SalesSumMinorUnits(ctx, start, end)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 2500)
			})

			Convey("Then empty customer ids are stored as NULL", func() {
				var n int
				err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE customerId IS NULL`).Scan(&n)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then zero completion times are stored as NULL", func() {
				var n int
				err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE completedAt IS NULL`).Scan(&n)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then loading the same ids again rolls back", func() {
				So(store.Load(ctx, fixture), ShouldNotBeNil)
				var n int
				err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM carts`).Scan(&n)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("An empty fixture is a no-op", func() {
			So(store.Load(ctx, repository.Fixture{}), ShouldBeNil)
		})
	})
}
