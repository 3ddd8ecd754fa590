package repository

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDialect(t *testing.T) {
	Convey("Given the three dialects", t, func() {
		my := dialect{backend: MySQL, schema: "ylift_api"}
		pg := dialect{backend: Postgres}
		lite := dialect{backend: SQLite}

		Convey("Identifiers are quoted per backend", func() {
			So(my.table("cartItems"), ShouldEqual, "`ylift_api`.`cartItems`")
			So(pg.table("cartItems"), ShouldEqual, `"cartItems"`)
			So(lite.col("c", "updatedAt"), ShouldEqual, `c."updatedAt"`)
			So(pg.quote(`we"ird`), ShouldEqual, `"we""ird"`)
		})

		Convey("Placeholders are rebound only for postgres", func() {
			q := "SELECT 1 WHERE a = ? AND b BETWEEN ? AND ?"
			So(pg.rebind(q), ShouldEqual, "SELECT 1 WHERE a = $1 AND b BETWEEN $2 AND $3")
			So(my.rebind(q), ShouldEqual, q)
			So(lite.rebind(q), ShouldEqual, q)
		})

		Convey("Time functions differ", func() {
			So(my.greatest("a", "b"), ShouldEqual, "GREATEST(a, b)")
			So(lite.greatest("a", "b"), ShouldEqual, "MAX(a, b)")
			So(pg.timeLiteral(time.Unix(0, 0)), ShouldEqual, "CAST('1970-01-01 00:00:00' AS TIMESTAMP)")
			So(my.timeLiteral(time.Unix(0, 0)), ShouldEqual, "'1970-01-01 00:00:00'")
			So(lite.epoch("x"), ShouldEqual, "CAST(strftime('%s', x) AS INTEGER)")
		})

		Convey("Ranges are half-open", func() {
			So(lite.between("x"), ShouldEqual, "x >= ? AND x < ?")
			So(pg.rebind(pg.between("x")), ShouldEqual, "x >= CAST($1 AS TIMESTAMP) AND x < CAST($2 AS TIMESTAMP)")
		})
	})

	Convey("Backends parse with aliases", t, func() {
		b, err := ParseBackend("PostgreSQL")
		So(err, ShouldBeNil)
		So(b, ShouldEqual, Postgres)

		b, err = ParseBackend(" mysql ")
		So(err, ShouldBeNil)
		So(b, ShouldEqual, MySQL)

		_, err = ParseBackend("mongo")
		So(err, ShouldNotBeNil)
	})
}
