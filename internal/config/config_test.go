package config_test

import (
	"testing"
	"time"

	"github.com/okian/storepulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBBackend, convey.ShouldEqual, "mysql")
			convey.So(cfg.BusinessTimezone, convey.ShouldEqual, "America/New_York")
			convey.So(cfg.ItemIdleThreshold(), convey.ShouldEqual, 20*time.Minute)
			convey.So(cfg.CartIdleThreshold(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.TrailingWindow(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.QueryTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.RateLimits["probability"], convey.ShouldEqual, 2)
			convey.So(cfg.BackupMinGapMin, convey.ShouldEqual, 120)
		})

		convey.Convey("Then the business timezone loads", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "America/New_York")
		})
	})
}
