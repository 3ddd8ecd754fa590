package backup_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/storepulse/internal/adapters/backup"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeTables struct {
	names []string
	err   error
}

func (f fakeTables) Tables(context.Context) ([]string, error) {
	return f.names, f.err
}

type dumpCall struct {
	name    string
	args    []string
	options string
	mode    os.FileMode
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []dumpCall
	fail  map[string]error
}

func (r *fakeRunner) Run(_ context.Context, name string, args []string, stdout io.Writer) error {
	call := dumpCall{name: name, args: args}
	for _, a := range args {
		if path, ok := strings.CutPrefix(a, "--defaults-file="); ok {
			if b, err := os.ReadFile(path); err == nil {
				call.options = string(b)
			}
			if fi, err := os.Stat(path); err == nil {
				call.mode = fi.Mode().Perm()
			}
		}
	}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	table := args[len(args)-1]
	if err := r.fail[table]; err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "-- dump of %s\n", table)
	return err
}

type fakeUploader struct {
	mu   sync.Mutex
	keys map[string]string
}

func (u *fakeUploader) Upload(_ context.Context, key string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.keys == nil {
		u.keys = map[string]string{}
	}
	u.keys[key] = string(b)
	return nil
}

func leftoverOptionFiles(root string) []string {
	matches, _ := filepath.Glob(filepath.Join(root, ".mysql-login-*.cnf"))
	return matches
}

func TestDumper(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, time.February, 15, 9, 30, 0, 0, time.UTC)
	const dsn = "app:s3cret@tcp(db.internal:3307)/shop"

	Convey("Given a dumper over two tables", t, func() {
		root := t.TempDir()
		runner := &fakeRunner{}
		d, err := backup.NewDumper("mysql", dsn, fakeTables{names: []string{"carts", "orders"}},
			backup.WithRoot(root), backup.WithRunner(runner), backup.WithBinary("/opt/mysqldump"))
		So(err, ShouldBeNil)

		Convey("The stamp directory is <year>/<MonDD_HAM>", func() {
			So(d.Dir(at), ShouldEqual, filepath.Join(root, "2024", "Feb15_9AM"))
		})

		Convey("Run writes one file per table", func() {
			So(d.Run(ctx, at), ShouldBeNil)

			for _, table := range []string{"carts", "orders"} {
				b, err := os.ReadFile(filepath.Join(d.Dir(at), table+".sql"))
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "-- dump of "+table+"\n")
			}

			So(len(runner.calls), ShouldEqual, 2)
			call := runner.calls[0]
			So(call.name, ShouldEqual, "/opt/mysqldump")
			So(call.args[0], ShouldStartWith, "--defaults-file=")
			So(call.args[1:5], ShouldResemble, []string{"-h", "db.internal", "-P", "3307"})
			So(call.args, ShouldContain, "--skip-column-statistics")
			So(call.args, ShouldContain, "--no-tablespaces")
			So(call.args, ShouldContain, "--routines")
			So(call.args, ShouldContain, "--events")
			So(call.args, ShouldContain, "--triggers")
			So(call.args[len(call.args)-2:], ShouldResemble, []string{"shop", "carts"})

			Convey("Credentials go through a private option file that is removed afterwards", func() {
				So(call.options, ShouldEqual, "[client]\nuser=app\npassword=s3cret\n")
				So(call.mode, ShouldEqual, os.FileMode(0o600))
				for _, a := range call.args {
					So(a, ShouldNotContainSubstring, "s3cret")
				}
				So(leftoverOptionFiles(root), ShouldBeEmpty)
			})

			Convey("A second run for the same stamp is skipped", func() {
				err := d.Run(ctx, at)
				So(errors.Is(err, backup.ErrAlreadyExists), ShouldBeTrue)
				So(len(runner.calls), ShouldEqual, 2)
			})
		})

		Convey("A failing table does not stop the others", func() {
			runner.fail = map[string]error{"carts": errors.New("exit status 2")}
			err := d.Run(ctx, at)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "dump carts")

			_, statErr := os.Stat(filepath.Join(d.Dir(at), "orders.sql"))
			So(statErr, ShouldBeNil)
			So(leftoverOptionFiles(root), ShouldBeEmpty)
		})
	})

	Convey("Given a table lister that fails", t, func() {
		root := t.TempDir()
		d, err := backup.NewDumper("mysql", dsn, fakeTables{err: errors.New("connection refused")},
			backup.WithRoot(root), backup.WithRunner(&fakeRunner{}))
		So(err, ShouldBeNil)

		So(d.Run(ctx, at), ShouldNotBeNil)

		Convey("No stamp directory is left behind to block the retry", func() {
			_, statErr := os.Stat(d.Dir(at))
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})

	Convey("Given a table name with a path separator", t, func() {
		root := t.TempDir()
		runner := &fakeRunner{}
		d, err := backup.NewDumper("mysql", dsn, fakeTables{names: []string{"../escape"}},
			backup.WithRoot(root), backup.WithRunner(runner))
		So(err, ShouldBeNil)

		err = d.Run(ctx, at)
		So(errors.Is(err, backup.ErrInvalidTable), ShouldBeTrue)
		So(runner.calls, ShouldBeEmpty)
	})

	Convey("Given an uploader", t, func() {
		root := t.TempDir()
		up := &fakeUploader{}
		d, err := backup.NewDumper("mysql", dsn, fakeTables{names: []string{"profiles"}},
			backup.WithRoot(root), backup.WithRunner(&fakeRunner{}), backup.WithUploader(up))
		So(err, ShouldBeNil)

		So(d.Run(ctx, at), ShouldBeNil)
		So(up.keys, ShouldResemble, map[string]string{"2024/Feb15_9AM/profiles.sql": "-- dump of profiles\n"})
	})

	Convey("Given a non-MySQL backend", t, func() {
		_, err := backup.NewDumper("postgres", "postgres://localhost/shop", fakeTables{})
		So(errors.Is(err, backup.ErrBackupUnsupported), ShouldBeTrue)
	})

	Convey("Given a DSN without a database", t, func() {
		_, err := backup.NewDumper("mysql", "app:pw@tcp(localhost:3306)/", fakeTables{})
		So(err, ShouldNotBeNil)
	})
}
