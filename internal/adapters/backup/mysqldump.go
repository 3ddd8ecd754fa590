package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/okian/storepulse/internal/adapters/repository"
	"github.com/okian/storepulse/pkg/logger"
)

const (
	yearLayout  = "2006"
	stampLayout = "Jan02_3PM"

	defaultBinary = "/usr/local/bin/mysqldump"
	defaultRoot   = "./backups"
)

// dumpFlags are passed to every mysqldump invocation after the connection flags.
var dumpFlags = []string{ //nolint:gochecknoglobals // fixed flag set
	"--skip-column-statistics",
	"--no-tablespaces",
	"--routines",
	"--events",
	"--triggers",
}

// TableLister lists the tables to dump.
type TableLister interface {
	Tables(ctx context.Context) ([]string, error)
}

// Runner executes a program, streaming its standard output to stdout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// Uploader stores a finished dump under key.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Dumper writes one mysqldump file per table under
// <root>/<YYYY>/<Jan02_3PM>/.
type Dumper struct {
	conn     *mysql.Config
	host     string
	port     string
	tables   TableLister
	binary   string
	root     string
	runner   Runner
	uploader Uploader
	logger   logger.Logger
}

// NewDumper builds a Dumper for the database behind dsn. Only the MySQL
// backend can be dumped.
func NewDumper(backend, dsn string, tables TableLister, opts ...DumperOption) (*Dumper, error) {
	b, err := repository.ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	if b != repository.MySQL {
		return nil, fmt.Errorf("%w: %s", ErrBackupUnsupported, b)
	}
	conn, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if conn.DBName == "" {
		return nil, errors.New("parse dsn: database name is required")
	}

	d := &Dumper{
		conn:   conn,
		tables: tables,
		binary: defaultBinary,
		root:   defaultRoot,
		runner: execRunner{},
		logger: logger.Get().Named("mysqldump"),
	}
	if conn.Net != "unix" {
		host, port, err := net.SplitHostPort(conn.Addr)
		if err != nil {
			host, port = conn.Addr, "3306"
		}
		d.host, d.port = host, port
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dir returns the directory a run stamped with at writes to.
func (d *Dumper) Dir(at time.Time) string {
	return filepath.Join(d.root, at.Format(yearLayout), at.Format(stampLayout))
}

// Run dumps every table. It returns ErrAlreadyExists without touching
// anything when the stamp directory is present. A table that fails to dump
// does not stop the others; all failures are joined in the result.
func (d *Dumper) Run(ctx context.Context, at time.Time) error {
	dir := d.Dir(at)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dir, err)
	}

	tables, err := d.tables.Tables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	d.logger.Info(ctx, "backup directory created", logger.String("dir", dir), logger.Int("tables", len(tables)))

	optionFile, err := d.writeOptionFile()
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(optionFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn(ctx, "failed to remove option file", logger.Error(err))
		}
	}()

	var errs []error
	for _, table := range tables {
		if err := d.dumpTable(ctx, optionFile, dir, table); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeOptionFile stores the credentials in a 0600 client option file so
// they never appear on the command line.
func (d *Dumper) writeOptionFile() (string, error) {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", d.root, err)
	}
	f, err := os.CreateTemp(d.root, ".mysql-login-*.cnf")
	if err != nil {
		return "", fmt.Errorf("create option file: %w", err)
	}
	name := f.Name()

	content := fmt.Sprintf("[client]\nuser=%s\npassword=%s\n", d.conn.User, d.conn.Passwd)
	if d.conn.Net == "unix" {
		content += fmt.Sprintf("socket=%s\n", d.conn.Addr)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("write option file: %w", err)
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("chmod option file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close option file: %w", err)
	}
	return name, nil
}

func (d *Dumper) args(optionFile, table string) []string {
	args := []string{"--defaults-file=" + optionFile}
	if d.host != "" {
		args = append(args, "-h", d.host, "-P", d.port)
	}
	args = append(args, dumpFlags...)
	return append(args, d.conn.DBName, table)
}

func (d *Dumper) dumpTable(ctx context.Context, optionFile, dir, table string) error {
	if table == "" || table == "." || table == ".." || strings.ContainsAny(table, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	target := filepath.Join(dir, table+".sql")

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	runErr := d.runner.Run(ctx, d.binary, d.args(optionFile, table), f)
	closeErr := f.Close()
	if runErr != nil {
		d.logger.Error(ctx, "table dump failed", logger.String("table", table), logger.Error(runErr))
		return fmt.Errorf("dump %s: %w", table, runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", target, closeErr)
	}

	if d.uploader != nil {
		if err := d.upload(ctx, target); err != nil {
			d.logger.Error(ctx, "dump upload failed", logger.String("table", table), logger.Error(err))
			return err
		}
	}
	return nil
}

func (d *Dumper) upload(ctx context.Context, target string) error {
	rel, err := filepath.Rel(d.root, target)
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	f, err := os.Open(target) //nolint:gosec // path built from the backup root
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	defer func() { _ = f.Close() }()

	if err := d.uploader.Upload(ctx, filepath.ToSlash(rel), f); err != nil {
		return fmt.Errorf("upload %s: %w", rel, err)
	}
	return nil
}
