// Package main is the operator CLI for administrator maintenance:
// hashing passwords, resetting and verifying stored passwords and checking
// the database.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/ReportDesk/internal/auth"
	"github.com/atinyakov/ReportDesk/internal/config"
	"github.com/atinyakov/ReportDesk/internal/db"
	"github.com/atinyakov/ReportDesk/internal/models"
	"github.com/atinyakov/ReportDesk/internal/repository"
	"github.com/atinyakov/ReportDesk/internal/service"
	"golang.org/x/term"
)

const usage = `usage: adminctl [-d dsn] <command> [args]

commands:
  hash [password]                    print a bcrypt hash
  set-password <username> [password] overwrite the stored hash and re-verify it
  verify <username> [password]       check a password against the stored hash
  check                              ping the database and print record counts
`

// passwords is the subset of the auth service used by the CLI.
type passwords interface {
	SetPassword(ctx context.Context, username, password string) (bool, error)
	VerifyPassword(ctx context.Context, username, password string) (bool, error)
}

type counter interface {
	Count(ctx context.Context) (int64, error)
}

type adminLookup interface {
	counter
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// backend is what the database backed commands need.
type backend struct {
	passwords passwords
	admins    adminLookup
	reports   counter
	close     func() error
}

type cli struct {
	out        io.Writer
	errOut     io.Writer
	readSecret func(prompt string) (string, error)
	connect    func(ctx context.Context, dsn string) (*backend, error)
	seedAdmin  string
}

func main() {
	options, err := config.ParseArgs(nil, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	c := &cli{
		out:        os.Stdout,
		errOut:     os.Stderr,
		readSecret: promptSecret(os.Stdin, os.Stderr),
		connect:    connectPostgres,
		seedAdmin:  options.SeedAdminUsername,
	}
	os.Exit(c.run(context.Background(), os.Args[1:], options.DatabaseDSN))
}

// run executes one command and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string, dsn string) int {
	fs := flag.NewFlagSet("adminctl", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	fs.Usage = func() { fmt.Fprint(c.errOut, usage) }
	fs.StringVar(&dsn, "d", dsn, "database DSN")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(c.errOut, usage)
		return 2
	}
	cmd, rest := rest[0], rest[1:]

	var err error
	switch cmd {
	case "hash":
		err = c.hash(rest)
	case "set-password", "verify", "check":
		err = c.withBackend(ctx, dsn, func(b *backend) error {
			switch cmd {
			case "set-password":
				return c.setPassword(ctx, b, rest)
			case "verify":
				return c.verify(ctx, b, rest)
			default:
				return c.check(ctx, b)
			}
		})
	default:
		fmt.Fprintf(c.errOut, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if errors.Is(err, errUsage) {
		fmt.Fprint(c.errOut, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintln(c.errOut, "error:", err)
		return 1
	}
	return 0
}

var (
	errUsage    = errors.New("usage")
	errMismatch = errors.New("password does not match")
)

func (c *cli) withBackend(ctx context.Context, dsn string, fn func(*backend) error) error {
	if dsn == "" {
		return errors.New("database DSN is not set (use -d or DATABASE_URL)")
	}
	b, err := c.connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = b.close() }()
	return fn(b)
}

// password returns args[i] or asks for it.
func (c *cli) password(args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	return c.readSecret("Password: ")
}

func (c *cli) hash(args []string) error {
	if len(args) > 1 {
		return errUsage
	}
	pw, err := c.password(args, 0)
	if err != nil {
		return err
	}
	h, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, h)
	return nil
}

func (c *cli) setPassword(ctx context.Context, b *backend, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	username := args[0]
	pw, err := c.password(args, 1)
	if err != nil {
		return err
	}

	ok, err := b.passwords.SetPassword(ctx, username, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "password updated for %s\n", username)
	if !ok {
		fmt.Fprintln(c.out, "verification: FAILED")
		return errMismatch
	}
	fmt.Fprintln(c.out, "verification: OK")
	return nil
}

func (c *cli) verify(ctx context.Context, b *backend, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	username := args[0]
	pw, err := c.password(args, 1)
	if err != nil {
		return err
	}

	ok, err := b.passwords.VerifyPassword(ctx, username, pw)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(c.out, "password for %s: MISMATCH\n", username)
		return errMismatch
	}
	fmt.Fprintf(c.out, "password for %s: OK\n", username)
	return nil
}

func (c *cli) check(ctx context.Context, b *backend) error {
	reports, err := b.reports.Count(ctx)
	if err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	fmt.Fprintf(c.out, "reports: %d\n", reports)

	admins, err := b.admins.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	fmt.Fprintf(c.out, "admins: %d\n", admins)

	_, err = b.admins.GetByUsername(ctx, c.seedAdmin)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		fmt.Fprintf(c.out, "default admin %q: missing\n", c.seedAdmin)
	case err != nil:
		return fmt.Errorf("lookup default admin: %w", err)
	default:
		fmt.Fprintf(c.out, "default admin %q: present\n", c.seedAdmin)
	}
	return nil
}

func connectPostgres(ctx context.Context, dsn string) (*backend, error) {
	sqlDB, err := db.InitPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	admins := repository.NewPostgresAdminRepository(sqlDB)
	return &backend{
		// Token issuing is not needed for password maintenance.
		passwords: service.NewAuthService(admins, nil),
		admins:    admins,
		reports:   repository.NewPostgresReportRepository(sqlDB),
		close:     sqlDB.Close,
	}, nil
}

// promptSecret reads without echo from a terminal and falls back to a
// plain line read when input is piped.
func promptSecret(in *os.File, prompt io.Writer) func(string) (string, error) {
	reader := bufio.NewReader(in)
	return func(label string) (string, error) {
		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			fmt.Fprint(prompt, label)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(prompt)
			if err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return string(b), nil
		}
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
