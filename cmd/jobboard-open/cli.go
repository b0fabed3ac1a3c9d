package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"jobboard/internal/clientstore"
	"jobboard/internal/identity"
	"jobboard/internal/logging"
)

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(args, stderr)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[1] {
	case "login":
		return runLogin(ctx, args[2:], stdout, stderr)
	case "open":
		return runOpen(ctx, args[2:], stdout, stderr)
	case "logout":
		return runLogout(ctx, args[2:], stdout, stderr)
	}

	usage(args, stderr)
	return 1
}

func usage(args []string, w io.Writer) {
	name := "jobboard-open"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(w, "usage:\n")
	fmt.Fprintf(w, "  %s login --email <email> --password <password> [--server <url>] [--storage <file>] [--cache-role]\n", name)
	fmt.Fprintf(w, "  %s open [--path <entry path>] [--server <url>] [--storage <file>] [--no-cookies] [--delay <duration>]\n", name)
	fmt.Fprintf(w, "  %s logout [--server <url>] [--storage <file>]\n", name)
}

type commonFlags struct {
	server   string
	storage  string
	timeout  time.Duration
	logLevel string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.server, "server", "http://localhost:8080", "job board base url")
	fs.StringVar(&c.storage, "storage", "", "client storage file (default: user config dir)")
	fs.DurationVar(&c.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level")
}

func (c *commonFlags) open(cookies bool, stdout io.Writer) (*session, error) {
	path := c.storage
	if path == "" {
		p, err := clientstore.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("locate storage: %w", err)
		}
		path = p
	}
	return newSession(c.server, clientstore.NewFileStorage(path), cookies, c.timeout, stdout)
}

func runLogin(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	cacheRole := fs.Bool("cache-role", false, "store the role returned by login")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(stderr, "login: --email and --password are required")
		return 1
	}

	s, err := common.open(true, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	role, err := s.login(ctx, *email, *password, *cacheRole)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "signed in as %s (%s)\n", *email, role)
	return 0
}

func runOpen(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	entry := fs.String("path", "/", "entry path to open")
	noCookies := fs.Bool("no-cookies", false, "do not send stored tokens as cookies")
	delay := fs.Duration("delay", 300*time.Millisecond, "wait before the client phase evaluates")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	s, err := common.open(!*noCookies, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := logging.NewWriter(stderr, common.logLevel)

	resp, err := s.get(ctx, *entry)
	if err != nil {
		fmt.Fprintf(stderr, "open %s: %v\n", *entry, err)
		return 1
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		fmt.Fprintf(stdout, "server redirected %s -> %s\n", *entry, resp.Header.Get("Location"))
		return 0
	case resp.StatusCode != http.StatusOK:
		fmt.Fprintf(stderr, "open %s: status %d\n", *entry, resp.StatusCode)
		return 1
	}
	fmt.Fprintf(stdout, "rendered %s\n", *entry)

	current, _ := identity.DestinationForPath(*entry)
	phase := identity.ClientPhase{
		Storage:   s.store,
		Resolver:  identity.NewHTTPResolver(s.endpoint("/api/auth/me"), common.timeout),
		Navigator: s,
		Delay:     *delay,
		Logger:    logger,
	}
	out := phase.Run(ctx, current)
	switch out.State {
	case identity.StateRedirected:
		if out.Err != nil {
			fmt.Fprintln(stderr, out.Err)
			return 1
		}
	case identity.StateSuppressed:
		if errors.Is(out.Err, identity.ErrRedirectLoop) {
			fmt.Fprintf(stdout, "staying on %s\n", *entry)
		} else if out.Err != nil {
			fmt.Fprintf(stdout, "navigation cancelled: %v\n", out.Err)
		}
	}
	return 0
}

func runLogout(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	s, err := common.open(true, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := s.logout(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "signed out")
	return 0
}
