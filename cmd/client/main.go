package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authflow/internal/apiclient"
	"authflow/internal/bridge"
	"authflow/internal/config"
	"authflow/internal/logging"
	"authflow/internal/session"
)

const serviceName = "authflow-client"

// usageOut receives flag usage text.
var usageOut io.Writer = os.Stderr

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "login":
		err = runLogin(ctx, cfg, args, os.Stdout)
	case "register":
		err = runRegister(ctx, cfg, args, os.Stdout)
	case "bridge":
		err = runBridge(ctx, cfg, args)
	default:
		usage()
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  login      Sign in and print the profile greeting")
	fmt.Fprintln(os.Stderr, "  register   Create an account and print the profile greeting")
	fmt.Fprintln(os.Stderr, "  bridge     Serve the session over a local websocket for a UI shell")
	os.Exit(2)
}

type commonOpts struct {
	apiURL   string
	timeout  time.Duration
	logLevel string
}

func addCommonFlags(fs *flag.FlagSet, cfg *config.ClientConfig, o *commonOpts) {
	fs.StringVar(&o.apiURL, "api-url", cfg.APIURL, "auth API base URL (AUTHFLOW_API_URL)")
	fs.DurationVar(&o.timeout, "timeout", cfg.HTTPTimeout, "per-request timeout (AUTHFLOW_HTTP_TIMEOUT)")
	fs.StringVar(&o.logLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error (LOG_LEVEL)")
}

func newFlow(o commonOpts, env string) (*session.Flow, *slog.Logger) {
	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: env,
		Level:       o.logLevel,
	})
	client := apiclient.New(o.apiURL,
		apiclient.WithLogger(logger),
		apiclient.WithTimeout(o.timeout),
	)
	return session.New(client, session.WithLogger(logger)), logger
}

type credentialOpts struct {
	commonOpts
	username string
	email    string
	password string
}

func parseCredentialFlags(name string, cfg *config.ClientConfig, args []string, needUsername bool) (credentialOpts, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(usageOut)

	var o credentialOpts
	addCommonFlags(fs, cfg, &o.commonOpts)
	if needUsername {
		fs.StringVar(&o.username, "username", "", "display name, e.g. \"Ann Lee\"")
	}
	fs.StringVar(&o.email, "email", "", "account email")
	fs.StringVar(&o.password, "password", os.Getenv("AUTHFLOW_PASSWORD"), "account password (AUTHFLOW_PASSWORD)")

	if err := fs.Parse(args); err != nil {
		return credentialOpts{}, err
	}
	if err := config.ValidateBaseURL(o.apiURL); err != nil {
		return credentialOpts{}, fmt.Errorf("api-url: %w", err)
	}
	if o.email == "" || o.password == "" || (needUsername && o.username == "") {
		return credentialOpts{}, errors.New("missing credentials, see -h")
	}
	return o, nil
}

func runLogin(ctx context.Context, cfg *config.ClientConfig, args []string, out io.Writer) error {
	o, err := parseCredentialFlags("login", cfg, args, false)
	if err != nil {
		return err
	}
	flow, _ := newFlow(o.commonOpts, cfg.Env)
	defer flow.Close()

	if err := flow.Login(ctx, o.email, o.password); err != nil {
		return err
	}
	return printProfile(out, flow.Snapshot(), time.Now())
}

func runRegister(ctx context.Context, cfg *config.ClientConfig, args []string, out io.Writer) error {
	o, err := parseCredentialFlags("register", cfg, args, true)
	if err != nil {
		return err
	}
	flow, _ := newFlow(o.commonOpts, cfg.Env)
	defer flow.Close()

	if err := flow.Register(ctx, o.username, o.email, o.password); err != nil {
		return err
	}
	return printProfile(out, flow.Snapshot(), time.Now())
}

func printProfile(out io.Writer, snap session.Snapshot, now time.Time) error {
	if snap.Profile == nil {
		return fmt.Errorf("no profile loaded (state %s)", snap.State)
	}
	_, err := fmt.Fprintf(out, "%s\n\nFirst name: %s\nLast name:  %s\nStatus:     %s\n",
		snap.Greeting(now), snap.Profile.FirstName, snap.Profile.LastName, snap.Profile.Status)
	return err
}

func runBridge(ctx context.Context, cfg *config.ClientConfig, args []string) error {
	fs := flag.NewFlagSet("bridge", flag.ContinueOnError)
	fs.SetOutput(usageOut)

	var o commonOpts
	var addr string
	addCommonFlags(fs, cfg, &o)
	fs.StringVar(&addr, "addr", cfg.BridgeAddr, "websocket listen address (AUTHFLOW_BRIDGE_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.ValidateBaseURL(o.apiURL); err != nil {
		return fmt.Errorf("api-url: %w", err)
	}

	flow, logger := newFlow(o, cfg.Env)
	defer flow.Close()

	hub := bridge.NewHub(flow, bridge.WithLogger(logger))
	go hub.Run()
	defer hub.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", bridge.ServeWS(hub))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening", "addr", addr, "api_url", o.apiURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
