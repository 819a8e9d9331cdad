// Package cmd wires up the CLI flags and dispatches to the link core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"wirelink/config"
	"wirelink/internal/errors"
	"wirelink/internal/metrics"
	"wirelink/internal/retry"
	"wirelink/internal/transport"
	"wirelink/link"
	"wirelink/message"
	"wirelink/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X wirelink/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args, builds a connection, and performs one transfer
// (optionally retried).  The request document is assembled from
// key=value arguments or read in text form from stdin; the response
// document is printed to stdout.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("wirelink", flag.ContinueOnError)

	// ── negotiation ──────────────────────────────────────────────
	var tlsMode string
	fs.StringVar(&tlsMode, "tls", "", "TLS mode: auto, required, or disabled")
	fs.BoolVar(&cfg.InsecureSkipVerify, "insecure", cfg.InsecureSkipVerify,
		"Skip TLS certificate verification")

	// ── transfer ─────────────────────────────────────────────────
	fs.BoolVar(&cfg.Gzip, "gzip", cfg.Gzip, "Gzip-compress payloads")
	var maxFrame int
	fs.IntVar(&maxFrame, "max-frame", 0, "Maximum payload size in bytes")
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connect timeout in seconds")
	fs.IntVarP(&cfg.LocalPort, "local-port", "p", cfg.LocalPort,
		"Local source port (0 = ephemeral)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec,
		"Dial through SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── retry policy ─────────────────────────────────────────────
	fs.IntVarP(&cfg.RetryAttempts, "retry", "r", cfg.RetryAttempts,
		"Retry failed transfers up to N times (0 = no retry)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	var showStats bool
	fs.BoolVar(&showStats, "stats", false, "Print session statistics on exit")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("wirelink %s\n", version)
		return nil
	}

	if tlsMode != "" {
		cfg.TLS = config.TLSMode(strings.ToLower(tlsMode))
	}
	if timeoutSec > 0 {
		cfg.DialTimeout = time.Duration(timeoutSec) * time.Second
	}
	if maxFrame > 0 {
		cfg.MaxPayload = uint32(maxFrame)
	}

	// ── positional arguments ─────────────────────────────────────
	attrs, err := parsePositional(cfg, fs.Args())
	if err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(os.Stderr, "configuration OK: %s\n",
			util.JoinHostService(cfg.Host, cfg.Service))
		return nil
	}

	// ── request document ─────────────────────────────────────────
	req, err := buildRequest(attrs, os.Stdin)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	var dialer transport.Dialer
	if cfg.TunnelEnabled {
		dialer = transport.NewSSHDialer(&transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.DialTimeout,
		}, logger)
		defer dialer.Close()
	}

	var stats *metrics.Collector
	if showStats {
		stats = metrics.New()
	}

	resp, err := runTransfer(ctx, cfg, dialer, logger, stats, req)

	if stats != nil {
		if data, jerr := stats.JSON(); jerr == nil {
			fmt.Fprintln(os.Stderr, string(data))
		}
	}
	if err != nil {
		return err
	}

	fmt.Print(resp.String())
	return nil
}

// runTransfer performs the transfer, retrying per the caller policy
// when the failure class is worth another connection attempt.  Each
// attempt uses a fresh Connection: a failed one is terminal by
// contract.
func runTransfer(ctx context.Context, cfg *config.Config, dialer transport.Dialer,
	logger *util.Logger, stats *metrics.Collector, req *message.Document,
) (*message.Document, error) {
	attemptOnce := func() (*message.Document, error) {
		conn := link.New(cfg, dialer, nil, logger)
		conn.Metrics = stats

		// Translate an interrupt into a cooperative cancel.
		stop := context.AfterFunc(ctx, conn.Cancel)
		defer stop()

		resp, err := drive(conn, req, logger)
		if err != nil {
			return nil, err
		}
		if conn.UsingTLS() {
			logger.Info("session was TLS-encrypted")
		}
		return resp, nil
	}

	if cfg.RetryAttempts <= 0 {
		return attemptOnce()
	}

	var resp *message.Document
	b := retry.DefaultBackoff()
	b.MaxAttempts = cfg.RetryAttempts
	err := b.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			logger.Info("retrying transfer (attempt %d)", attempt)
		}
		r, err := attemptOnce()
		if err != nil {
			if !errors.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// drive polls the connection to completion, surfacing byte progress
// on the way.  Run would do, but the poll loop is what keeps the
// progress line honest.
func drive(conn *link.Connection, req *message.Document, logger *util.Logger) (*message.Document, error) {
	if err := conn.Transfer(req); err != nil {
		return nil, err
	}

	for !conn.Done() {
		if _, err := conn.Poll(); err != nil {
			return nil, err
		}
		if total := conn.BytesToRead(); total > 0 {
			logger.Progress("read %d/%d bytes", conn.BytesRead(), total)
		} else if total := conn.BytesToWrite(); total > 0 {
			logger.Progress("sent %d/%d bytes", conn.BytesWritten(), total)
		}
		time.Sleep(10 * time.Millisecond)
	}
	logger.ProgressDone()

	if err := conn.Err(); err != nil {
		return nil, err
	}
	return conn.Response(), nil
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional consumes "host [service] [key=value …]" and returns
// the attribute arguments.
func parsePositional(cfg *config.Config, remaining []string) ([]string, error) {
	if len(remaining) < 1 {
		return nil, fmt.Errorf("hostname required (use --help for usage)")
	}
	cfg.Host = remaining[0]
	remaining = remaining[1:]

	cfg.Service = config.DefaultService
	if len(remaining) > 0 && !strings.Contains(remaining[0], "=") {
		cfg.Service = remaining[0]
		remaining = remaining[1:]
	}

	for _, arg := range remaining {
		if !strings.Contains(arg, "=") {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
	}
	return remaining, nil
}

// buildRequest assembles the request document from key=value
// arguments, or parses the text form from stdin when no arguments
// were given.
func buildRequest(attrs []string, stdin io.Reader) (*message.Document, error) {
	if len(attrs) > 0 {
		doc := message.New()
		for _, kv := range attrs {
			k, v, _ := strings.Cut(kv, "=")
			doc.Set(k, v)
		}
		return doc, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return message.Parse(data)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wirelink – framed document transfer client v%s

Connects to a server over TCP, negotiates plaintext or TLS in-band,
and exchanges one length-framed document per transfer.

Usage:
  wirelink [options] <host> [service] [key=value ...]
  wirelink [options] <host> [service] < request.txt

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  wirelink server.example 15000 version=1.18.2      Inline request
  wirelink --tls required server.example https      Refuse cleartext
  wirelink --gzip -vv server.example < req.txt      Compressed, chatty
  wirelink -T admin@bastion internal-host 15000     Via SSH gateway
  wirelink --retry 3 --stats server.example         Retry + statistics
`)
}
