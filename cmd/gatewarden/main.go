// ABOUTME: Entry point for the gatewarden action-gating server
// ABOUTME: Serves the gate API, runs the demo narration, and inspects audit logs

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/gatekeeper"
	"github.com/gatewarden/gatewarden/internal/proof"
	"github.com/gatewarden/gatewarden/internal/rpc"
	"github.com/gatewarden/gatewarden/internal/secret"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
            _                            _
  __ _ __ _| |_ _____      ____ _ _ __ __| | ___ _ __
 / _' / _' | __/ _ \ \ /\ / / _' | '__/ _' |/ _ \ '_ \
| (_| (_| | ||  __/\ V  V / (_| | | | (_| |  __/ | | |
 \__, \__,_|\__\___| \_/\_/ \__,_|_|  \__,_|\___|_| |_|
 |___/
`

// getConfigPath returns the path to the gatewarden config file.
// Priority: GATEWARDEN_CONFIG env var > XDG_CONFIG_HOME > ~/.config.
func getConfigPath() string {
	if envPath := os.Getenv("GATEWARDEN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gatewarden.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "gatewarden", "gatewarden.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gatewarden <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the gate server")
		fmt.Println("  demo      Run the blocked-action walkthrough in demo mode")
		fmt.Println("  audit     Print the audit trail of a sqlite audit log")
		fmt.Println("  health    Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "demo":
		err = runDemo(ctx)
	case "audit":
		err = runAudit(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stack bundles the wired components for one gatewarden instance.
type stack struct {
	secrets  *secret.Store
	registry *challenge.Registry
	auditLog audit.Log
	keeper   *gatekeeper.Gatekeeper
	server   *rpc.Server

	sqlite *audit.SQLiteLog // non-nil when the sqlite backend is active
}

// buildStack wires all components from configuration.
func buildStack(cfg *config.Config) (*stack, error) {
	var (
		auditLog  audit.Log
		sqliteLog *audit.SQLiteLog
	)
	switch cfg.Audit.Backend {
	case config.AuditBackendSQLite:
		l, err := audit.NewSQLiteLog(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		auditLog = l
		sqliteLog = l
	default:
		auditLog = audit.NewMemoryLog()
	}

	secrets := secret.NewStore(cfg.Auth.Secret, cfg.Auth.RotatingSeed, cfg.Auth.RotationPeriod)

	registry, err := challenge.NewRegistry(challenge.Config{
		Secrets: secrets,
		Audit:   auditLog,
		TTL:     cfg.Auth.ChallengeTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating challenge registry: %w", err)
	}

	verifier, err := proof.NewVerifier(proof.Config{
		Secrets:  secrets,
		Registry: registry,
		Audit:    auditLog,
	})
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("creating proof verifier: %w", err)
	}

	keeper, err := gatekeeper.New(gatekeeper.Config{
		Registry:         registry,
		Verifier:         verifier,
		Audit:            auditLog,
		SensitiveActions: cfg.SensitiveActions,
	})
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("creating gatekeeper: %w", err)
	}

	server, err := rpc.NewServer(rpc.Config{
		Gatekeeper: keeper,
		Audit:      auditLog,
	})
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("creating rpc server: %w", err)
	}

	return &stack{
		secrets:  secrets,
		registry: registry,
		auditLog: auditLog,
		keeper:   keeper,
		server:   server,
		sqlite:   sqliteLog,
	}, nil
}

// close releases the stack's resources.
func (s *stack) close() {
	s.registry.Close()
	if s.sqlite != nil {
		_ = s.sqlite.Close()
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Audit:     %s\n", cfg.Audit.Backend)
	if cfg.Auth.DemoMode {
		yellow.Print("    ▶ ")
		fmt.Println("Demo mode: placeholder secret in use")
	}
	fmt.Println()

	logger.Info("starting gatewarden",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"audit_backend", cfg.Audit.Backend,
	)

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	mux := http.NewServeMux()
	st.server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runAudit prints the audit trail from a sqlite audit log.
func runAudit(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Audit.Backend != config.AuditBackendSQLite {
		return fmt.Errorf("audit command requires the sqlite audit backend")
	}

	log, err := audit.NewSQLiteLog(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer log.Close()

	records, err := log.Records(ctx)
	if err != nil {
		return fmt.Errorf("reading audit log: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tACTION\tCHALLENGE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339),
			r.Event,
			r.Action,
			r.ChallengeID,
		)
	}
	return w.Flush()
}

// runDemo walks through the original proof-of-concept scenarios against an
// in-memory demo-mode instance: a blocked sensitive action completed via the
// secure-device proof, a replay attempt, and a safe action.
func runDemo(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cfg := config.Default()
	slog.SetDefault(setupLogger(config.LoggingConfig{Level: "warn", Format: "text"}))

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	cyan.Println("── Scenario 1: agent attempts a sensitive action ──")
	resp := st.server.HandleRequest(ctx, rpc.Request{
		Method: rpc.MethodExecuteAction,
		Action: "delete_database",
		Params: map[string]any{"db": "production"},
	})
	printJSON(resp)

	result, ok := resp.(gatekeeper.Result)
	if !ok || result.Challenge == nil {
		return fmt.Errorf("expected a challenge in the blocked response")
	}
	ch := result.Challenge
	red.Println("  ✗ blocked: awaiting out-of-band authentication")
	gray.Printf("  challenge %s expires %s\n\n", ch.ID, ch.ExpiresAt.Format(time.RFC3339))

	cyan.Println("── Human completes the challenge on the secure device ──")
	// The device holds the long-term secret; the agent never sees it.
	p := proof.Build(st.secrets.LongTermSecret(), ch.ID, ch.RotatingCode, ch.Nonce)
	gray.Printf("  digest  %s\n", p.Digest)
	gray.Printf("  authTag %s\n\n", p.AuthTag)

	cyan.Println("── Agent submits the proof ──")
	resp = st.server.HandleRequest(ctx, rpc.Request{
		Method: rpc.MethodExecuteAction,
		Action: "delete_database",
		Params: map[string]any{"db": "production"},
		Proof:  &p,
	})
	printJSON(resp)
	green.Println("  ✓ allowed with proof")
	fmt.Println()

	cyan.Println("── Agent replays the same proof ──")
	resp = st.server.HandleRequest(ctx, rpc.Request{
		Method: rpc.MethodExecuteAction,
		Action: "delete_database",
		Proof:  &p,
	})
	printJSON(resp)
	red.Println("  ✗ blocked: challenges are single use")
	fmt.Println()

	cyan.Println("── Scenario 2: agent runs a safe action ──")
	resp = st.server.HandleRequest(ctx, rpc.Request{
		Method: rpc.MethodExecuteAction,
		Action: "list_files",
		Params: map[string]any{"path": "/home"},
	})
	printJSON(resp)
	green.Println("  ✓ allowed immediately")
	fmt.Println()

	cyan.Println("── Audit trail ──")
	printJSON(st.server.HandleRequest(ctx, rpc.Request{Method: rpc.MethodGetAuditLog}))
	return nil
}

// printJSON pretty-prints a response.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		fmt.Printf("  %v\n", v)
		return
	}
	fmt.Printf("  %s\n", data)
}
