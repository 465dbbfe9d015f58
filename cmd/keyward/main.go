// ABOUTME: Entry point for the keyward account authorization server
// ABOUTME: Serves the HTTP API and provides key, token and signing helpers

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/holiman/uint256"

	"github.com/2389/keyward/internal/auth"
	"github.com/2389/keyward/internal/config"
	"github.com/2389/keyward/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _                                       _
 | | _____ _   ___      ____ _ _ __ __| |
 | |/ / _ \ | | \ \ /\ / / _' | '__/ _' |
 |   <  __/ |_| |\ V  V / (_| | | | (_| |
 |_|\_\___|\__, | \_/\_/ \__,_|_|  \__,_|
           |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: keyward <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                                   Start the server")
		fmt.Println("  init                                    Write a starter config file")
		fmt.Println("  keygen                                  Generate a secp256k1 key")
		fmt.Println("  token --operator NAME [--scope S] [--ttl DURATION]")
		fmt.Println("                                          Issue an operator token")
		fmt.Println("  sign --key HEX --module ADDR --call-data HEX [--nonce N]")
		fmt.Println("                                          Sign call data for a module")
		fmt.Println("  health                                  Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "keygen":
		err = runKeygen()
	case "token":
		err = runToken(os.Args[2:])
	case "sign":
		err = runSign(os.Args[2:])
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

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Delays:    security %s, backup add %s, backup remove %s\n",
		cfg.Security.SecurityDelay, cfg.Security.BackupAddDelay, cfg.Security.BackupRemoveDelay)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Println("    ! account creation is not protected (auth.jwt_secret is empty)")
	}
	fmt.Println()

	logger.Info("starting keyward",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"modules", len(cfg.Registry.Modules),
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			mu:    &sync.Mutex{},
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output. Derived handlers share the
// parent's mutex so writes never interleave.
type colorHandler struct {
	mu     *sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	// Handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		mu:     h.mu,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		mu:     h.mu,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
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

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("keyward configuration setup")
	fmt.Println("===========================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(config.Starter), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Printf("\n  ✓ Config written to %s\n\n", outputFile)
	yellow.Println("  The config reads the operator secret from the environment:")
	fmt.Printf("    export KEYWARD_JWT_SECRET=%s\n\n", base64.StdEncoding.EncodeToString(secretBytes))
	fmt.Println("  Then:")
	fmt.Println("    keyward token --operator you   # token for POST /api/accounts")
	fmt.Println("    keyward serve                  # start the server")
	fmt.Println()
	return nil
}

func runKeygen() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	fmt.Printf("address:     %s\n", ethcrypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("private key: %s\n", hexutil.Encode(ethcrypto.FromECDSA(key)))
	return nil
}

func runToken(args []string) error {
	flags, err := parseFlags(args, "operator", "scope", "ttl")
	if err != nil {
		return err
	}
	operator := strings.TrimSpace(flags["operator"])
	if operator == "" {
		return fmt.Errorf("--operator flag is required")
	}
	scopes := []auth.Scope{auth.ScopeInitAccount}
	if v, ok := flags["scope"]; ok {
		if scopes, err = auth.ParseScopes(v); err != nil {
			return fmt.Errorf("parsing --scope: %w", err)
		}
	}
	ttl := 30 * 24 * time.Hour
	if v, ok := flags["ttl"]; ok {
		if ttl, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("parsing --ttl: %w", err)
		}
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is empty; set KEYWARD_JWT_SECRET or edit the config")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(operator, scopes, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func runSign(args []string) error {
	flags, err := parseFlags(args, "key", "module", "call-data", "nonce")
	if err != nil {
		return err
	}
	for _, name := range []string{"key", "module", "call-data"} {
		if flags[name] == "" {
			return fmt.Errorf("--%s flag is required", name)
		}
	}

	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(flags["key"], "0x"))
	if err != nil {
		return fmt.Errorf("parsing --key: %w", err)
	}
	if !common.IsHexAddress(flags["module"]) {
		return fmt.Errorf("--module %q is not a hex address", flags["module"])
	}
	module := common.HexToAddress(flags["module"])
	callData, err := hexutil.Decode(flags["call-data"])
	if err != nil {
		return fmt.Errorf("parsing --call-data: %w", err)
	}
	var nonce *uint256.Int
	if v := flags["nonce"]; v != "" {
		if nonce, err = uint256.FromDecimal(v); err != nil {
			return fmt.Errorf("parsing --nonce: %w", err)
		}
	}

	digest := auth.Digest(module, callData, nonce)
	sig, err := auth.Sign(digest, key)
	if err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	fmt.Printf("signer:    %s\n", ethcrypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("digest:    %s\n", digest.Hex())
	fmt.Printf("signature: %s\n", hexutil.Encode(sig))
	return nil
}

// parseFlags reads "--name value" and "--name=value" pairs for the allowed names.
func parseFlags(args []string, allowed ...string) (map[string]string, error) {
	known := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		known[name] = true
	}
	out := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !known[name] {
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		out[name] = value
	}
	return out, nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
