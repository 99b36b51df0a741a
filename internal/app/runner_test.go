package app

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ggonzalez94/clob-bridge/internal/config"
	"github.com/ggonzalez94/clob-bridge/internal/signer"
	"github.com/ggonzalez94/clob-bridge/internal/version"
)

const testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	for _, name := range []string{
		signer.EnvPrivateKey, signer.EnvPrivateKeyFallback, signer.EnvPrivateKeyFile,
		signer.EnvKeystorePath, signer.EnvKeystorePassword, signer.EnvKeystorePasswordFile,
		config.EnvSignatureType, config.EnvProxyAddress, config.EnvFunderAddress,
		config.EnvCLOBBaseURL, config.EnvChainID, config.EnvKeySource, config.EnvLogFormat,
		config.EnvMarketsCache, config.EnvNoJournal, config.EnvEnableCommands,
		config.EnvCachePath, config.EnvCacheLockPath, config.EnvJournalPath, config.EnvJournalLockPath,
	} {
		t.Setenv(name, "")
	}
}

func runBridge(t *testing.T, stdin string, args ...string) (int, []map[string]any, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	r := NewRunnerWithIO(strings.NewReader(stdin), &stdout, &stderr)
	code := r.Run(args)
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("stdout line is not JSON: %q", line)
		}
		lines = append(lines, m)
	}
	return code, lines, stderr.String()
}

func TestRunnerExitLine(t *testing.T) {
	isolateEnv(t)
	t.Setenv(signer.EnvPrivateKey, testPrivateKey)

	code, lines, stderr := runBridge(t, `{"cmd":"exit"}`+"\n"+`{"cmd":"markets"}`+"\n", "--no-journal")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	if len(lines) != 1 {
		t.Fatalf("expected one response, got %v", lines)
	}
	data, _ := lines[0]["data"].(map[string]any)
	if lines[0]["success"] != true || data["status"] != "exiting" {
		t.Fatalf("unexpected response: %v", lines[0])
	}
	if !strings.Contains(stderr, "bridge ready") || !strings.Contains(stderr, `"run_id":"run_`) {
		t.Fatalf("expected startup log with run id on stderr, got %s", stderr)
	}
}

func TestRunnerServeAliasAndEndOfInput(t *testing.T) {
	isolateEnv(t)
	t.Setenv(signer.EnvPrivateKey, testPrivateKey)

	code, lines, stderr := runBridge(t, "\n"+`{"cmd":"nope"}`, "serve", "--no-journal")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	if len(lines) != 1 || lines[0]["error"] != "Unknown command: nope" {
		t.Fatalf("unexpected responses: %v", lines)
	}
}

func TestRunnerMissingKeyExitsWithAuthCode(t *testing.T) {
	isolateEnv(t)
	code, lines, stderr := runBridge(t, `{"cmd":"exit"}`+"\n")
	if code != 10 {
		t.Fatalf("expected exit 10, got %d stderr=%s", code, stderr)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no stdout output, got %v", lines)
	}
	if !strings.Contains(stderr, signer.EnvPrivateKey) {
		t.Fatalf("expected missing key to be logged, got %s", stderr)
	}
}

func TestRunnerRejectsBadLogFormat(t *testing.T) {
	isolateEnv(t)
	t.Setenv(signer.EnvPrivateKey, testPrivateKey)
	code, _, stderr := runBridge(t, "", "--log-format", "xml")
	if code != 2 {
		t.Fatalf("expected exit 2, got %d stderr=%s", code, stderr)
	}
}

func TestRunnerPolicyFlagBlocksCommands(t *testing.T) {
	isolateEnv(t)
	t.Setenv(signer.EnvPrivateKey, testPrivateKey)

	input := `{"cmd":"order","token_id":"1"}` + "\n" + `{"cmd":"quit"}` + "\n"
	code, lines, stderr := runBridge(t, input, "--enable-commands", "balance,markets", "--no-journal")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	if len(lines) != 2 || lines[0]["error"] != "Command blocked: order" || lines[1]["success"] != true {
		t.Fatalf("unexpected responses: %v", lines)
	}
}

func TestRunnerHistoryUsesJournal(t *testing.T) {
	isolateEnv(t)
	t.Setenv(signer.EnvPrivateKey, testPrivateKey)

	code, lines, stderr := runBridge(t, `{"cmd":"history"}`+"\n")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	data, _ := lines[0]["data"].(map[string]any)
	if lines[0]["success"] != true || data["count"] != float64(0) {
		t.Fatalf("expected empty history, got %v", lines[0])
	}

	_, lines, _ = runBridge(t, `{"cmd":"history"}`+"\n", "--no-journal")
	if lines[0]["error"] != "Journal disabled" {
		t.Fatalf("expected disabled journal, got %v", lines[0])
	}
}

func TestRunnerVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := NewRunnerWithIO(strings.NewReader(""), &stdout, &stderr)
	if code := r.Run([]string{"version"}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.TrimSpace(stdout.String()) != version.CLIVersion {
		t.Fatalf("unexpected version output: %q", stdout.String())
	}
}

func TestRunnerSchemaDescribesLineCommands(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := NewRunnerWithIO(strings.NewReader(""), &stdout, &stderr)
	if code := r.Run([]string{"schema"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr.String())
	}
	var doc struct {
		CLI      string           `json:"cli"`
		Commands []map[string]any `json:"commands"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if doc.CLI != version.CLIName || len(doc.Commands) == 0 {
		t.Fatalf("unexpected schema: %+v", doc)
	}

	stdout.Reset()
	if code := r.Run([]string{"schema", "withdraw"}); code != 2 {
		t.Fatalf("expected exit 2 for unknown line command, got %d", code)
	}
}

func TestNewRunID(t *testing.T) {
	id := newRunID(time.UnixMilli(1700000000123))
	if !regexp.MustCompile(`^run_1700000000123_[0-9a-f]{8}$`).MatchString(id) {
		t.Fatalf("unexpected run id %q", id)
	}
	if id == newRunID(time.UnixMilli(1700000000123)) {
		t.Fatal("expected distinct run ids")
	}
}
