package signer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
)

const testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvPrivateKey, "")
	t.Setenv(EnvPrivateKeyFallback, "")
	t.Setenv(EnvPrivateKeyFile, "")
	t.Setenv(EnvKeystorePath, "")
	t.Setenv(EnvKeystorePassword, "")
	t.Setenv(EnvKeystorePasswordFile, "")
}

func TestNewLocalSignerFromEnvHex(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvPrivateKey, "0x"+testPrivateKey)
	s, err := NewLocalSignerFromEnv(KeySourceEnv)
	if err != nil {
		t.Fatalf("NewLocalSignerFromEnv failed: %v", err)
	}
	if s.Address() == (common.Address{}) {
		t.Fatal("expected non-zero signer address")
	}
}

func TestNewLocalSignerFromEnvFallbackName(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvPrivateKeyFallback, testPrivateKey)
	s, err := NewLocalSignerFromEnv(KeySourceAuto)
	if err != nil {
		t.Fatalf("expected PRIVATE_KEY to be accepted: %v", err)
	}
	pk, _ := crypto.HexToECDSA(testPrivateKey)
	if s.Address() != crypto.PubkeyToAddress(pk.PublicKey) {
		t.Fatalf("unexpected address %s", s.Address().Hex())
	}
}

func TestPrimaryEnvNameWinsOverFallback(t *testing.T) {
	clearKeyEnv(t)
	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv(EnvPrivateKey, testPrivateKey)
	t.Setenv(EnvPrivateKeyFallback, common.Bytes2Hex(crypto.FromECDSA(other)))
	s, err := NewLocalSignerFromEnv(KeySourceEnv)
	if err != nil {
		t.Fatalf("NewLocalSignerFromEnv failed: %v", err)
	}
	pk, _ := crypto.HexToECDSA(testPrivateKey)
	if s.Address() != crypto.PubkeyToAddress(pk.PublicKey) {
		t.Fatal("expected POLYMARKET_PRIVATE_KEY to take precedence")
	}
}

func TestNewLocalSignerFromEnvFile(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(keyFile, []byte(testPrivateKey+"\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv(EnvPrivateKeyFile, keyFile)

	s, err := NewLocalSignerFromEnv(KeySourceFile)
	if err != nil {
		t.Fatalf("NewLocalSignerFromEnv failed: %v", err)
	}
	if s.Address() == (common.Address{}) {
		t.Fatal("expected non-zero signer address")
	}
}

func TestNewLocalSignerFromEnvAutoUsesDefaultKeyFile(t *testing.T) {
	clearKeyEnv(t)
	cfgDir := t.TempDir()
	keyDir := filepath.Join(cfgDir, "clob-bridge")
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(keyDir, "key.hex"), []byte(testPrivateKey), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", cfgDir)

	if _, err := NewLocalSignerFromEnv(KeySourceAuto); err != nil {
		t.Fatalf("expected auto key-source to use default key path: %v", err)
	}
}

func TestDefaultPrivateKeyPathUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/bridge-config-home")
	if got := defaultPrivateKeyPath(); got != "/tmp/bridge-config-home/clob-bridge/key.hex" {
		t.Fatalf("unexpected default key path %q", got)
	}
}

func TestMissingKeyIsAuthError(t *testing.T) {
	clearKeyEnv(t)
	_, err := NewLocalSignerFromEnv(KeySourceAuto)
	if err == nil {
		t.Fatal("expected missing key error")
	}
	if clierr.ExitCode(err) != int(clierr.CodeAuth) {
		t.Fatalf("expected auth exit code, got %d", clierr.ExitCode(err))
	}
	if !strings.Contains(err.Error(), EnvPrivateKey) || !strings.Contains(err.Error(), EnvPrivateKeyFallback) {
		t.Fatalf("expected both env names in message, got: %s", err)
	}
}

func TestUnsupportedKeySource(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvPrivateKey, testPrivateKey)
	if _, err := NewLocalSignerFromEnv("vault"); err == nil {
		t.Fatal("expected unsupported key source error")
	}
}

func TestSignTypedDataRecoversSigner(t *testing.T) {
	clearKeyEnv(t)
	s, err := NewLocalSigner(LocalSignerConfig{PrivateKeyHex: testPrivateKey})
	if err != nil {
		t.Fatalf("NewLocalSigner failed: %v", err)
	}
	data := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Ping": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "Ping",
		Domain: apitypes.TypedDataDomain{
			Name:    "Test",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(137),
		},
		Message: apitypes.TypedDataMessage{
			"address": s.Address().Hex(),
			"message": "hello",
		},
	}
	sig, err := s.SignTypedData(data)
	if err != nil {
		t.Fatalf("SignTypedData failed: %v", err)
	}
	if len(sig) != 65 || (sig[64] != 27 && sig[64] != 28) {
		t.Fatalf("unexpected signature shape: len=%d v=%d", len(sig), sig[64])
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	raw := append([]byte(nil), sig...)
	raw[64] -= 27
	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != s.Address() {
		t.Fatal("signature does not recover to signer address")
	}
}
