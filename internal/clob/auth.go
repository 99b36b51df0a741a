package clob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ggonzalez94/clob-bridge/internal/signer"
)

const clobAuthMessage = "This message attests that I control the given wallet"

const (
	headerAddress    = "POLY_ADDRESS"
	headerSignature  = "POLY_SIGNATURE"
	headerTimestamp  = "POLY_TIMESTAMP"
	headerNonce      = "POLY_NONCE"
	headerAPIKey     = "POLY_API_KEY"
	headerPassphrase = "POLY_PASSPHRASE"
)

func clobAuthTypedData(chainID int64, address string, timestamp int64, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     math.NewHexOrDecimal256(nonce),
			"message":   clobAuthMessage,
		},
	}
}

// l1Headers proves key ownership for the API-key endpoints.
func l1Headers(s signer.Signer, chainID int64, now time.Time, nonce int64) (map[string]string, error) {
	address := s.Address().Hex()
	ts := now.Unix()
	sig, err := s.SignTypedData(clobAuthTypedData(chainID, address, ts, nonce))
	if err != nil {
		return nil, fmt.Errorf("sign auth message: %w", err)
	}
	return map[string]string{
		headerAddress:   address,
		headerSignature: hexutil.Encode(sig),
		headerTimestamp: strconv.FormatInt(ts, 10),
		headerNonce:     strconv.FormatInt(nonce, 10),
	}, nil
}

// l2Headers signs one request with the API secret. path excludes the query string.
func l2Headers(address string, creds APICredentials, now time.Time, method, path string, body []byte) (map[string]string, error) {
	ts := strconv.FormatInt(now.Unix(), 10)
	sig, err := hmacSignature(creds.Secret, ts+method+path+string(body))
	if err != nil {
		return nil, err
	}
	return map[string]string{
		headerAddress:    address,
		headerSignature:  sig,
		headerTimestamp:  ts,
		headerAPIKey:     creds.APIKey,
		headerPassphrase: creds.Passphrase,
	}, nil
}

func hmacSignature(secret, message string) (string, error) {
	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(secret)
		if err != nil {
			return "", fmt.Errorf("decode api secret: %w", err)
		}
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
