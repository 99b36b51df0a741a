package clob

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var orderTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": []apitypes.Type{
		{Name: "salt", Type: "uint256"},
		{Name: "maker", Type: "address"},
		{Name: "signer", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "makerAmount", Type: "uint256"},
		{Name: "takerAmount", Type: "uint256"},
		{Name: "expiration", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "feeRateBps", Type: "uint256"},
		{Name: "side", Type: "uint8"},
		{Name: "signatureType", Type: "uint8"},
	},
}

func orderTypedData(chainID int64, d *OrderDescriptor) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "Polymarket CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: d.Exchange,
		},
		Message: apitypes.TypedDataMessage{
			"salt":          strconv.FormatInt(d.Salt, 10),
			"maker":         d.Maker,
			"signer":        d.Signer,
			"taker":         d.Taker,
			"tokenId":       d.TokenID.Dec(),
			"makerAmount":   d.MakerAmount.Dec(),
			"takerAmount":   d.TakerAmount.Dec(),
			"expiration":    strconv.FormatUint(d.Expiration, 10),
			"nonce":         strconv.FormatUint(d.Nonce, 10),
			"feeRateBps":    strconv.FormatUint(d.FeeRateBps, 10),
			"side":          strconv.Itoa(d.Side.wire()),
			"signatureType": strconv.Itoa(int(d.SignatureType)),
		},
	}
}
