package bridge

import "github.com/ggonzalez94/clob-bridge/internal/clob"

// ResolveSignatureType picks the command value, then the process default, and
// falls back to GnosisSafe, the mode of browser-wallet funded accounts. Values
// outside 0..2 also map to GnosisSafe.
func ResolveSignatureType(explicit, envDefault *int) clob.SignatureType {
	v := explicit
	if v == nil {
		v = envDefault
	}
	if v == nil {
		return clob.SignatureGnosisSafe
	}
	switch *v {
	case 0:
		return clob.SignatureEOA
	case 1:
		return clob.SignatureProxy
	default:
		return clob.SignatureGnosisSafe
	}
}
