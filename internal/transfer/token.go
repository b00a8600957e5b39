package transfer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultTokenProtocol is the payload tag of token transfers.
const DefaultTokenProtocol = "krc20"

// ErrInvalidToken is returned for malformed token transfer fields.
var ErrInvalidToken = errors.New("invalid token transfer")

const maxTokenFieldLen = 32

// TokenTransferPayload encodes a token transfer instruction as
// "protocol|SYMBOL|amount". The ledger never interprets it; an indexer
// reading transaction payloads does.
func TokenTransferPayload(protocol, symbol string, amount uint64) ([]byte, error) {
	if protocol == "" {
		protocol = DefaultTokenProtocol
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, f := range []string{protocol, symbol} {
		if f == "" || len(f) > maxTokenFieldLen {
			return nil, fmt.Errorf("%w: field %q must be 1-%d characters", ErrInvalidToken, f, maxTokenFieldLen)
		}
		for _, c := range f {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
				return nil, fmt.Errorf("%w: field %q has invalid character %q", ErrInvalidToken, f, c)
			}
		}
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidToken)
	}
	return []byte(protocol + "|" + symbol + "|" + strconv.FormatUint(amount, 10)), nil
}
