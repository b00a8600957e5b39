package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip32"
)

// ErrInvalidDerivationPath is returned for malformed derivation paths.
var ErrInvalidDerivationPath = errors.New("invalid derivation path")

// PathSegment is one step of a derivation path.
type PathSegment struct {
	Index    uint32
	Hardened bool
}

// ChildIndex returns the BIP-32 child number of the segment.
func (s PathSegment) ChildIndex() uint32 {
	if s.Hardened {
		return s.Index + bip32.FirstHardenedChild
	}
	return s.Index
}

// String returns the segment in path notation.
func (s PathSegment) String() string {
	if s.Hardened {
		return strconv.FormatUint(uint64(s.Index), 10) + "'"
	}
	return strconv.FormatUint(uint64(s.Index), 10)
}

// DerivationPath is an ordered list of derivation steps from a master key.
type DerivationPath []PathSegment

// ParseDerivationPath parses paths such as "m/44'/111111'/0'/0/5". The
// hardened marker may be ' or h. "m" alone is the empty path.
func ParseDerivationPath(s string) (DerivationPath, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with m", ErrInvalidDerivationPath, s)
	}
	path := make(DerivationPath, 0, len(parts)-1)
	for i, p := range parts[1:] {
		seg := PathSegment{}
		if strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") {
			seg.Hardened = true
			p = p[:len(p)-1]
		}
		idx, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d %q is not a number", ErrInvalidDerivationPath, i+1, parts[i+1])
		}
		if idx >= uint64(bip32.FirstHardenedChild) {
			return nil, fmt.Errorf("%w: segment %d index %d out of range", ErrInvalidDerivationPath, i+1, idx)
		}
		seg.Index = uint32(idx)
		path = append(path, seg)
	}
	return path, nil
}

// ParseBIP44Path parses a purpose'/coin_type'/account'/chain/index path and
// checks its shape: the first three segments hardened, the chain 0 or 1 and
// the last two not hardened.
func ParseBIP44Path(s string) (DerivationPath, error) {
	path, err := ParseDerivationPath(s)
	if err != nil {
		return nil, err
	}
	if len(path) != 5 {
		return nil, fmt.Errorf("%w: %q has %d segments, want 5", ErrInvalidDerivationPath, s, len(path))
	}
	for i := 0; i < 3; i++ {
		if !path[i].Hardened {
			return nil, fmt.Errorf("%w: segment %d of %q must be hardened", ErrInvalidDerivationPath, i+1, s)
		}
	}
	if path[3].Hardened || path[4].Hardened {
		return nil, fmt.Errorf("%w: chain and index of %q must not be hardened", ErrInvalidDerivationPath, s)
	}
	if path[3].Index != ChainReceive && path[3].Index != ChainChange {
		return nil, fmt.Errorf("%w: chain %d, want 0 or 1", ErrInvalidDerivationPath, path[3].Index)
	}
	return path, nil
}

// KaspaPath returns m/44'/111111'/account'/chain/index.
func KaspaPath(account, chain, index uint32) DerivationPath {
	return DerivationPath{
		{Index: Purpose, Hardened: true},
		{Index: CoinTypeKaspa, Hardened: true},
		{Index: account, Hardened: true},
		{Index: chain},
		{Index: index},
	}
}

// String returns the path in "m/..." notation.
func (p DerivationPath) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, s := range p {
		sb.WriteByte('/')
		sb.WriteString(s.String())
	}
	return sb.String()
}
