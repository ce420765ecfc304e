// Package chain knows the supported EVM networks and reads ERC-20 metadata over RPC.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnsupportedNetwork = errors.New("chain: unsupported network")
	ErrInvalidAddress     = errors.New("chain: invalid address")
)

// Network identifies an EVM chain and how third-party services name it
type Network struct {
	Name              string
	ChainID           int64
	CoinGeckoPlatform string
	DexScreenerChain  string
}

var networks = map[string]Network{
	"ethereum": {Name: "ethereum", ChainID: 1, CoinGeckoPlatform: "ethereum", DexScreenerChain: "ethereum"},
	"polygon":  {Name: "polygon", ChainID: 137, CoinGeckoPlatform: "polygon-pos", DexScreenerChain: "polygon"},
	"bsc":      {Name: "bsc", ChainID: 56, CoinGeckoPlatform: "binance-smart-chain", DexScreenerChain: "bsc"},
}

// Lookup resolves a network by name, case-insensitively
func Lookup(name string) (Network, error) {
	n, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, name)
	}
	return n, nil
}

// Names lists the supported network names in sorted order
func Names() []string {
	out := make([]string, 0, len(networks))
	for name := range networks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address
func IsValidAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return common.IsHexAddress(s)
}

// NormalizeAddress validates s and returns its lowercase form
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsValidAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}
