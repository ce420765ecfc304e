package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
)

// erc20MetadataABI covers the read-only ERC-20 metadata getters
const erc20MetadataABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Caller abstracts the go-ethereum client for testing
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader reads ERC-20 metadata from one network
type Reader struct {
	client Caller
	abi    abi.ABI
}

// NewReader wraps an RPC client
func NewReader(client Caller) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20MetadataABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}
	return &Reader{client: client, abi: parsed}, nil
}

// Metadata reads name, symbol, decimals and total supply. Any failed getter
// fails the whole read; callers substitute models.UnknownMetadata.
func (r *Reader) Metadata(ctx context.Context, address string) (models.TokenMetadata, error) {
	if !IsValidAddress(address) {
		return models.TokenMetadata{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	token := common.HexToAddress(address)

	name, err := r.call(ctx, token, "name")
	if err != nil {
		return models.TokenMetadata{}, err
	}
	symbol, err := r.call(ctx, token, "symbol")
	if err != nil {
		return models.TokenMetadata{}, err
	}
	decimals, err := r.call(ctx, token, "decimals")
	if err != nil {
		return models.TokenMetadata{}, err
	}
	supply, err := r.call(ctx, token, "totalSupply")
	if err != nil {
		return models.TokenMetadata{}, err
	}

	nameStr, ok1 := name.(string)
	symbolStr, ok2 := symbol.(string)
	dec, ok3 := decimals.(uint8)
	total, ok4 := supply.(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return models.TokenMetadata{}, fmt.Errorf("unexpected ERC-20 return types from %s", address)
	}

	return models.TokenMetadata{
		Name:        nameStr,
		Symbol:      symbolStr,
		Decimals:    int(dec),
		TotalSupply: FormatUnits(total, int(dec)),
	}, nil
}

func (r *Reader) call(ctx context.Context, token common.Address, method string) (interface{}, error) {
	data, err := r.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := r.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(values))
	}
	return values[0], nil
}

// FormatUnits renders an integer amount scaled down by decimals, without
// trailing fractional zeros: 1500000 with 6 decimals is "1.5".
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	abs := new(big.Int).Abs(amount)
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, unit, new(big.Int))

	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}

	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		return sign + whole.String()
	}
	return sign + whole.String() + "." + fracStr
}

// Readers holds one metadata reader per network
type Readers struct {
	readers map[string]*Reader
	clients []*ethclient.Client
}

// NewReaders builds a Readers set from already constructed readers, keyed by network name
func NewReaders(readers map[string]*Reader) *Readers {
	return &Readers{readers: readers}
}

// DialAll connects to every RPC URL keyed by network name. Empty URLs are skipped.
func DialAll(ctx context.Context, rpcURLs map[string]string) (*Readers, error) {
	rs := &Readers{readers: make(map[string]*Reader, len(rpcURLs))}
	for name, url := range rpcURLs {
		if url == "" {
			continue
		}
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			rs.Close()
			return nil, fmt.Errorf("failed to dial %s RPC: %w", name, err)
		}
		rs.clients = append(rs.clients, client)

		reader, err := NewReader(client)
		if err != nil {
			rs.Close()
			return nil, err
		}
		rs.readers[name] = reader
	}
	return rs, nil
}

// Metadata reads token metadata on the named network
func (rs *Readers) Metadata(ctx context.Context, network, address string) (models.TokenMetadata, error) {
	r, ok := rs.readers[network]
	if !ok {
		return models.TokenMetadata{}, fmt.Errorf("%w: no RPC endpoint for %q", ErrUnsupportedNetwork, network)
	}
	return r.Metadata(ctx, address)
}

// Close releases all RPC connections
func (rs *Readers) Close() {
	for _, c := range rs.clients {
		c.Close()
	}
	rs.clients = nil
}
