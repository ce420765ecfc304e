package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdt = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

type fakeCaller struct {
	reader  *Reader
	results map[string]interface{}
	fail    map[string]bool
	calls   int
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	for name, method := range f.reader.abi.Methods {
		if !bytes.Equal(call.Data[:4], method.ID) {
			continue
		}
		if f.fail[name] {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(f.results[name])
	}
	return nil, errors.New("unknown selector")
}

func newFakeReader(t *testing.T, results map[string]interface{}, fail map[string]bool) (*Reader, *fakeCaller) {
	t.Helper()
	fake := &fakeCaller{results: results, fail: fail}
	r, err := NewReader(fake)
	require.NoError(t, err)
	fake.reader = r
	return r, fake
}

func TestLookup(t *testing.T) {
	n, err := Lookup("Polygon")
	require.NoError(t, err)
	assert.Equal(t, int64(137), n.ChainID)
	assert.Equal(t, "polygon-pos", n.CoinGeckoPlatform)

	n, err = Lookup("bsc")
	require.NoError(t, err)
	assert.Equal(t, int64(56), n.ChainID)

	_, err = Lookup("solana")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)

	assert.Equal(t, []string{"bsc", "ethereum", "polygon"}, Names())
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress(usdt))
	assert.True(t, IsValidAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, IsValidAddress("dAC17F958D2ee523a2206206994597C13D831ec7"))
	assert.False(t, IsValidAddress("0x1234"))
	assert.False(t, IsValidAddress("0xZZC17F958D2ee523a2206206994597C13D831ec7"))
	assert.False(t, IsValidAddress(""))
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  " + usdt + " ")
	require.NoError(t, err)
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", got)

	_, err = NormalizeAddress("not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(1_500_000), 6, "1.5"},
		{big.NewInt(1_000_000), 6, "1"},
		{big.NewInt(1), 18, "0.000000000000000001"},
		{big.NewInt(0), 18, "0"},
		{big.NewInt(42), 0, "42"},
		{big.NewInt(-2_500), 3, "-2.5"},
		{nil, 18, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUnits(tt.amount, tt.decimals))
	}
}

func TestReader_Metadata(t *testing.T) {
	supply, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	r, _ := newFakeReader(t, map[string]interface{}{
		"name":        "Test Token",
		"symbol":      "TST",
		"decimals":    uint8(18),
		"totalSupply": supply,
	}, nil)

	meta, err := r.Metadata(context.Background(), usdt)
	require.NoError(t, err)
	assert.Equal(t, "Test Token", meta.Name)
	assert.Equal(t, "TST", meta.Symbol)
	assert.Equal(t, 18, meta.Decimals)
	assert.Equal(t, "1000000", meta.TotalSupply)
}

func TestReader_MetadataFailsAsAWhole(t *testing.T) {
	r, fake := newFakeReader(t, map[string]interface{}{
		"name":   "Half Token",
		"symbol": "HALF",
	}, map[string]bool{"decimals": true})

	_, err := r.Metadata(context.Background(), usdt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimals")
	assert.Equal(t, 3, fake.calls)
}

func TestReader_InvalidAddress(t *testing.T) {
	r, fake := newFakeReader(t, nil, nil)
	_, err := r.Metadata(context.Background(), "0x12")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Zero(t, fake.calls)
}

func TestReaders_UnknownNetwork(t *testing.T) {
	rs := NewReaders(map[string]*Reader{})
	_, err := rs.Metadata(context.Background(), "ethereum", usdt)
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}
