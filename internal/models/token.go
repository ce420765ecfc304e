package models

import "time"

// TokenFacts represents the static facts of a token contract
type TokenFacts struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"total_supply"` // decimal string, already scaled by Decimals
	Decimals    int    `json:"decimals"`

	// Empty means the explorer has no verified source for the contract
	RawContractSource string `json:"-"`
}

// IsOpenSource reports whether verified source code is available
func (t TokenFacts) IsOpenSource() bool {
	return t.RawContractSource != ""
}

// TokenMetadata is what an ERC-20 contract reports about itself
type TokenMetadata struct {
	Name        string
	Symbol      string
	TotalSupply string
	Decimals    int
}

// UnknownMetadata is substituted when the contract cannot be queried
func UnknownMetadata() TokenMetadata {
	return TokenMetadata{
		Name:        "Unknown",
		Symbol:      "???",
		TotalSupply: "0",
		Decimals:    18,
	}
}

// LiquidityFacts holds market depth and holder distribution
type LiquidityFacts struct {
	LiquidityUSD      float64 `json:"liquidity_usd"`
	PriceUSD          float64 `json:"price_usd"`
	TopHoldersPercent float64 `json:"top_holders_percent"`
}

// Transfer is a single token transfer as reported by the explorer
type Transfer struct {
	Hash        string    `json:"hash"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       string    `json:"value"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
}

// TransactionFacts is the recent transfer history, most recent first
type TransactionFacts struct {
	Transfers []Transfer `json:"transfers"`
}

// Holder represents one entry of the explorer holder list
type Holder struct {
	Address string `json:"TokenHolderAddress"`
	Balance string `json:"TokenHolderQuantity"`
}

// DexScreenerPair represents a trading pair from DexScreener
type DexScreenerPair struct {
	ChainID  string `json:"chainId"`
	PriceUSD string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
}

// HoneyPotHolder represents a top holder reported by honeypot.is
type HoneyPotHolder struct {
	Address    string `json:"address"`
	Balance    string `json:"balance"`
	IsContract bool   `json:"isContract"`
}
