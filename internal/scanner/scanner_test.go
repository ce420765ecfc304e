package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const pausableToken = `
pragma solidity ^0.8.0;

contract Token is Ownable {
    mapping(address => bool) private _blacklist;
    uint256 public fee;

    function mint(address to, uint256 amount) external onlyOwner {
        _mint(to, amount);
    }

    function pause() external onlyOwner { _paused = true; }

    function blacklist(address account) external onlyOwner {
        _blacklist[account] = true;
    }

    function setFee(uint256 newFee) external onlyOwner {
        fee = newFee;
    }
}
`

func TestScan_AllLabelsInTaxonomyOrder(t *testing.T) {
	got := Scan(pausableToken)
	assert.Equal(t, []Label{
		ArbitraryMint,
		EmergencyPause,
		PrivilegedAccessControl,
		AddressDenylist,
		FeeMutation,
	}, got)
}

func TestScan_Individual(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Label
	}{
		{"empty", "", []Label{}},
		{"garbage", "\x00\x01}{)(", []Label{}},
		{"mint with args", "function mint(address to, uint256 amount)", []Label{ArbitraryMint}},
		{"underscore mint", "_mint(msg.sender, 1000);", []Label{ArbitraryMint}},
		{"mint case insensitive", "MINT (a)", []Label{ArbitraryMint}},
		{"mint without call", "uint256 mintable = 1;", []Label{}},
		{"unpause", "function unpause() public", []Label{EmergencyPause}},
		{"setPaused", "setPaused(true);", []Label{EmergencyPause}},
		{"onlyAdmin modifier", "function x() external onlyAdmin {}", []Label{PrivilegedAccessControl}},
		{"owner guard", "require( owner == msg.sender );", []Label{PrivilegedAccessControl}},
		{"freeze", "freeze(account)", []Label{AddressDenylist}},
		{"ban", "function ban(address a) external", []Label{AddressDenylist}},
		{"updateFee", "updateFee(5)", []Label{FeeMutation}},
		{"changeFee spaced", "changeFee  (1, 2)", []Label{FeeMutation}},
		{"safe erc20", "function transfer(address to, uint256 amount) public returns (bool)", []Label{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.source))
		})
	}
}

func TestScan_OrderIgnoresInputOrder(t *testing.T) {
	source := "setFee(1); freeze(a); onlyOwner; pause(); mint(a, 1);"
	assert.Equal(t, Labels(), Scan(source))
}

func TestScan_LabelAppearsOnce(t *testing.T) {
	source := "mint(a); mint(b); _mint(c); MINT(d);"
	assert.Equal(t, []Label{ArbitraryMint}, Scan(source))
}

func TestScan_Idempotent(t *testing.T) {
	first := Scan(pausableToken)
	second := Scan(pausableToken)
	assert.Equal(t, first, second)
}
