package reward

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Kind distinguishes NFT mints from token payouts
type Kind string

const (
	KindNFT   Kind = "nft"
	KindToken Kind = "token"
)

// Token symbols the catalog pays out in. MATIC is the chain's native coin,
// GIANKY an ERC-20.
const (
	TokenMatic  = "MATIC"
	TokenGianky = "GIANKY"
)

// ErrUnknownReward is returned for a claim naming no catalog entry
var ErrUnknownReward = errors.New("unknown reward")

// Entry describes what a catalog label pays out
type Entry struct {
	Kind   Kind
	Tier   string
	Token  string
	Amount decimal.Decimal
}

// catalog maps the game's reward labels to their payouts. The labels are the
// exact strings the game client sends, emoji included.
var catalog = map[string]Entry{
	"🎯 Starter NFT":  {Kind: KindNFT, Tier: "Starter NFT"},
	"⭐ Basic NFT":    {Kind: KindNFT, Tier: "Basic NFT"},
	"🏅 Standard NFT": {Kind: KindNFT, Tier: "Standard NFT"},
	"👑 VIP NFT":      {Kind: KindNFT, Tier: "VIP NFT"},
	"💎 Premium NFT":  {Kind: KindNFT, Tier: "Premium NFT"},
	"💍 Diamond NFT":  {Kind: KindNFT, Tier: "Diamond NFT"},

	"🪙 10 Polygon": {Kind: KindToken, Token: TokenMatic, Amount: decimal.NewFromInt(10)},
	"🪙 20 Polygon": {Kind: KindToken, Token: TokenMatic, Amount: decimal.NewFromInt(20)},
	"🪙 25 Polygon": {Kind: KindToken, Token: TokenMatic, Amount: decimal.NewFromInt(25)},
	"🪙 50 Polygon": {Kind: KindToken, Token: TokenMatic, Amount: decimal.NewFromInt(50)},

	"💰 10 Gianky Coin": {Kind: KindToken, Token: TokenGianky, Amount: decimal.NewFromInt(10)},
	"💰 20 Gianky Coin": {Kind: KindToken, Token: TokenGianky, Amount: decimal.NewFromInt(20)},
	"💰 25 Gianky Coin": {Kind: KindToken, Token: TokenGianky, Amount: decimal.NewFromInt(25)},
	"💰 30 Gianky Coin": {Kind: KindToken, Token: TokenGianky, Amount: decimal.NewFromInt(30)},
	"💰 50 Gianky Coin": {Kind: KindToken, Token: TokenGianky, Amount: decimal.NewFromInt(50)},
}

// Lookup resolves a reward label to its catalog entry
func Lookup(label string) (Entry, error) {
	entry, ok := catalog[label]
	if !ok {
		return Entry{}, ErrUnknownReward
	}
	return entry, nil
}

// Labels returns every claimable reward label
func Labels() []string {
	out := make([]string, 0, len(catalog))
	for label := range catalog {
		out = append(out, label)
	}
	return out
}
