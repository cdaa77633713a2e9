// Package nft builds ERC-721 metadata documents and publishes them to IPFS.
package nft

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Attribute is one OpenSea-style metadata trait
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Metadata is the ERC-721 token metadata document
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// templates holds the base metadata for each membership tier
var templates = map[string]Metadata{
	"Starter NFT": {
		Name:        "Gianky Starter NFT",
		Description: "A starter NFT for new Gianky players",
		Image:       "https://your-cdn.com/nfts/starter.png",
		Attributes: []Attribute{
			{TraitType: "Rarity", Value: "Common"},
			{TraitType: "Type", Value: "Starter"},
			{TraitType: "Power", Value: 10},
		},
	},
	"Basic NFT": {
		Name:        "Gianky Basic NFT",
		Description: "A basic NFT for Gianky players",
		Image:       "https://your-cdn.com/nfts/basic.png",
		Attributes: []Attribute{
			{TraitType: "Rarity", Value: "Common"},
			{TraitType: "Type", Value: "Basic"},
			{TraitType: "Power", Value: 25},
		},
	},
	"Standard NFT": {
		Name:        "Gianky Standard NFT",
		Description: "A standard NFT for dedicated Gianky players",
		Image:       "https://your-cdn.com/nfts/standard.png",
		Attributes: []Attribute{
			{TraitType: "Rarity", Value: "Uncommon"},
			{TraitType: "Type", Value: "Standard"},
			{TraitType: "Power", Value: 50},
		},
	},
	"VIP NFT": {
		Name:        "Gianky VIP NFT",
		Description: "A VIP NFT for premium Gianky players",
		Image:       "https://your-cdn.com/nfts/vip.png",
		Attributes: []Attribute{
			{TraitType: "Rarity", Value: "Rare"},
			{TraitType: "Type", Value: "VIP"},
			{TraitType: "Power", Value: 100},
		},
	},
	"Premium NFT": {
		Name:        "Gianky Premium NFT",
		Description: "A premium NFT for elite Gianky players",
		Image:       "https://your-cdn.com/nfts/premium.png",
		Attributes: []Attribute{
			{TraitType: "Rarity", Value: "Epic"},
			{TraitType: "Type", Value: "Premium"},
			{TraitType: "Power", Value: 200},
		},
	},
	"Diamond NFT": {
		Name:        "Gianky Diamond NFT",
		Description: "The ultimate Diamond NFT for legendary Gianky players",
		Image:       "https://your-cdn.com/nfts/diamond.png",
		Attributes: []Attribute{
			{TraitType: "Rarity", Value: "Legendary"},
			{TraitType: "Type", Value: "Diamond"},
			{TraitType: "Power", Value: 500},
		},
	},
}

// Tiers returns the known tier names
func Tiers() []string {
	out := make([]string, 0, len(templates))
	for tier := range templates {
		out = append(out, tier)
	}
	return out
}

// KnownTier reports whether tier has a metadata template
func KnownTier(tier string) bool {
	_, ok := templates[tier]
	return ok
}

// BuildMetadata produces the metadata document for a tier, stamped with the
// owner and mint time. Unknown tiers fall back to the starter template.
func BuildMetadata(tier string, owner common.Address, mintedAt time.Time) *Metadata {
	template, ok := templates[tier]
	if !ok {
		template = templates["Starter NFT"]
	}

	attrs := make([]Attribute, len(template.Attributes), len(template.Attributes)+2)
	copy(attrs, template.Attributes)
	attrs = append(attrs,
		Attribute{TraitType: "Owner", Value: owner.Hex()[:10] + "..."},
		Attribute{TraitType: "Minted Date", Value: strconv.FormatInt(mintedAt.Unix(), 10)},
	)

	return &Metadata{
		Name:        template.Name,
		Description: template.Description,
		Image:       template.Image,
		Attributes:  attrs,
	}
}

// FallbackURI is the static metadata location used when IPFS publishing fails
func FallbackURI(tier string) string {
	slug := strings.ToLower(strings.ReplaceAll(tier, " ", "-"))
	return fmt.Sprintf("https://api.gianky.com/nft-metadata/%s", slug)
}
