package nft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/giankylabs/relayer/pkg/config"
)

// Publisher turns tier metadata into a resolvable token URI
type Publisher struct {
	uploader   Uploader
	gatewayURL string
	logger     *zap.Logger
}

// NewPublisher creates a publisher using cfg's IPFS endpoints
func NewPublisher(cfg config.IPFSConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		uploader:   NewHTTPUploader(cfg.APIURL),
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		logger:     logger,
	}
}

// NewPublisherWithUploader creates a publisher over a custom uploader
func NewPublisherWithUploader(uploader Uploader, gatewayURL string, logger *zap.Logger) *Publisher {
	return &Publisher{
		uploader:   uploader,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		logger:     logger,
	}
}

// MetadataURI builds, pins and addresses the metadata document for a mint.
// Pinning failures degrade to the static fallback URI rather than blocking
// the mint.
func (p *Publisher) MetadataURI(ctx context.Context, tier string, owner common.Address) string {
	metadata := BuildMetadata(tier, owner, time.Now())
	payload, err := json.Marshal(metadata)
	if err != nil {
		p.logger.Error("Failed to encode NFT metadata", zap.String("tier", tier), zap.Error(err))
		return FallbackURI(tier)
	}

	cid, err := p.uploader.Add(ctx, "metadata.json", payload)
	if err != nil {
		p.logger.Warn("Failed to pin NFT metadata, using fallback URI",
			zap.String("tier", tier),
			zap.Error(err))
		return FallbackURI(tier)
	}

	return fmt.Sprintf("%s/%s", p.gatewayURL, cid)
}
