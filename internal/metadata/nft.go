package metadata

import (
	"encoding/json"
	"strings"

	"clipto/internal/services"
)

// ArweaveBase prefixes token URIs sent on chain.
const ArweaveBase = "https://arweave.net/"

// NFT is the metadata document minted for a delivery.
type NFT struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	AnimationURL string `json:"animation_url"`
	ExternalURL  string `json:"external_url,omitempty"`
}

// ParseNFT validates raw metadata and decodes it.
func ParseNFT(raw []byte) (NFT, error) {
	if err := validate(nftSchema, raw); err != nil {
		return NFT{}, services.Wrap(services.ErrUnexpected, "metadata", "parse", "invalid nft metadata", err)
	}
	var nft NFT
	if err := json.Unmarshal(raw, &nft); err != nil {
		return NFT{}, services.Wrap(services.ErrUnexpected, "metadata", "parse", "decode nft metadata", err)
	}
	return nft, nil
}

// TokenURI returns the on-chain token URI for a metadata id.
func TokenURI(metadataID string) string {
	metadataID = strings.TrimSpace(metadataID)
	if strings.HasPrefix(metadataID, "http://") || strings.HasPrefix(metadataID, "https://") {
		return metadataID
	}
	return ArweaveBase + strings.TrimLeft(metadataID, "/")
}
