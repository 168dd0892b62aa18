package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipto/internal/services"
)

// PostAttribute is a Lens metadata attribute.
type PostAttribute struct {
	TraitType string `json:"traitType"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// PostMedia is a media entry of a Lens post.
type PostMedia struct {
	Item   string `json:"item"`
	Type   string `json:"type"`
	AltTag string `json:"altTag"`
}

// Post is Lens publication metadata.
type Post struct {
	Version          string          `json:"version"`
	MetadataID       string          `json:"metadata_id"`
	Description      string          `json:"description"`
	Content          string          `json:"content"`
	ExternalURL      string          `json:"external_url"`
	Image            string          `json:"image"`
	ImageMimeType    *string         `json:"imageMimeType"`
	Name             string          `json:"name"`
	MainContentFocus string          `json:"mainContentFocus"`
	ContentWarning   *string         `json:"contentWarning"`
	Attributes       []PostAttribute `json:"attributes"`
	Media            []PostMedia     `json:"media"`
	CreatedOn        string          `json:"createdOn"`
	AppID            string          `json:"appId"`
}

// PostInput carries what a delivered video contributes to a post.
type PostInput struct {
	Video   NFT
	Handle  string
	Creator string
	SiteURL string
	AppID   string
	Now     time.Time
}

// BuildPost assembles the Lens metadata for sharing a delivered video.
func BuildPost(in PostInput) Post {
	site := strings.TrimRight(in.SiteURL, "/")
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Post{
		Version:          "1.0.0",
		MetadataID:       uuid.NewString(),
		Description:      fmt.Sprintf("%s \n Created from %s", in.Video.Description, site),
		Content:          "Created from " + site,
		ExternalURL:      fmt.Sprintf("%s/creator/%s", site, in.Creator),
		Image:            in.Video.Image,
		Name:             "Post by @" + in.Handle,
		MainContentFocus: "TEXT",
		Attributes:       []PostAttribute{{TraitType: "string", Key: "type", Value: "post"}},
		Media:            []PostMedia{{Item: in.Video.AnimationURL, Type: "video/mp4"}},
		CreatedOn:        now.UTC().Format(time.RFC3339Nano),
		AppID:            in.AppID,
	}
}

// Encode validates the post and returns its JSON.
func (p Post) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode post: %w", err)
	}
	if err := validate(postSchema, data); err != nil {
		return nil, services.Wrap(services.ErrValidation, "share", "post metadata", "invalid lens post", err)
	}
	return data, nil
}
