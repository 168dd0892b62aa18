package metadata_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"clipto/internal/metadata"
	"clipto/internal/services"
)

func TestParseNFT(t *testing.T) {
	raw := []byte(`{"name":"Shoutout","description":"For Sam","image":"ar://img","animation_url":"ar://vid"}`)
	nft, err := metadata.ParseNFT(raw)
	if err != nil {
		t.Fatalf("ParseNFT failed: %v", err)
	}
	if nft.AnimationURL != "ar://vid" || nft.Name != "Shoutout" {
		t.Fatalf("unexpected nft %+v", nft)
	}

	if _, err := metadata.ParseNFT([]byte(`{"name":"Shoutout"}`)); !errors.Is(err, services.ErrUnexpected) {
		t.Fatalf("expected schema failure, got %v", err)
	}
	if _, err := metadata.ParseNFT([]byte(`not json`)); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestTokenURI(t *testing.T) {
	if got := metadata.TokenURI("abc123"); got != "https://arweave.net/abc123" {
		t.Fatalf("unexpected uri %q", got)
	}
	if got := metadata.TokenURI("https://gateway.example/abc"); got != "https://gateway.example/abc" {
		t.Fatalf("absolute uri should pass through, got %q", got)
	}
}

func TestBuildPostMatchesSchema(t *testing.T) {
	post := metadata.BuildPost(metadata.PostInput{
		Video:   metadata.NFT{Description: "For Sam", Image: "ar://img", AnimationURL: "ar://vid"},
		Handle:  "alice.lens",
		Creator: "0xcreator",
		SiteURL: "https://clipto.io/",
		AppID:   "Clipto",
		Now:     time.Date(2022, 6, 17, 0, 2, 28, 0, time.UTC),
	})
	data, err := post.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["name"] != "Post by @alice.lens" {
		t.Fatalf("unexpected name %v", decoded["name"])
	}
	if decoded["description"] != "For Sam \n Created from https://clipto.io" {
		t.Fatalf("unexpected description %q", decoded["description"])
	}
	if decoded["external_url"] != "https://clipto.io/creator/0xcreator" {
		t.Fatalf("unexpected external url %v", decoded["external_url"])
	}
	if decoded["imageMimeType"] != nil || decoded["contentWarning"] != nil {
		t.Fatal("expected null mime type and content warning")
	}
	if !strings.Contains(string(data), `"type":"video/mp4"`) {
		t.Fatalf("expected video media entry in %s", data)
	}
}

func TestPostEncodeRejectsMissingMedia(t *testing.T) {
	post := metadata.BuildPost(metadata.PostInput{Handle: "alice", AppID: "Clipto", SiteURL: "https://clipto.io"})
	if _, err := post.Encode(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty media item, got %v", err)
	}
}
