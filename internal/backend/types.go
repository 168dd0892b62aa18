package backend

import (
	"strings"

	"clipto/internal/queue"
)

// UploadLinkRequest asks the backend for a signed resumable upload target.
type UploadLinkRequest struct {
	Signed    string `json:"signed"`
	Address   string `json:"address"`
	Message   string `json:"message"`
	Extension string `json:"extension"`
}

// UploadLink is the backend's answer to an upload link request.
type UploadLink struct {
	JobUUID   string `json:"job_uuid"`
	UploadURL string `json:"upload_url"`
}

// UploadStatus reports the remote transcode of an uploaded file.
type UploadStatus struct {
	TranscodingComplete string `json:"transcoding_complete"`
	ImageComplete       bool   `json:"image_complete"`
	VideoComplete       bool   `json:"video_complete"`
}

// Ready reports whether both renditions exist and finalize may run.
func (s UploadStatus) Ready() bool {
	return strings.EqualFold(strings.TrimSpace(s.TranscodingComplete), "succeeded") && s.ImageComplete && s.VideoComplete
}

// JobStatus maps the transcode payload onto the job lifecycle. A succeeded
// transcode whose renditions are still missing counts as in progress.
func (s UploadStatus) JobStatus() queue.JobStatus {
	switch strings.ToLower(strings.TrimSpace(s.TranscodingComplete)) {
	case "succeeded":
		if s.Ready() {
			return queue.JobSucceeded
		}
		return queue.JobInProgress
	case "failed", "errored", "error", "canceled":
		return queue.JobFailed
	case "", "pending", "queued":
		return queue.JobPending
	default:
		return queue.JobInProgress
	}
}

// FinalizeRequest turns a transcoded upload into NFT metadata.
type FinalizeRequest struct {
	UploadUUID  string `json:"uploadUuid"`
	Description string `json:"description"`
	Name        string `json:"name"`
}

// FinalizeResult carries the content-addressed metadata id.
type FinalizeResult struct {
	ArweaveMetadata string `json:"arweave_metadata"`
}

// IndexRequest asks the backend to index a delivered request. MintKey lets the
// backend drop duplicate submissions.
type IndexRequest struct {
	TxHash  string `json:"txHash"`
	MintKey string `json:"mintKey,omitempty"`
}

// IndexResult is the backend's answer to an index request. An empty answer
// means the request was indexed.
type IndexResult struct {
	Indexed *bool  `json:"indexed,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Done reports whether the backend indexed the request.
func (r IndexResult) Done() bool {
	return r.Indexed == nil || *r.Indexed
}

// RequestCreator is the creator block embedded in a booking request.
type RequestCreator struct {
	Address         string `json:"address"`
	UserName        string `json:"userName"`
	NFTTokenAddress string `json:"nftTokenAddress"`
}

// Request is a booking request as stored by the backend.
type Request struct {
	ID              string         `json:"id"`
	RequestID       string         `json:"requestId"`
	Version         string         `json:"version"`
	Creator         RequestCreator `json:"creator"`
	Requester       string         `json:"requester"`
	Description     string         `json:"description"`
	Delivered       bool           `json:"delivered"`
	NFTTokenAddress string         `json:"nftTokenAddress"`
	NFTTokenID      string         `json:"nftTokenId"`
	NFTTokenURI     string         `json:"nftTokenUri"`
}

type requestsResponse struct {
	Requests []Request `json:"requests"`
}

// User is a creator profile.
type User struct {
	ID             string   `json:"id,omitempty"`
	Address        string   `json:"address"`
	UserName       string   `json:"userName"`
	Bio            string   `json:"bio"`
	ProfilePicture string   `json:"profilePicture"`
	DeliveryTime   int      `json:"deliveryTime"`
	Price          float64  `json:"price"`
	TweetURL       string   `json:"tweetUrl,omitempty"`
	TwitterHandle  string   `json:"twitterHandle,omitempty"`
	Demos          []string `json:"demos"`
}

// SignedUser is a profile write authenticated by a personal_sign signature.
type SignedUser struct {
	User
	Message string `json:"message"`
	Signed  string `json:"signed"`
}
