package types

// ImageCleanupEvent asks the cleanup worker to remove an orphaned image
// asset from object storage. Published on post deletion and consumed
// best-effort.
type ImageCleanupEvent struct {
	PostID   string `json:"post_id"`
	ImageKey string `json:"image_key"`
}
