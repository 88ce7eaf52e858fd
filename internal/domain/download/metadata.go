package download

// Metadata describes a remote video without downloading it.
type Metadata struct {
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
	TotalBytes   int64  `json:"total_bytes"`
}
