package models

// Known media types returned by the content-metadata API.
const (
	MimeTypePackage      = "application/vnd.ekstep.html-archive"
	MimeTypeVideo        = "video/mp4"
	MimeTypeExternalLink = "text/x-url"
)

// ContentRecord is the resolved metadata for one content identifier.
// It is transient: produced by a single resolver call and consumed
// immediately by the processor, never persisted.
type ContentRecord struct {
	ID          string   `json:"identifier"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType"`
	ArtifactURL string   `json:"artifactUrl"`
	// ChildIDs preserves the API-returned order; processing order follows it.
	ChildIDs []string `json:"childNodes"`
}

// IsPackage reports whether the record is a downloadable course package.
func (c *ContentRecord) IsPackage() bool { return c.MimeType == MimeTypePackage }

// IsVideo reports whether the record is a portal-hosted video.
func (c *ContentRecord) IsVideo() bool { return c.MimeType == MimeTypeVideo }

// IsExternalLink reports whether the record points at externally hosted content.
func (c *ContentRecord) IsExternalLink() bool { return c.MimeType == MimeTypeExternalLink }
