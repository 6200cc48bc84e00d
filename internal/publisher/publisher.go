// Package publisher defines how generation events leave the service.
package publisher

import "context"

// TopicKeywordsGenerated carries GeneratedEvent payloads.
const TopicKeywordsGenerated = "keywords.generated"

// Publisher pushes events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// GeneratedEvent announces a finished keyword generation run.
type GeneratedEvent struct {
	RequestID string `json:"request_id,omitempty"`
	Domain    string `json:"domain"`
	URLs      int    `json:"urls"`
	Keywords  int    `json:"keywords"`
	BlobURI   string `json:"blob_uri,omitempty"`
}
