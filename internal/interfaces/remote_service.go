package interfaces

import (
	"context"
	"encoding/json"
	"net/url"
)

// RemoteService is the job/task REST service the cascade engine drives.
// Every call carries the caller's passkey as a bearer credential; an empty
// passkey is rejected before any request is made.
type RemoteService interface {
	// Read GETs a collection endpoint and returns its records keyed by id.
	Read(ctx context.Context, path string, query url.Values, passkey string) (map[string]json.RawMessage, error)

	// ReadRecord GETs a single resource and decodes it into out.
	ReadRecord(ctx context.Context, path string, query url.Values, passkey string, out interface{}) error

	// Write PUTs body to a single resource and returns the response record.
	Write(ctx context.Context, path string, body interface{}, passkey string) (json.RawMessage, error)

	// BulkWrite POSTs body to a bulk action endpoint.
	BulkWrite(ctx context.Context, path string, body interface{}, passkey string) error

	// Delete removes a sub-resource.
	Delete(ctx context.Context, path string, passkey string) error
}
