package cloudinary

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResourceTypeVideo scopes searches and deletions to video assets.
const ResourceTypeVideo = "video"

// Asset is a single resource as returned by the Search API.
type Asset struct {
	PublicID     string        `json:"public_id"`
	SecureURL    string        `json:"secure_url"`
	Context      *AssetContext `json:"context,omitempty"`
	CreatedAt    string        `json:"created_at"`
	Duration     *float64      `json:"duration,omitempty"`
	Bytes        int64         `json:"bytes"`
	Format       string        `json:"format"`
	ResourceType string        `json:"resource_type,omitempty"`
}

// Caption returns the custom caption stored in the asset's contextual
// metadata, if one is set.
func (a Asset) Caption() (string, bool) {
	if a.Context == nil {
		return "", false
	}
	caption, ok := a.Context.Custom["caption"]
	if !ok || caption == "" {
		return "", false
	}
	return caption, true
}

// AssetContext carries contextual metadata. The Admin API nests the values
// under "custom" while the Search API returns them flattened; both decode
// into Custom.
type AssetContext struct {
	Custom map[string]string `json:"custom,omitempty"`
}

func (c *AssetContext) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode asset context: %w", err)
	}
	custom := make(map[string]string)
	if nested, ok := raw["custom"]; ok {
		var values map[string]string
		if err := json.Unmarshal(nested, &values); err != nil {
			return fmt.Errorf("decode asset context custom: %w", err)
		}
		for key, value := range values {
			custom[key] = value
		}
	}
	for key, value := range raw {
		if key == "custom" {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			continue
		}
		if _, exists := custom[key]; !exists {
			custom[key] = text
		}
	}
	c.Custom = custom
	return nil
}

// SortDirection orders search results.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortField orders search results by a single attribute.
type SortField struct {
	Field     string
	Direction SortDirection
}

func (s SortField) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]SortDirection{s.Field: s.Direction})
}

// SearchQuery is the body of a Search API request.
type SearchQuery struct {
	Expression string      `json:"expression,omitempty"`
	SortBy     []SortField `json:"sort_by,omitempty"`
	MaxResults int         `json:"max_results,omitempty"`
	NextCursor string      `json:"next_cursor,omitempty"`
	WithField  []string    `json:"with_field,omitempty"`
}

// FieldContext asks the Search API to include contextual metadata, which it
// leaves out of results by default.
const FieldContext = "context"

// VideoQuery returns the query used for the video listing: every video
// asset with its context, newest first, capped at limit results.
func VideoQuery(limit int) SearchQuery {
	return SearchQuery{
		Expression: "resource_type:" + ResourceTypeVideo,
		SortBy:     []SortField{{Field: "created_at", Direction: SortDescending}},
		MaxResults: limit,
		WithField:  []string{FieldContext},
	}
}

// SearchResult is the decoded Search API response.
type SearchResult struct {
	TotalCount int     `json:"total_count"`
	Time       int     `json:"time"`
	NextCursor string  `json:"next_cursor,omitempty"`
	Resources  []Asset `json:"resources"`
}

// DestroyResult is the destroy response body, kept verbatim so callers can
// relay it without reshaping.
type DestroyResult = json.RawMessage

// APIError is returned when Cloudinary rejects a call. StatusCode is zero
// when the SDK reported the failure through the response body alone.
type APIError struct {
	StatusCode int
	Operation  string
	Message    string
}

func (e *APIError) Error() string {
	if message := strings.TrimSpace(e.Message); message != "" {
		return message
	}
	if e.Operation == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
