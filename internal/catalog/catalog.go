// Package catalog turns Cloudinary search results into the video listing
// served to the frontend.
package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"netrasarthi-media/internal/cloudinary"
)

const (
	uploadMarker        = "/upload/"
	thumbnailTransform  = "w_400,h_300,c_fill/"
	identifierSeparator = "/"
)

// AssetView is the response-facing representation of a single video.
type AssetView struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	Thumbnail       string  `json:"thumbnail"`
	PublicID        string  `json:"public_id"`
	CreatedAt       string  `json:"created_at"`
	DurationSeconds float64 `json:"duration"`
	ByteSize        int64   `json:"bytes"`
	Format          string  `json:"format"`
}

// Normalize maps every asset to its view, preserving order. The result is
// never nil so an empty listing encodes as [].
func Normalize(assets []cloudinary.Asset) []AssetView {
	views := make([]AssetView, 0, len(assets))
	for _, asset := range assets {
		views = append(views, View(asset))
	}
	return views
}

// View builds the AssetView for a single asset.
func View(asset cloudinary.Asset) AssetView {
	view := AssetView{
		ID:        asset.PublicID,
		Title:     Title(asset),
		URL:       asset.SecureURL,
		Thumbnail: Thumbnail(asset.SecureURL),
		PublicID:  asset.PublicID,
		CreatedAt: asset.CreatedAt,
		ByteSize:  asset.Bytes,
		Format:    asset.Format,
	}
	if asset.Duration != nil {
		view.DurationSeconds = *asset.Duration
	}
	return view
}

// Title prefers the caption stored in the asset's context. Without one it
// falls back to the last segment of the public id with underscores turned
// into spaces.
func Title(asset cloudinary.Asset) string {
	if caption, ok := asset.Caption(); ok {
		return caption
	}
	id := asset.PublicID
	if idx := strings.LastIndex(id, identifierSeparator); idx >= 0 {
		id = id[idx+len(identifierSeparator):]
	}
	return norm.NFC.String(strings.ReplaceAll(id, "_", " "))
}

// Thumbnail inserts a 400x300 fill crop right after the upload marker of a
// delivery URL. URLs where the marker is missing or ambiguous are returned
// unchanged.
func Thumbnail(secureURL string) string {
	if strings.Count(secureURL, uploadMarker) != 1 {
		return secureURL
	}
	return strings.Replace(secureURL, uploadMarker, uploadMarker+thumbnailTransform, 1)
}
