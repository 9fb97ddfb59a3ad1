package immich

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// ListAlbums lists all albums. With shared set, only shared albums are returned.
func (c *Client) ListAlbums(ctx context.Context, shared bool, opts ...RequestOption) ([]Album, error) {
	var params url.Values
	if shared {
		params = url.Values{"shared": {"true"}}
	}

	var albums []Album
	if err := c.Get(ctx, "/albums", params, &albums, opts...); err != nil {
		return nil, err
	}

	return albums, nil
}

// GetAlbum fetches a single album including its assets.
func (c *Client) GetAlbum(ctx context.Context, albumID string, opts ...RequestOption) (*Album, error) {
	var album Album
	if err := c.Get(ctx, "/albums/"+url.PathEscape(albumID), nil, &album, opts...); err != nil {
		return nil, err
	}

	return &album, nil
}

// CreateAlbum creates a new album
func (c *Client) CreateAlbum(ctx context.Context, params CreateAlbumParams) (*Album, error) {
	body := map[string]interface{}{
		"albumName": params.Name,
	}
	if params.Description != "" {
		body["description"] = params.Description
	}
	if len(params.AssetIDs) > 0 {
		body["assetIds"] = params.AssetIDs
	}

	var album Album
	if err := c.Post(ctx, "/albums", body, &album); err != nil {
		return nil, err
	}

	return &album, nil
}

// AddAssetsToAlbum adds assets to an album
func (c *Client) AddAssetsToAlbum(ctx context.Context, albumID string, assetIDs []string) (*BulkIDResult, error) {
	body := map[string]interface{}{
		"ids": assetIDs,
	}

	var results []BulkIDResponse
	if err := c.Put(ctx, "/albums/"+url.PathEscape(albumID)+"/assets", body, &results); err != nil {
		return nil, err
	}

	return NewBulkIDResult(results), nil
}

// FindAlbumByName returns the first album whose name matches name, ignoring case.
// The album list is always fetched fresh.
func (c *Client) FindAlbumByName(ctx context.Context, name string) (*Album, error) {
	albums, err := c.ListAlbums(ctx, false, WithoutCache())
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}

	for i := range albums {
		if strings.EqualFold(albums[i].AlbumName, name) {
			return &albums[i], nil
		}
	}

	return nil, nil
}

// FindOrCreateAlbum resolves name to an album ID, creating the album when none matches.
// The second return value reports whether a new album was created.
func (c *Client) FindOrCreateAlbum(ctx context.Context, name, description string) (string, bool, error) {
	existing, err := c.FindAlbumByName(ctx, name)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	album, err := c.CreateAlbum(ctx, CreateAlbumParams{
		Name:        name,
		Description: description,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to create album: %w", err)
	}

	log.Info().
		Str("album_id", album.ID).
		Str("album_name", name).
		Msg("Created album")

	return album.ID, true, nil
}
