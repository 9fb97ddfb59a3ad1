package tools

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

// AlbumsAdapter exposes album management tools.
type AlbumsAdapter struct {
	*toolSet
	client *immich.Client
}

// MembershipResult reports which of the queried assets belong to an album.
type MembershipResult struct {
	Results        map[string]bool `json:"results"`
	MemberCount    int             `json:"memberCount"`
	NonMemberCount int             `json:"nonMemberCount"`
}

// BulkFailure is an item a bulk call could not process.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// NewAlbumsAdapter creates the albums adapter
func NewAlbumsAdapter(immichClient *immich.Client) *AlbumsAdapter {
	a := &AlbumsAdapter{toolSet: newToolSet(), client: immichClient}

	a.add(mcp.Tool{
		Name:        "listAlbums",
		Description: "List all albums with basic info (name, asset count, sharing)",
		InputSchema: objectSchema(map[string]interface{}{
			"shared": boolProp("Only return shared albums", false),
		}),
	}, a.listAlbums)

	a.add(mcp.Tool{
		Name:        "getAlbum",
		Description: "Get a single album, including its assets unless withoutAssets is set",
		InputSchema: objectSchema(map[string]interface{}{
			"albumId":       requiredStringProp("Album ID"),
			"withoutAssets": boolProp("Skip the asset list", false),
		}, "albumId"),
	}, a.getAlbum)

	a.add(mcp.Tool{
		Name:        "createAlbum",
		Description: "Create a new album, optionally seeded with assets",
		InputSchema: objectSchema(map[string]interface{}{
			"albumName":   requiredStringProp("Name of the new album"),
			"description": stringProp("Album description"),
			"assetIds": map[string]interface{}{
				"type":        "array",
				"description": "Assets to add to the album",
				"items":       map[string]interface{}{"type": "string"},
			},
		}, "albumName"),
	}, a.createAlbum)

	a.add(mcp.Tool{
		Name:        "updateAlbum",
		Description: "Rename an album or change its description",
		InputSchema: objectSchema(map[string]interface{}{
			"albumId":     requiredStringProp("Album ID"),
			"albumName":   stringProp("New album name"),
			"description": stringProp("New album description"),
		}, "albumId"),
	}, a.updateAlbum)

	a.add(mcp.Tool{
		Name:        "deleteAlbum",
		Description: "Delete an album. Assets in it are kept.",
		InputSchema: objectSchema(map[string]interface{}{
			"albumId": requiredStringProp("Album ID"),
		}, "albumId"),
	}, a.deleteAlbum)

	a.add(mcp.Tool{
		Name:        "addAssetsToAlbum",
		Description: "Add assets to an album",
		InputSchema: objectSchema(map[string]interface{}{
			"albumId":  requiredStringProp("Album ID"),
			"assetIds": idListProp("Asset IDs to add"),
		}, "albumId", "assetIds"),
	}, a.addAssetsToAlbum)

	a.add(mcp.Tool{
		Name:        "removeAssetsFromAlbum",
		Description: "Remove assets from an album. The assets themselves are kept.",
		InputSchema: objectSchema(map[string]interface{}{
			"albumId":  requiredStringProp("Album ID"),
			"assetIds": idListProp("Asset IDs to remove"),
		}, "albumId", "assetIds"),
	}, a.removeAssetsFromAlbum)

	a.add(mcp.Tool{
		Name:        "checkAssetsInAlbum",
		Description: "Check which of the given assets are members of an album",
		InputSchema: objectSchema(map[string]interface{}{
			"albumId":  requiredStringProp("Album ID"),
			"assetIds": idListProp("Asset IDs to check"),
		}, "albumId", "assetIds"),
	}, a.checkAssetsInAlbum)

	a.add(mcp.Tool{
		Name:        "moveAssetsToAlbum",
		Description: "Add assets to the album with the given name (case-insensitive), creating it if needed",
		InputSchema: objectSchema(map[string]interface{}{
			"assetIds":         idListProp("List of asset IDs to move"),
			"albumName":        requiredStringProp("Name of the album to move assets to"),
			"createAlbum":      boolProp("Create album if it doesn't exist", true),
			"albumDescription": stringProp("Description for the album if creating new"),
		}, "assetIds", "albumName"),
	}, a.moveAssetsToAlbum)

	return a
}

func (a *AlbumsAdapter) listAlbums(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		Shared bool `json:"shared"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	albums, err := a.client.ListAlbums(ctx, params.Shared)
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]interface{}, 0, len(albums))
	for _, album := range albums {
		summaries = append(summaries, summarizeAlbum(album))
	}

	return map[string]interface{}{
		"success": true,
		"albums":  summaries,
		"count":   len(albums),
	}, nil
}

func (a *AlbumsAdapter) getAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AlbumID       string `json:"albumId"`
		WithoutAssets bool   `json:"withoutAssets"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var query url.Values
	if params.WithoutAssets {
		query = url.Values{"withoutAssets": {"true"}}
	}

	var album immich.Album
	if err := a.client.Get(ctx, albumPath(params.AlbumID), query, &album); err != nil {
		return nil, err
	}

	assets := make([]map[string]interface{}, 0, len(album.Assets))
	for _, asset := range album.Assets {
		assets = append(assets, summarizeAsset(asset))
	}

	result := summarizeAlbum(album)
	result["assets"] = assets

	return map[string]interface{}{
		"success": true,
		"album":   result,
	}, nil
}

func (a *AlbumsAdapter) createAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AlbumName   string   `json:"albumName"`
		Description string   `json:"description"`
		AssetIDs    []string `json:"assetIds"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	album, err := a.client.CreateAlbum(ctx, immich.CreateAlbumParams{
		Name:        params.AlbumName,
		Description: params.Description,
		AssetIDs:    params.AssetIDs,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"album":   summarizeAlbum(*album),
		"message": fmt.Sprintf("Created album '%s'", album.AlbumName),
	}, nil
}

func (a *AlbumsAdapter) updateAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AlbumID     string  `json:"albumId"`
		AlbumName   *string `json:"albumName"`
		Description *string `json:"description"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	body := map[string]interface{}{}
	if params.AlbumName != nil {
		body["albumName"] = *params.AlbumName
	}
	if params.Description != nil {
		body["description"] = *params.Description
	}
	if len(body) == 0 {
		return nil, newValidationError("updateAlbum", "at least one of albumName or description is required")
	}

	var album immich.Album
	if err := a.client.Patch(ctx, albumPath(params.AlbumID), body, &album); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"album":   summarizeAlbum(album),
	}, nil
}

func (a *AlbumsAdapter) deleteAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AlbumID string `json:"albumId"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	if err := a.client.Delete(ctx, albumPath(params.AlbumID), nil, nil); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"albumId": params.AlbumID,
	}, nil
}

func (a *AlbumsAdapter) addAssetsToAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return a.changeMembership(ctx, args, a.client.Put, "added")
}

func (a *AlbumsAdapter) removeAssetsFromAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return a.changeMembership(ctx, args, a.client.Delete, "removed")
}

type sendFunc func(ctx context.Context, endpoint string, body interface{}, result interface{}) error

// changeMembership runs an album add/remove call and partitions the per-asset results.
func (a *AlbumsAdapter) changeMembership(ctx context.Context, args map[string]interface{}, send sendFunc, verb string) (interface{}, error) {
	var params struct {
		AlbumID  string   `json:"albumId"`
		AssetIDs []string `json:"assetIds"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var responses []immich.BulkIDResponse
	body := map[string]interface{}{"ids": params.AssetIDs}
	if err := send(ctx, albumPath(params.AlbumID)+"/assets", body, &responses); err != nil {
		return nil, err
	}

	succeeded, failed := partitionBulk(responses)

	return map[string]interface{}{
		"success":      len(failed) == 0,
		"albumId":      params.AlbumID,
		verb:           succeeded,
		"failed":       failed,
		verb + "Count": len(succeeded),
		"failedCount":  len(failed),
	}, nil
}

func (a *AlbumsAdapter) checkAssetsInAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AlbumID  string   `json:"albumId"`
		AssetIDs []string `json:"assetIds"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	album, err := a.client.GetAlbum(ctx, params.AlbumID, immich.WithoutCache())
	if err != nil {
		return nil, err
	}

	members := make(map[string]bool, len(album.Assets))
	for _, asset := range album.Assets {
		members[asset.ID] = true
	}

	result := &MembershipResult{Results: make(map[string]bool, len(params.AssetIDs))}
	for _, id := range params.AssetIDs {
		if _, seen := result.Results[id]; seen {
			continue
		}
		result.Results[id] = members[id]
		if members[id] {
			result.MemberCount++
		} else {
			result.NonMemberCount++
		}
	}

	return result, nil
}

func (a *AlbumsAdapter) moveAssetsToAlbum(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AssetIDs         []string `json:"assetIds"`
		AlbumName        string   `json:"albumName"`
		CreateAlbum      bool     `json:"createAlbum"`
		AlbumDescription string   `json:"albumDescription"`
	}
	params.CreateAlbum = true
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var albumID string
	var albumCreated bool
	if params.CreateAlbum {
		var err error
		albumID, albumCreated, err = a.client.FindOrCreateAlbum(ctx, params.AlbumName, params.AlbumDescription)
		if err != nil {
			return nil, err
		}
	} else {
		album, err := a.client.FindAlbumByName(ctx, params.AlbumName)
		if err != nil {
			return nil, err
		}
		if album == nil {
			return nil, fmt.Errorf("album '%s' not found and createAlbum is false", params.AlbumName)
		}
		albumID = album.ID
	}

	bulkResult, err := a.client.AddAssetsToAlbum(ctx, albumID, params.AssetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to add assets to album: %w", err)
	}

	result := map[string]interface{}{
		"success":      true,
		"albumId":      albumID,
		"albumName":    params.AlbumName,
		"albumCreated": albumCreated,
		"movedCount":   len(bulkResult.Success),
		"failedCount":  len(bulkResult.Error),
	}
	if len(bulkResult.Error) > 0 {
		result["failedAssets"] = bulkResult.Error
	}

	return result, nil
}

func albumPath(albumID string) string {
	return "/albums/" + url.PathEscape(albumID)
}

func partitionBulk(responses []immich.BulkIDResponse) ([]string, []BulkFailure) {
	succeeded := []string{}
	failed := []BulkFailure{}
	for _, res := range responses {
		if res.Success {
			succeeded = append(succeeded, res.ID)
			continue
		}
		failed = append(failed, BulkFailure{ID: res.ID, Error: res.Error})
	}
	return succeeded, failed
}

func summarizeAlbum(album immich.Album) map[string]interface{} {
	summary := map[string]interface{}{
		"id":         album.ID,
		"albumName":  album.AlbumName,
		"assetCount": album.AssetCount,
		"shared":     album.Shared,
		"updatedAt":  album.UpdatedAt,
	}
	if album.Description != "" {
		summary["description"] = album.Description
	}
	if album.AlbumThumbnailAssetID != "" {
		summary["thumbnailAssetId"] = album.AlbumThumbnailAssetID
	}
	return summary
}
