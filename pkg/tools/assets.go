package tools

import (
	"context"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

// AssetsAdapter exposes asset lookup, editing, deletion and upload tools.
type AssetsAdapter struct {
	*toolSet
	client *immich.Client
}

// PartialFailure is the outcome of a fan-out that keeps going past individual failures.
type PartialFailure struct {
	Success bool          `json:"success"`
	Updated []string      `json:"updated"`
	Failed  []BulkFailure `json:"failed"`
}

// NewAssetsAdapter creates the assets adapter
func NewAssetsAdapter(immichClient *immich.Client) *AssetsAdapter {
	a := &AssetsAdapter{toolSet: newToolSet(), client: immichClient}

	a.add(mcp.Tool{
		Name:        "getAsset",
		Description: "Get full metadata for a single asset",
		InputSchema: objectSchema(map[string]interface{}{
			"assetId": requiredStringProp("Asset ID"),
		}, "assetId"),
	}, a.getAsset)

	a.add(mcp.Tool{
		Name:        "listAssets",
		Description: "List assets page by page, optionally restricted to one type",
		InputSchema: objectSchema(map[string]interface{}{
			"page": intProp("Page number (1-based)", 1, 100000, 1),
			"size": intProp("Number of assets per page", 1, 1000, 100),
			"type": enumProp("Asset type", assetTypes...),
		}),
	}, a.listAssets)

	a.add(mcp.Tool{
		Name:        "updateAsset",
		Description: "Update favorite, archive, description or rating of one asset",
		InputSchema: objectSchema(assetUpdateProperties(map[string]interface{}{
			"assetId": requiredStringProp("Asset ID"),
		}), "assetId"),
	}, a.updateAsset)

	a.add(mcp.Tool{
		Name:        "updateAssets",
		Description: "Apply the same update to several assets. Failures are reported per asset.",
		InputSchema: objectSchema(assetUpdateProperties(map[string]interface{}{
			"assetIds": idListProp("Asset IDs to update"),
		}), "assetIds"),
	}, a.updateAssets)

	a.add(mcp.Tool{
		Name:        "deleteAssets",
		Description: "Move assets to the trash, or delete them permanently with force",
		InputSchema: objectSchema(map[string]interface{}{
			"assetIds": idListProp("Asset IDs to delete"),
			"force":    boolProp("Skip the trash and delete permanently", false),
		}, "assetIds"),
	}, a.deleteAssets)

	a.add(mcp.Tool{
		Name:        "getAssetStatistics",
		Description: "Count images and videos in the library",
		InputSchema: objectSchema(map[string]interface{}{
			"isFavorite": optionalBoolProp("Only count favorites"),
			"isArchived": optionalBoolProp("Only count archived assets"),
		}),
	}, a.getAssetStatistics)

	a.add(mcp.Tool{
		Name:        "uploadAssets",
		Description: "Upload local files to Immich and optionally add them to an album (found by ID, or by name and created if missing)",
		InputSchema: objectSchema(map[string]interface{}{
			"filePaths": idListProp("Paths of the files to upload"),
			"albumId":   stringProp("Album to add the uploaded assets to"),
			"albumName": stringProp("Album name to add the uploaded assets to; created if missing"),
		}, "filePaths"),
	}, a.uploadAssets)

	return a
}

func assetUpdateProperties(props map[string]interface{}) map[string]interface{} {
	props["isFavorite"] = optionalBoolProp("Mark or unmark as favorite")
	props["isArchived"] = optionalBoolProp("Archive or unarchive")
	props["visibility"] = enumProp("Asset visibility", visibilities...)
	props["description"] = stringProp("Asset description")
	props["rating"] = map[string]interface{}{
		"type":        "integer",
		"description": "Star rating, 0 clears it",
		"minimum":     0,
		"maximum":     5,
	}
	return props
}

type assetUpdate struct {
	IsFavorite  *bool   `json:"isFavorite,omitempty"`
	IsArchived  *bool   `json:"isArchived,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
	Description *string `json:"description,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
}

func (u assetUpdate) empty() bool {
	return u.IsFavorite == nil && u.IsArchived == nil && u.Visibility == nil &&
		u.Description == nil && u.Rating == nil
}

// decodeUpdate fills params and returns the update fields, which must not all be absent.
func decodeUpdate(tool string, args map[string]interface{}, params interface{}) (*assetUpdate, error) {
	if err := decodeArguments(args, params); err != nil {
		return nil, err
	}

	var update assetUpdate
	if err := decodeArguments(args, &update); err != nil {
		return nil, err
	}
	if update.empty() {
		return nil, newValidationError(tool, "at least one field to update is required")
	}
	return &update, nil
}

func (a *AssetsAdapter) getAsset(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AssetID string `json:"assetId"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var asset immich.Asset
	if err := a.client.Get(ctx, assetPath(params.AssetID), nil, &asset); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"asset":   asset,
	}, nil
}

func (a *AssetsAdapter) listAssets(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	params := struct {
		Page int    `json:"page"`
		Size int    `json:"size"`
		Type string `json:"type,omitempty"`
	}{Page: 1, Size: 100}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var response immich.SearchAssetsResponse
	if err := a.client.Post(ctx, "/search/metadata", params, &response); err != nil {
		return nil, err
	}

	return searchResult(response), nil
}

func (a *AssetsAdapter) updateAsset(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AssetID string `json:"assetId"`
	}
	update, err := decodeUpdate("updateAsset", args, &params)
	if err != nil {
		return nil, err
	}

	var asset immich.Asset
	if err := a.client.Put(ctx, assetPath(params.AssetID), update, &asset); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"asset":   summarizeAsset(asset),
	}, nil
}

// updateAssets issues one update per asset so a single bad ID does not sink the batch.
func (a *AssetsAdapter) updateAssets(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AssetIDs []string `json:"assetIds"`
	}
	update, err := decodeUpdate("updateAssets", args, &params)
	if err != nil {
		return nil, err
	}

	result := &PartialFailure{Updated: []string{}, Failed: []BulkFailure{}}
	for _, id := range params.AssetIDs {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: err.Error()})
			continue
		}
		if err := a.client.Put(ctx, assetPath(id), update, nil); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: immich.ErrorMessage(err)})
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	result.Success = len(result.Failed) == 0

	return result, nil
}

func (a *AssetsAdapter) deleteAssets(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		AssetIDs []string `json:"assetIds"`
		Force    bool     `json:"force"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"ids":   params.AssetIDs,
		"force": params.Force,
	}
	if err := a.client.Delete(ctx, "/assets", body, nil); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":      true,
		"deletedCount": len(params.AssetIDs),
		"permanent":    params.Force,
	}, nil
}

func (a *AssetsAdapter) getAssetStatistics(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		IsFavorite *bool `json:"isFavorite"`
		IsArchived *bool `json:"isArchived"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	query := url.Values{}
	if params.IsFavorite != nil {
		query.Set("isFavorite", boolString(*params.IsFavorite))
	}
	if params.IsArchived != nil {
		query.Set("isArchived", boolString(*params.IsArchived))
	}

	var stats struct {
		Images int `json:"images"`
		Videos int `json:"videos"`
		Total  int `json:"total"`
	}
	if err := a.client.Get(ctx, "/assets/statistics", query, &stats); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"images":  stats.Images,
		"videos":  stats.Videos,
		"total":   stats.Total,
	}, nil
}

func (a *AssetsAdapter) uploadAssets(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		FilePaths []string `json:"filePaths"`
		AlbumID   string   `json:"albumId"`
		AlbumName string   `json:"albumName"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	return a.client.UploadAssets(ctx, immich.UploadBatchParams{
		FilePaths: params.FilePaths,
		AlbumID:   params.AlbumID,
		AlbumName: params.AlbumName,
	}), nil
}

func assetPath(assetID string) string {
	return "/assets/" + url.PathEscape(assetID)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func searchResult(response immich.SearchAssetsResponse) map[string]interface{} {
	assets := make([]map[string]interface{}, 0, len(response.Assets.Items))
	assetIDs := make([]string, 0, len(response.Assets.Items))
	for _, asset := range response.Assets.Items {
		assets = append(assets, summarizeAsset(asset))
		assetIDs = append(assetIDs, asset.ID)
	}

	result := map[string]interface{}{
		"success":  true,
		"total":    response.Assets.Total,
		"count":    len(assets),
		"assets":   assets,
		"assetIds": assetIDs,
	}
	if response.Assets.NextPage != nil {
		result["nextPage"] = *response.Assets.NextPage
	}
	return result
}

func summarizeAsset(asset immich.Asset) map[string]interface{} {
	assetInfo := map[string]interface{}{
		"id":         asset.ID,
		"fileName":   asset.OriginalFileName,
		"type":       asset.Type,
		"date":       asset.FileCreatedAt,
		"isFavorite": asset.IsFavorite,
	}

	if asset.ExifInfo == nil {
		return assetInfo
	}

	if location := locationOf(asset.ExifInfo); location != "" {
		assetInfo["location"] = location
	}
	if camera := cameraOf(asset.ExifInfo); camera != "" {
		assetInfo["camera"] = camera
	}
	if asset.ExifInfo.Description != "" {
		assetInfo["description"] = asset.ExifInfo.Description
	}
	if asset.ExifInfo.Rating != nil {
		assetInfo["rating"] = *asset.ExifInfo.Rating
	}

	return assetInfo
}

func locationOf(exif *immich.ExifInfo) string {
	if exif.City == "" {
		return exif.Country
	}
	location := exif.City
	if exif.State != "" {
		location += ", " + exif.State
	}
	if exif.Country != "" {
		location += ", " + exif.Country
	}
	return location
}

func cameraOf(exif *immich.ExifInfo) string {
	camera := exif.Make
	if exif.Model != "" {
		if camera != "" {
			camera += " "
		}
		camera += exif.Model
	}
	return camera
}
