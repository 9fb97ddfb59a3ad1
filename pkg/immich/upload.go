package immich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultDeviceID identifies this service as the uploading device.
const DefaultDeviceID = "immich-mcp"

// isoMillis matches the timestamp layout Immich clients send.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// UploadMetadata carries the form fields Immich requires alongside the file.
// Zero values are derived from the file and the clock.
type UploadMetadata struct {
	DeviceAssetID  string
	DeviceID       string
	FileCreatedAt  time.Time
	FileModifiedAt time.Time
}

// UploadResponse is Immich's answer to an upload: status is "created" or "duplicate".
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UploadedAsset records a file that reached the server.
type UploadedAsset struct {
	FilePath string `json:"filePath"`
	AssetID  string `json:"assetId"`
	Status   string `json:"status"`
}

// FailedUpload records a file that could not be uploaded.
type FailedUpload struct {
	FilePath string `json:"filePath"`
	Error    string `json:"error"`
}

// UploadBatchParams describes a batch upload. AlbumID wins over AlbumName when both are set.
type UploadBatchParams struct {
	FilePaths []string
	AlbumID   string
	AlbumName string
}

// UploadBatchResult is the outcome of a batch. Success is true only when no file failed;
// album problems never affect it.
type UploadBatchResult struct {
	Success  bool            `json:"success"`
	Uploaded []UploadedAsset `json:"uploaded"`
	Failed   []FailedUpload  `json:"failed"`
	AlbumID  string          `json:"albumId,omitempty"`
}

// UploadAsset uploads a single local file as a multipart request.
func (c *Client) UploadAsset(ctx context.Context, path string, meta UploadMetadata) (*UploadResponse, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: absPath}
		}
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", absPath)
	}

	meta = c.completeMetadata(meta, info)

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", absPath, err)
	}

	// The body is streamed so file size never translates into memory use.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer file.Close()
		pw.CloseWithError(writeUploadBody(mw, file, info.Name(), meta))
	}()

	endpoint := c.buildURL("/assets", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log.Info().
		Str("method", http.MethodPost).
		Str("url", endpoint).
		Str("file", absPath).
		Int64("size", info.Size()).
		Str("device_asset_id", meta.DeviceAssetID).
		Msg("Uploading asset to Immich")

	payload, err := c.do(c.uploadClient, req)
	if err != nil {
		return nil, err
	}

	var resp UploadResponse
	if err := decodeInto(payload, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("upload response for %s carried no asset id", absPath)
	}

	return &resp, nil
}

func (c *Client) completeMetadata(meta UploadMetadata, info fs.FileInfo) UploadMetadata {
	if meta.DeviceAssetID == "" {
		meta.DeviceAssetID = fmt.Sprintf("%s-%d", info.Name(), time.Now().UnixMilli())
	}
	if meta.DeviceID == "" {
		meta.DeviceID = c.deviceID
	}
	if meta.FileModifiedAt.IsZero() {
		meta.FileModifiedAt = info.ModTime()
	}
	if meta.FileCreatedAt.IsZero() {
		meta.FileCreatedAt = fileCreationTime(info)
	}
	return meta
}

// fileCreationTime falls back to the modification time; birth time is not
// exposed portably by os.FileInfo.
func fileCreationTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}

func writeUploadBody(mw *multipart.Writer, file io.Reader, fileName string, meta UploadMetadata) error {
	fields := []struct {
		name  string
		value string
	}{
		{"deviceAssetId", meta.DeviceAssetID},
		{"deviceId", meta.DeviceID},
		{"fileCreatedAt", meta.FileCreatedAt.UTC().Format(isoMillis)},
		{"fileModifiedAt", meta.FileModifiedAt.UTC().Format(isoMillis)},
	}
	for _, field := range fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("assetData", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}

	return mw.Close()
}

// UploadAssets uploads files one at a time in the given order and then, when
// requested, attaches every uploaded asset to an album. A failing file never
// stops the batch, and album failures are logged rather than returned.
func (c *Client) UploadAssets(ctx context.Context, params UploadBatchParams) *UploadBatchResult {
	batchID := uuid.NewString()
	logger := log.With().Str("batch_id", batchID).Logger()

	result := &UploadBatchResult{
		Uploaded: []UploadedAsset{},
		Failed:   []FailedUpload{},
	}

	logger.Info().Int("files", len(params.FilePaths)).Msg("Starting upload batch")

	for _, path := range params.FilePaths {
		resp, err := c.UploadAsset(ctx, path, UploadMetadata{})
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Upload failed")
			result.Failed = append(result.Failed, FailedUpload{
				FilePath: path,
				Error:    ErrorMessage(err),
			})
			continue
		}

		logger.Info().
			Str("file", path).
			Str("asset_id", resp.ID).
			Str("status", resp.Status).
			Msg("Uploaded asset")
		result.Uploaded = append(result.Uploaded, UploadedAsset{
			FilePath: path,
			AssetID:  resp.ID,
			Status:   resp.Status,
		})
	}

	result.Success = len(result.Failed) == 0

	if len(result.Uploaded) > 0 && (params.AlbumID != "" || params.AlbumName != "") {
		result.AlbumID = c.attachToAlbum(ctx, params, result.Uploaded)
	}

	logger.Info().
		Bool("success", result.Success).
		Int("uploaded", len(result.Uploaded)).
		Int("failed", len(result.Failed)).
		Str("album_id", result.AlbumID).
		Msg("Upload batch finished")

	return result
}

// attachToAlbum resolves the target album and adds uploaded assets to it.
// It returns the album ID when resolution succeeded, even if adding failed.
func (c *Client) attachToAlbum(ctx context.Context, params UploadBatchParams, uploaded []UploadedAsset) string {
	albumID := params.AlbumID
	if albumID == "" {
		var err error
		albumID, _, err = c.FindOrCreateAlbum(ctx, params.AlbumName, "")
		if err != nil {
			log.Error().
				Err(err).
				Str("album_name", params.AlbumName).
				Msg("Failed to resolve album for uploaded assets")
			return ""
		}
	}

	assetIDs := make([]string, len(uploaded))
	for i, asset := range uploaded {
		assetIDs[i] = asset.AssetID
	}

	bulk, err := c.AddAssetsToAlbum(ctx, albumID, assetIDs)
	if err != nil {
		log.Error().
			Err(err).
			Str("album_id", albumID).
			Int("assets", len(assetIDs)).
			Msg("Failed to add uploaded assets to album")
		return albumID
	}

	log.Info().
		Str("album_id", albumID).
		Int("added", len(bulk.Success)).
		Int("rejected", len(bulk.Error)).
		Msg("Added uploaded assets to album")

	return albumID
}

// ErrorMessage prefers the remote message over the wrapped error text.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
