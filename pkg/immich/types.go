package immich

import "time"

// Asset represents an Immich asset
type Asset struct {
	ID               string    `json:"id"`
	DeviceAssetID    string    `json:"deviceAssetId"`
	OwnerID          string    `json:"ownerId"`
	DeviceID         string    `json:"deviceId"`
	LibraryID        string    `json:"libraryId,omitempty"`
	Type             string    `json:"type"` // IMAGE, VIDEO, AUDIO, OTHER
	OriginalPath     string    `json:"originalPath"`
	OriginalFileName string    `json:"originalFileName"`
	OriginalMimeType string    `json:"originalMimeType,omitempty"`
	Thumbhash        string    `json:"thumbhash,omitempty"`
	FileCreatedAt    time.Time `json:"fileCreatedAt"`
	FileModifiedAt   time.Time `json:"fileModifiedAt"`
	LocalDateTime    time.Time `json:"localDateTime,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
	IsFavorite       bool      `json:"isFavorite"`
	IsArchived       bool      `json:"isArchived"`
	IsTrashed        bool      `json:"isTrashed"`
	Visibility       string    `json:"visibility,omitempty"`
	Duration         string    `json:"duration,omitempty"`
	Checksum         string    `json:"checksum,omitempty"`
	ExifInfo         *ExifInfo `json:"exifInfo,omitempty"`
	People           []Person  `json:"people,omitempty"`
}

// ExifInfo contains EXIF metadata
type ExifInfo struct {
	Make             string   `json:"make,omitempty"`
	Model            string   `json:"model,omitempty"`
	LensModel        string   `json:"lensModel,omitempty"`
	ExifImageWidth   int      `json:"exifImageWidth,omitempty"`
	ExifImageHeight  int      `json:"exifImageHeight,omitempty"`
	FileSizeInByte   int64    `json:"fileSizeInByte,omitempty"`
	Orientation      string   `json:"orientation,omitempty"`
	DateTimeOriginal string   `json:"dateTimeOriginal,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Country          string   `json:"country,omitempty"`
	Description      string   `json:"description,omitempty"`
	Rating           *int     `json:"rating,omitempty"`
	ISO              int      `json:"iso,omitempty"`
	ExposureTime     string   `json:"exposureTime,omitempty"`
	FNumber          float64  `json:"fNumber,omitempty"`
	FocalLength      float64  `json:"focalLength,omitempty"`
}

// Person represents a recognised face cluster
type Person struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BirthDate     string `json:"birthDate,omitempty"`
	ThumbnailPath string `json:"thumbnailPath,omitempty"`
	IsHidden      bool   `json:"isHidden"`
	IsFavorite    bool   `json:"isFavorite,omitempty"`
}

// Album represents an Immich album
type Album struct {
	ID                    string    `json:"id"`
	OwnerID               string    `json:"ownerId"`
	AlbumName             string    `json:"albumName"`
	Description           string    `json:"description,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
	AlbumThumbnailAssetID string    `json:"albumThumbnailAssetId,omitempty"`
	Shared                bool      `json:"shared"`
	HasSharedLink         bool      `json:"hasSharedLink"`
	AssetCount            int       `json:"assetCount"`
	Assets                []Asset   `json:"assets,omitempty"`
	Order                 string    `json:"order,omitempty"`
}

// BulkIDResponse is one entry of the per-ID result list returned by album membership calls.
type BulkIDResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkIDResult partitions a bulk response into succeeded and failed IDs.
type BulkIDResult struct {
	Success []string `json:"success"`
	Error   []string `json:"error"`
}

// NewBulkIDResult partitions responses, preserving their order.
func NewBulkIDResult(responses []BulkIDResponse) *BulkIDResult {
	result := &BulkIDResult{
		Success: []string{},
		Error:   []string{},
	}
	for _, res := range responses {
		if res.Success {
			result.Success = append(result.Success, res.ID)
		} else {
			result.Error = append(result.Error, res.ID)
		}
	}
	return result
}

// SearchAssetsResponse is the envelope returned by the /search endpoints.
type SearchAssetsResponse struct {
	Assets struct {
		Total    int     `json:"total"`
		Count    int     `json:"count"`
		Items    []Asset `json:"items"`
		NextPage *string `json:"nextPage"`
	} `json:"assets"`
}

// Request parameter types

// CreateAlbumParams parameters for album creation
type CreateAlbumParams struct {
	Name        string
	Description string
	AssetIDs    []string
}
