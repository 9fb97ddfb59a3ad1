package immich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImmich is a minimal in-memory Immich server covering the upload and album endpoints.
type fakeImmich struct {
	mu            sync.Mutex
	albums        []Album
	uploads       []map[string]string
	added         map[string][]string
	createdAlbums []string
	nextID        int
	failAlbumList bool
	failAddAssets bool
}

func newFakeImmich(albums ...Album) *fakeImmich {
	return &fakeImmich{albums: albums, added: map[string][]string{}}
}

func (f *fakeImmich) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/assets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		file, header, err := r.FormFile("assetData")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, err := io.ReadAll(file)
		assert.NoError(t, err)

		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("asset-%d", f.nextID)
		f.uploads = append(f.uploads, map[string]string{
			"fileName":       header.Filename,
			"content":        string(content),
			"deviceAssetId":  r.FormValue("deviceAssetId"),
			"deviceId":       r.FormValue("deviceId"),
			"fileCreatedAt":  r.FormValue("fileCreatedAt"),
			"fileModifiedAt": r.FormValue("fileModifiedAt"),
		})
		f.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"id":%q,"status":"created"}`, id)
	})

	mux.HandleFunc("GET /api/albums", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failAlbumList {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		payload, _ := json.Marshal(f.albums)
		_, _ = w.Write(payload)
	})

	mux.HandleFunc("POST /api/albums", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AlbumName string `json:"albumName"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		id := fmt.Sprintf("album-new-%d", len(f.createdAlbums)+1)
		f.createdAlbums = append(f.createdAlbums, body.AlbumName)
		f.albums = append(f.albums, Album{ID: id, AlbumName: body.AlbumName})
		f.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"id":%q,"albumName":%q}`, id, body.AlbumName)
	})

	mux.HandleFunc("PUT /api/albums/{id}/assets", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failAddAssets {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Not found or no album.addAsset access"}`))
			return
		}
		albumID := r.PathValue("id")
		f.added[albumID] = append(f.added[albumID], body.IDs...)

		responses := make([]BulkIDResponse, 0, len(body.IDs))
		for _, id := range body.IDs {
			responses = append(responses, BulkIDResponse{ID: id, Success: true})
		}
		payload, _ := json.Marshal(responses)
		_, _ = w.Write(payload)
	})

	return mux
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadAssetSendsMetadata(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	client, _ := newTestClient(t, fake.handler(t))
	path := writeTempFile(t, t.TempDir(), "beach.jpg", "jpeg-bytes")

	resp, err := client.UploadAsset(context.Background(), path, UploadMetadata{})

	require.NoError(t, err)
	assert.Equal(t, "asset-1", resp.ID)
	assert.Equal(t, "created", resp.Status)

	require.Len(t, fake.uploads, 1)
	upload := fake.uploads[0]
	assert.Equal(t, "beach.jpg", upload["fileName"])
	assert.Equal(t, "jpeg-bytes", upload["content"])
	assert.Equal(t, DefaultDeviceID, upload["deviceId"])
	assert.Regexp(t, `^beach\.jpg-\d+$`, upload["deviceAssetId"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, upload["fileCreatedAt"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, upload["fileModifiedAt"])
}

func TestUploadAssetHonoursCallerMetadata(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()
	client := NewClient(server.URL, "test-key", 0, nil, WithDeviceID("laptop"))
	path := writeTempFile(t, t.TempDir(), "a.png", "png")

	_, err := client.UploadAsset(context.Background(), path, UploadMetadata{DeviceAssetID: "fixed-id"})

	require.NoError(t, err)
	require.Len(t, fake.uploads, 1)
	assert.Equal(t, "fixed-id", fake.uploads[0]["deviceAssetId"])
	assert.Equal(t, "laptop", fake.uploads[0]["deviceId"])
}

func TestUploadAssetMissingFile(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	client, _ := newTestClient(t, fake.handler(t))

	_, err := client.UploadAsset(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"), UploadMetadata{})

	var notFound *FileNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Empty(t, fake.uploads)
}

func TestUploadAssetsPartialFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	client, _ := newTestClient(t, fake.handler(t))
	dir := t.TempDir()

	paths := []string{
		writeTempFile(t, dir, "one.jpg", "1"),
		filepath.Join(dir, "missing.jpg"),
		writeTempFile(t, dir, "three.jpg", "3"),
	}

	result := client.UploadAssets(context.Background(), UploadBatchParams{FilePaths: paths})

	assert.False(t, result.Success)
	require.Len(t, result.Uploaded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, paths[0], result.Uploaded[0].FilePath)
	assert.Equal(t, paths[2], result.Uploaded[1].FilePath)
	assert.Equal(t, paths[1], result.Failed[0].FilePath)
	assert.Contains(t, result.Failed[0].Error, "file not found")
	assert.Empty(t, result.AlbumID)
}

func TestUploadAssetsRelativePath(t *testing.T) {
	fake := newFakeImmich()
	client, _ := newTestClient(t, fake.handler(t))

	dir := t.TempDir()
	writeTempFile(t, dir, "rel.jpg", "r")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	result := client.UploadAssets(context.Background(), UploadBatchParams{FilePaths: []string{"rel.jpg"}})

	assert.True(t, result.Success)
	require.Len(t, result.Uploaded, 1)
	assert.Equal(t, "rel.jpg", result.Uploaded[0].FilePath)
}

func TestUploadAssetsReusesAlbumCaseInsensitively(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich(
		Album{ID: "album-other", AlbumName: "Winter"},
		Album{ID: "album-summer", AlbumName: "Summer Trip"},
	)
	client, _ := newTestClient(t, fake.handler(t))
	dir := t.TempDir()

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{writeTempFile(t, dir, "a.jpg", "a"), writeTempFile(t, dir, "b.jpg", "b")},
		AlbumName: "summer trip",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "album-summer", result.AlbumID)
	assert.Empty(t, fake.createdAlbums, "an existing album must not be duplicated")
	assert.Equal(t, []string{"asset-1", "asset-2"}, fake.added["album-summer"])
}

func TestUploadAssetsCreatesMissingAlbum(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich(Album{ID: "album-other", AlbumName: "Winter"})
	client, _ := newTestClient(t, fake.handler(t))

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{writeTempFile(t, t.TempDir(), "a.jpg", "a")},
		AlbumName: "Road Trip 2024",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "album-new-1", result.AlbumID)
	assert.Equal(t, []string{"Road Trip 2024"}, fake.createdAlbums)
	assert.Equal(t, []string{"asset-1"}, fake.added["album-new-1"])
}

func TestUploadAssetsUsesAlbumIDWithoutLookup(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	fake.failAlbumList = true
	client, _ := newTestClient(t, fake.handler(t))

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{writeTempFile(t, t.TempDir(), "a.jpg", "a")},
		AlbumID:   "album-given",
		AlbumName: "ignored",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "album-given", result.AlbumID)
	assert.Equal(t, []string{"asset-1"}, fake.added["album-given"])
	assert.Empty(t, fake.createdAlbums)
}

func TestUploadAssetsSkipsAlbumWhenNothingUploaded(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	client, _ := newTestClient(t, fake.handler(t))

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{filepath.Join(t.TempDir(), "gone.jpg")},
		AlbumName: "Never Created",
	})

	assert.False(t, result.Success)
	assert.Empty(t, result.Uploaded)
	assert.Empty(t, result.AlbumID)
	assert.Empty(t, fake.createdAlbums)
}

func TestUploadAssetsSwallowsAlbumResolutionFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich()
	fake.failAlbumList = true
	client, _ := newTestClient(t, fake.handler(t))

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{writeTempFile(t, t.TempDir(), "a.jpg", "a")},
		AlbumName: "Anything",
	})

	assert.True(t, result.Success)
	assert.Len(t, result.Uploaded, 1)
	assert.Empty(t, result.AlbumID, "no album id when resolution failed")
}

func TestUploadAssetsSwallowsAttachFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeImmich(Album{ID: "album-1", AlbumName: "Family"})
	fake.failAddAssets = true
	client, _ := newTestClient(t, fake.handler(t))

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{writeTempFile(t, t.TempDir(), "a.jpg", "a")},
		AlbumName: "family",
	})

	assert.True(t, result.Success)
	assert.Len(t, result.Uploaded, 1)
	assert.Equal(t, "album-1", result.AlbumID, "resolution succeeded even though attaching failed")
}

func TestUploadAssetsRemoteFailureRecorded(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"File too large"}`))
	}))

	result := client.UploadAssets(context.Background(), UploadBatchParams{
		FilePaths: []string{writeTempFile(t, t.TempDir(), "big.mov", "x")},
	})

	assert.False(t, result.Success)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "File too large", result.Failed[0].Error)
}
