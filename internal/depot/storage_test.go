package depot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileInfo_DecodesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/storage/repo/dir/artifact.zip", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"repo": "repo",
			"path": "/dir/artifact.zip",
			"created": "2026-03-01T10:00:00.000Z",
			"lastModified": "2026-03-02T11:30:00.000Z",
			"downloadUri": "https://depot.example.com/repo/dir/artifact.zip",
			"mimeType": "application/zip",
			"size": "1048576",
			"checksums": {"md5": "abc123", "sha1": "def456", "sha256": "789aaa"}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	info, err := client.GetFileInfo(context.Background(), "repo/dir/artifact.zip")
	require.NoError(t, err)
	assert.Equal(t, "repo", info.Repo)
	assert.Equal(t, "/dir/artifact.zip", info.Path)
	assert.Equal(t, int64(1048576), info.Size)
	assert.Equal(t, "application/zip", info.MimeType)
	assert.Equal(t, "abc123", info.Checksums.MD5)
	assert.Equal(t, "def456", info.Checksums.SHA1)
	assert.Equal(t, 2026, info.Created.Year())
	assert.Equal(t, time.March, info.LastModified.Month())
}

func TestGetFileInfo_RejectsMissingChecksums(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"repo":"repo","path":"/a.bin","size":"10"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.GetFileInfo(context.Background(), "repo/a.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGetFileInfo_RejectsUnparseableSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"repo":"repo","path":"/a.bin","size":"lots","checksums":{"md5":"x"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.GetFileInfo(context.Background(), "repo/a.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGetFolderInfo_DecodesChildren(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/storage/repo/dir", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"repo": "repo",
			"path": "/dir",
			"children": [
				{"uri": "/sub", "folder": true},
				{"uri": "/a.zip", "folder": false}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	info, err := client.GetFolderInfo(context.Background(), "repo/dir")
	require.NoError(t, err)
	require.Len(t, info.Children, 2)
	assert.Equal(t, Child{Name: "sub", Folder: true}, info.Children[0])
	assert.Equal(t, Child{Name: "a.zip", Folder: false}, info.Children[1])
}

func TestGetFolderInfo_RejectsEmptyChildURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"repo":"repo","path":"/dir","children":[{"uri":"","folder":false}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.GetFolderInfo(context.Background(), "repo/dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestExists_TrueAndFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)

		if r.URL.Path == "/repo/present.bin" {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	exists, err := client.Exists(context.Background(), "repo/present.bin")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.Exists(context.Background(), "repo/absent.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExists_SurfacesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Exists(context.Background(), "repo/a.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEncodePathSegments(t *testing.T) {
	assert.Equal(t, "repo/dir/my%20file.zip", encodePathSegments("repo/dir/my file.zip"))
	assert.Equal(t, "repo/a.bin", encodePathSegments("repo/a.bin"))
}
