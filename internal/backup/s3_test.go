package backup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseS3BucketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantBkt   string
		wantPre   string
		errSubstr string
	}{
		{name: "bucket only", raw: "s3://catalogs", wantBkt: "catalogs"},
		{name: "bucket with prefix", raw: "s3://catalogs/portal/prod/", wantBkt: "catalogs", wantPre: "portal/prod"},
		{name: "invalid scheme", raw: "https://catalogs/portal", errSubstr: "s3:// scheme"},
		{name: "missing bucket", raw: "s3:///portal", errSubstr: "missing the bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bkt, pre, err := parseS3BucketURL(tt.raw)
			if tt.errSubstr != "" {
				require.ErrorContains(t, err, tt.errSubstr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantBkt, bkt)
			require.Equal(t, tt.wantPre, pre)
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", normalizeEndpoint("  ", true))
	require.Equal(t, "https://minio:9000", normalizeEndpoint("minio:9000", true))
	require.Equal(t, "http://minio:9000", normalizeEndpoint("minio:9000", false))
	require.Equal(t, "http://minio:9000", normalizeEndpoint("http://minio:9000", true))
}

func TestNewS3Uploader_MissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewS3Uploader(S3Config{URL: "s3://catalogs/portal", Endpoint: "s3.amazonaws.com", UseSSL: true})
	require.Error(t, err)
}

func TestS3Uploader_PutsObject(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		method string
		reqURI string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, reqURI, body = r.Method, r.URL.Path, b
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := NewS3Uploader(S3Config{
		URL:       "s3://catalogs/portal",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "portal-catalog-20260301-120000.000.duckdb")
	require.NoError(t, os.WriteFile(local, []byte("catalog bytes"), 0644))

	require.NoError(t, u.UploadFile(context.Background(), local))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/catalogs/portal/portal-catalog-20260301-120000.000.duckdb", reqURI)
	require.True(t, strings.Contains(string(body), "catalog bytes"))
}
