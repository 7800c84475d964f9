package patcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/errors"
)

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	opts := Options{Root: root, DefaultFile: "index.html"}

	tests := []struct {
		name string
		raw  string
		goos string
		want string
	}{
		{"empty uses default", "", "linux", filepath.Join(root, "index.html")},
		{"relative", "pages/a.html", "linux", filepath.Join(root, "pages", "a.html")},
		{"absolute", "/srv/site/a.html", "linux", "/srv/site/a.html"},
		{"file url", "file:///tmp/site/index.html?v=1#top", "linux", "/tmp/site/index.html"},
		{"file url escaped", "file:///tmp/my%20site/a.html", "linux", "/tmp/my site/a.html"},
		{"file url localhost", "file://localhost/tmp/a.html", "linux", "/tmp/a.html"},
		{"file url windows", "file:///C:/Users/me/site/index.html", "windows", `C:\Users\me\site\index.html`},
		{"origin root", "http://localhost:3000/", "linux", filepath.Join(root, "index.html")},
		{"origin page", "https://example.test/docs/page.html?x=1", "linux", filepath.Join(root, "docs", "page.html")},
		{"origin directory", "http://localhost:3000/docs/", "linux", filepath.Join(root, "docs", "index.html")},
		{"origin traversal stays in root", "http://localhost/../../etc/passwd", "linux", filepath.Join(root, "etc", "passwd")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePath(tt.raw, opts, tt.goos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePathWithoutDefault(t *testing.T) {
	_, err := resolvePath("", Options{Root: t.TempDir()}, "linux")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTargetFileMissing, errors.GetCode(err))
}

func TestResolvePathBadEscape(t *testing.T) {
	_, err := resolvePath("file:///tmp/%zz.html", Options{Root: t.TempDir()}, "linux")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}
