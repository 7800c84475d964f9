package patcher

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/grovetools/devsync/errors"
)

// ResolvePath turns the filePath carried by a message into a filesystem
// path under the options' root.
func (o Options) ResolvePath(raw string) (string, error) {
	return resolvePath(raw, o, goos)
}

func resolvePath(raw string, o Options, goos string) (string, error) {
	root := o.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to resolve patch root")
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = o.DefaultFile
	}
	if raw == "" {
		return "", errors.TargetFileMissing("").WithDetail("reason", "no file path and no default file")
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "file://"):
		return fileURLPath(raw, goos)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return originPath(raw, absRoot)
	}

	if filepath.IsAbs(raw) {
		return filepath.Clean(raw), nil
	}
	return filepath.Join(absRoot, raw), nil
}

// fileURLPath strips the scheme and any query or fragment and decodes
// percent escapes. On Windows "/C:/x" loses its leading slash.
func fileURLPath(raw, goos string) (string, error) {
	p := raw[len("file://"):]
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.HasPrefix(strings.ToLower(p), "localhost/") {
		p = p[len("localhost"):]
	}

	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid file URL").WithDetail("url", raw)
	}

	if goos == "windows" {
		if len(decoded) >= 3 && decoded[0] == '/' && decoded[2] == ':' {
			decoded = decoded[1:]
		}
		return strings.ReplaceAll(decoded, "/", `\`), nil
	}
	return path.Clean(decoded), nil
}

// originPath maps a page URL served from the patch root back onto disk.
func originPath(raw, absRoot string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid page URL").WithDetail("url", raw)
	}

	rel := path.Clean("/" + u.Path)
	if strings.HasSuffix(u.Path, "/") || rel == "/" {
		rel = path.Join(rel, "index.html")
	}

	full := filepath.Join(absRoot, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	if !within(absRoot, full) {
		return "", errors.PathNotAllowed(full, nil).WithDetail("reason", "outside patch root")
	}
	return full, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
