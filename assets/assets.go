// Package assets locates the local files uploaded with a job and labels them
// with a content type derived from the file extension.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BaSui01/anythingworld/types"
)

// DefaultContentType is used for extensions nobody recognizes.
const DefaultContentType = "application/octet-stream"

// contentTypes covers the mesh, texture and archive formats the service
// accepts. It wins over the platform MIME database, which disagrees on
// several 3D formats.
var contentTypes = map[string]string{
	"mtl":   "text/plain",
	"obj":   "text/plain",
	"txt":   "text/plain",
	"gltf":  "text/plain",
	"fbx":   "application/octet-stream",
	"bin":   "application/octet-stream",
	"dae":   "application/xml",
	"glb":   "model/gltf-binary",
	"zip":   "application/zip",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpg",
	"png":   "image/png",
	"bmp":   "image/bmp",
	"gif":   "image/gif",
	"tif":   "image/tiff",
	"tiff":  "image/tiff",
	"tga":   "image/x-tga",
	"targa": "image/x-tga",
}

// Asset is one local file to upload.
type Asset struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
}

// ContentType returns the content type for name based on its extension only.
func ContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return DefaultContentType
}

// ReadFiles lists the assets at path: every regular, non-hidden file of a
// directory (sorted by name, not recursive) or the single file path names.
func ReadFiles(path string) ([]Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.Errorf(types.ErrInvalidRequest, "asset path %q does not exist", path)
		}
		return nil, types.Errorf(types.ErrInvalidRequest, "stat %q", path).WithCause(err)
	}

	if !info.IsDir() {
		return []Asset{newAsset(path, info)}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidRequest, "read asset directory %q", path).WithCause(err)
	}
	var out []Asset
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, newAsset(filepath.Join(path, entry.Name()), fi))
	}
	if len(out) == 0 {
		return nil, types.Errorf(types.ErrInvalidRequest, "asset directory %q has no files", path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func newAsset(path string, info fs.FileInfo) Asset {
	return Asset{
		Name:        filepath.Base(path),
		Path:        path,
		ContentType: ContentType(path),
		Size:        info.Size(),
	}
}
