package modelpack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/qmuntal/gltf"
)

// DracoExtension is the glTF extension a draco-compressed scene declares.
const DracoExtension = "KHR_draco_mesh_compression"

// ErrUnsafeBuffer marks a buffer URI that points outside the model
// directory.
var ErrUnsafeBuffer = errors.New("buffer uri escapes the model directory")

// SceneInfo is what the packer needs to know about a scene before
// deciding how to handle it.
type SceneInfo struct {
	Size   int64
	Draco  bool
	Meshes int
	// Buffers lists external buffer files as cleaned, slash-separated paths
	// relative to the scene's directory.
	Buffers []string
}

// Inspect reads a scene.gltf. Scenes that do not parse as glTF are still
// checked for the draco extension by name, so a document using fields the
// parser does not know is not recompressed twice.
func Inspect(path string) (SceneInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SceneInfo{}, fmt.Errorf("%s: %w", path, ErrNoScene)
		}
		return SceneInfo{}, err
	}
	info := SceneInfo{Size: int64(len(data))}

	var doc gltf.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		info.Draco = bytes.Contains(data, []byte(DracoExtension))
		return info, nil
	}
	info.Draco = slices.Contains(doc.ExtensionsUsed, DracoExtension) ||
		slices.Contains(doc.ExtensionsRequired, DracoExtension)
	info.Meshes = len(doc.Meshes)
	for _, b := range doc.Buffers {
		if b.URI == "" || b.IsEmbeddedResource() {
			continue
		}
		rel, err := bufferPath(b.URI)
		if err != nil {
			return info, err
		}
		info.Buffers = append(info.Buffers, rel)
	}
	return info, nil
}

// bufferPath decodes a relative buffer URI and checks it stays inside the
// scene's directory.
func bufferPath(uri string) (string, error) {
	decoded, err := url.PathUnescape(uri)
	if err != nil {
		return "", fmt.Errorf("buffer uri %q: %w", uri, err)
	}
	rel := filepath.Clean(filepath.FromSlash(decoded))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeBuffer, uri)
	}
	return filepath.ToSlash(rel), nil
}
