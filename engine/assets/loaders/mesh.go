package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/cubes/engine/resources"
)

// MeshLoader reads packed mesh files: a little-endian uint32 vertex
// count followed by count interleaved vertices of 8 float32 values
// (position, texcoord, normal).
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	mesh, err := ParseMesh(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mesh %s: %w", path, err)
	}

	return &resources.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(mesh.Vertices)),
		Data:     mesh,
	}, nil
}

func (ml *MeshLoader) Unload(*resources.Resource) error {
	return nil
}

// ParseMesh validates and decodes the packed mesh layout.
func ParseMesh(buf []byte) (*resources.MeshData, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("mesh data too short: %d bytes", len(buf))
	}
	count := binary.LittleEndian.Uint32(buf)
	if count == 0 {
		return nil, fmt.Errorf("mesh has no vertices")
	}
	want := int(count) * resources.VertexStride
	got := len(buf) - 4
	if got != want {
		return nil, fmt.Errorf("mesh vertex data is %d bytes, want %d for %d vertices", got, want, count)
	}
	return &resources.MeshData{
		VertexCount: count,
		Vertices:    buf[4:],
	}, nil
}

// EncodeMesh renders a mesh back into the packed format. Used by the
// asset build tooling.
func EncodeMesh(mesh *resources.MeshData) []byte {
	out := make([]byte, 4+len(mesh.Vertices))
	binary.LittleEndian.PutUint32(out, mesh.VertexCount)
	copy(out[4:], mesh.Vertices)
	return out
}
