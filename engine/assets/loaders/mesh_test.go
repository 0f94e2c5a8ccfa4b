package loaders

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/cubes/engine/resources"
)

func TestParseMesh(t *testing.T) {
	cube := resources.GenerateCube()
	packed := EncodeMesh(cube)

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
		verts   uint32
	}{
		{name: "generated cube roundtrips", data: packed, verts: 36},
		{name: "empty input", data: nil, wantErr: true},
		{name: "count only", data: []byte{1, 0, 0, 0}, wantErr: true},
		{name: "zero vertices", data: []byte{0, 0, 0, 0}, wantErr: true},
		{name: "truncated vertex data", data: packed[:len(packed)-5], wantErr: true},
		{name: "trailing garbage", data: append(append([]byte{}, packed...), 0xAB), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := ParseMesh(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mesh.VertexCount != tt.verts {
				t.Errorf("VertexCount = %d, want %d", mesh.VertexCount, tt.verts)
			}
			if len(mesh.Vertices) != int(tt.verts)*resources.VertexStride {
				t.Errorf("vertex bytes = %d, want %d", len(mesh.Vertices), int(tt.verts)*resources.VertexStride)
			}
		})
	}
}

func TestMeshLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prism.buf")
	prism := resources.GeneratePrism()
	if err := os.WriteFile(path, EncodeMesh(prism), 0o644); err != nil {
		t.Fatal(err)
	}

	ml := &MeshLoader{}
	res, err := ml.Load(path, resources.ResourceTypeMesh, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mesh, ok := res.Data.(*resources.MeshData)
	if !ok {
		t.Fatalf("Data is %T, want *resources.MeshData", res.Data)
	}
	if mesh.VertexCount != prism.VertexCount {
		t.Errorf("VertexCount = %d, want %d", mesh.VertexCount, prism.VertexCount)
	}
	if !bytes.Equal(mesh.Vertices, prism.Vertices) {
		t.Error("vertex bytes do not roundtrip")
	}
}

func TestBytesToBytecode(t *testing.T) {
	words, err := BytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	if err != nil {
		t.Fatalf("BytesToBytecode: %v", err)
	}
	// First word of every SPIR-V module is the magic number.
	if words[0] != 0x07230203 {
		t.Errorf("words[0] = %#x, want 0x07230203", words[0])
	}
	if words[1] != 0x00010000 {
		t.Errorf("words[1] = %#x, want 0x00010000", words[1])
	}

	if _, err := BytesToBytecode([]byte{1, 2, 3}); err == nil {
		t.Error("want error for non-word-aligned input")
	}
}
