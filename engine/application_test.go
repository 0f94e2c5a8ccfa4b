package engine

import "testing"

func TestShaderAssetName(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
		ok   bool
	}{
		{"compiled vertex shader", "assets/shaders/phong_inst.vert.spv", "phong_inst.vert", true},
		{"compiled fragment shader", "assets/shaders/flat_color.frag.spv", "flat_color.frag", true},
		{"packed mesh", "assets/meshes/cube.buf", "", false},
		{"glsl source", "assets/shaders/phong_inst.vert", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := shaderAssetName(tc.path)
			if ok != tc.ok {
				t.Fatalf("shaderAssetName(%q) ok = %v, want %v", tc.path, ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("shaderAssetName(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}
