package vulkan

import (
	"encoding/binary"
	gomath "math"
	"testing"

	m "github.com/spaghettifunk/cubes/engine/math"
)

func floatAt(data []byte, offset int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}

func TestMarkFramePendingPanicsWhenFrameInFlight(t *testing.T) {
	r := &Renderer{}
	r.markFramePending()

	defer func() {
		if recover() == nil {
			t.Error("second markFramePending with a frame in flight did not panic")
		}
	}()
	r.markFramePending()
}

func TestCompleteFrameReportsFirstCompletionOnly(t *testing.T) {
	r := &Renderer{}
	r.markFramePending()

	if !r.completeFrame() {
		t.Error("first completion reported no frame pending")
	}
	if r.completeFrame() {
		t.Error("second completion reported a frame pending")
	}

	// The cycle can start again afterwards.
	r.markFramePending()
	if !r.completeFrame() {
		t.Error("frame cycle broken after a completed frame")
	}
}

func TestBuildVertexUniformLayout(t *testing.T) {
	vp := m.NewMat4Translation(m.NewVec3(1, 2, 3))
	model := m.NewMat4Scale(m.NewVec3(4, 5, 6))
	normal := model.NormalMatrix()

	out := buildVertexUniform(vp, model, normal)
	if len(out) != rawVertexUniformSize {
		t.Fatalf("vertex block is %d bytes, want %d", len(out), rawVertexUniformSize)
	}

	// View-projection occupies the first mat4.
	for i, want := range vp.Data {
		if got := floatAt(out, i*4); got != want {
			t.Fatalf("vp element %d = %v, want %v", i, got, want)
		}
	}
	// Model matrix at byte 64.
	for i, want := range model.Data {
		if got := floatAt(out, 64+i*4); got != want {
			t.Fatalf("model element %d = %v, want %v", i, got, want)
		}
	}
	// Normal matrix columns each start on a 16 byte boundary.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			want := normal.Data[col*3+row]
			if got := floatAt(out, 128+col*16+row*4); got != want {
				t.Fatalf("normal[%d][%d] = %v, want %v", col, row, got, want)
			}
		}
	}
}

func TestBuildFragmentUniformLayout(t *testing.T) {
	eye := m.NewVec3(7, 8, 9)
	light := m.NewVec3(0, 0, 25)

	out := buildFragmentUniform(eye, light)
	if len(out) != rawFragmentUniformSize {
		t.Fatalf("fragment block is %d bytes, want %d", len(out), rawFragmentUniformSize)
	}

	tests := []struct {
		name   string
		offset int
		want   []float32
	}{
		{"eye position", 0, []float32{7, 8, 9}},
		{"ambient", 16, []float32{0.05, 0.05, 0.05}},
		{"diffuse", 32, []float32{0.7, 0.7, 0.7}},
		{"specular", 48, []float32{0.66, 0.66, 0.66}},
		{"light position", 64, []float32{0, 0, 25}},
		{"attenuation", 80, []float32{1, 0, 0}},
		{"light color", 96, []float32{1, 1, 1}},
		{"intensity", 108, []float32{0.8}},
		{"specular exponent", 112, []float32{150}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i, want := range tc.want {
				if got := floatAt(out, tc.offset+i*4); got != want {
					t.Errorf("value %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestEncodeFloatsLittleEndian(t *testing.T) {
	out := encodeFloats([]float32{1.0})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, out[i], want[i])
		}
	}
}

func TestTakeUniformWriteDrainsDirtySlots(t *testing.T) {
	tests := []struct {
		name      string
		animating bool
		dirty     uint32
		want      []bool
	}{
		{"static scene, no change", false, 0, []bool{false, false, false}},
		{"each slot rewritten once after a change", false, 2, []bool{true, true, false, false}},
		{"animating rewrites every frame", true, 0, []bool{true, true, true}},
		{"animating drains a pending change", true, 2, []bool{true, true, true, true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Renderer{animating: tc.animating, vpDirty: tc.dirty}
			for i, want := range tc.want {
				if got := r.takeUniformWrite(); got != want {
					t.Errorf("frame %d: takeUniformWrite() = %v, want %v", i, got, want)
				}
			}
			if r.vpDirty != 0 {
				t.Errorf("dirty counter left at %d, want 0", r.vpDirty)
			}
		})
	}
}

func TestShaderForAssetMapsTheSceneShaders(t *testing.T) {
	r := &Renderer{
		instVertShader:  NewShader(),
		instFragShader:  NewShader(),
		floorVertShader: NewShader(),
		floorFragShader: NewShader(),
	}
	tests := []struct {
		name string
		want *Shader
	}{
		{"phong_inst.vert", r.instVertShader},
		{"phong_inst.frag", r.instFragShader},
		{"flat_color.vert", r.floorVertShader},
		{"flat_color.frag", r.floorFragShader},
	}
	for _, tc := range tests {
		got, ok := r.shaderForAsset(tc.name)
		if !ok || got != tc.want {
			t.Errorf("shaderForAsset(%q) = (%p, %v), want (%p, true)", tc.name, got, ok, tc.want)
		}
	}
	if _, ok := r.shaderForAsset("cube.buf"); ok {
		t.Error("shaderForAsset accepted a mesh asset")
	}
}
