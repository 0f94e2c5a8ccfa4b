package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestAligned(t *testing.T) {
	tests := []struct {
		name  string
		value vk.DeviceSize
		align vk.DeviceSize
		want  vk.DeviceSize
	}{
		{"already aligned", 256, 256, 256},
		{"zero", 0, 256, 0},
		{"one below", 255, 256, 256},
		{"one above", 257, 256, 512},
		{"small alignment", 116, 16, 128},
		{"alignment of one", 117, 1, 117},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := aligned(tc.value, tc.align); got != tc.want {
				t.Errorf("aligned(%d, %d) = %d, want %d", tc.value, tc.align, got, tc.want)
			}
		})
	}
}

func TestUniformSlotSizes(t *testing.T) {
	tests := []struct {
		name     string
		align    vk.DeviceSize
		wantVert vk.DeviceSize
		wantFrag vk.DeviceSize
	}{
		{"alignment 256", 256, 256, 256},
		{"alignment 64", 64, 192, 128},
		{"alignment 16", 16, 176, 128},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := vertexUniformSize(tc.align); got != tc.wantVert {
				t.Errorf("vertexUniformSize(%d) = %d, want %d", tc.align, got, tc.wantVert)
			}
			if got := fragmentUniformSize(tc.align); got != tc.wantFrag {
				t.Errorf("fragmentUniformSize(%d) = %d, want %d", tc.align, got, tc.wantFrag)
			}
		})
	}
}

func TestComputeBufferLayout(t *testing.T) {
	layout := computeBufferLayout(
		regionRequirement{Size: 1152, Alignment: 16},
		regionRequirement{Size: 576, Alignment: 16},
		regionRequirement{Size: 48, Alignment: 16},
		regionRequirement{Size: 1024, Alignment: 256},
	)

	if layout.CubeMeshOffset != 0 {
		t.Errorf("first region must sit at offset 0, got %d", layout.CubeMeshOffset)
	}
	if layout.PrismMeshOffset != 1152 {
		t.Errorf("PrismMeshOffset = %d, want 1152", layout.PrismMeshOffset)
	}
	if layout.FloorMeshOffset != 1728 {
		t.Errorf("FloorMeshOffset = %d, want 1728", layout.FloorMeshOffset)
	}
	// 1776 rounded up to the uniform buffer's 256 alignment.
	if layout.UniformOffset != 2048 {
		t.Errorf("UniformOffset = %d, want 2048", layout.UniformOffset)
	}
	if layout.TotalSize != 3072 {
		t.Errorf("TotalSize = %d, want 3072", layout.TotalSize)
	}
}

func TestComputeBufferLayoutHonorsEachAlignment(t *testing.T) {
	// Sizes chosen so every region lands misaligned without rounding.
	layout := computeBufferLayout(
		regionRequirement{Size: 13, Alignment: 4},
		regionRequirement{Size: 7, Alignment: 8},
		regionRequirement{Size: 3, Alignment: 32},
		regionRequirement{Size: 100, Alignment: 128},
	)

	for _, check := range []struct {
		name   string
		offset vk.DeviceSize
		align  vk.DeviceSize
	}{
		{"prism", layout.PrismMeshOffset, 8},
		{"floor", layout.FloorMeshOffset, 32},
		{"uniform", layout.UniformOffset, 128},
	} {
		if check.offset%check.align != 0 {
			t.Errorf("%s region offset %d not aligned to %d", check.name, check.offset, check.align)
		}
	}

	// Regions must not overlap.
	if layout.PrismMeshOffset < 13 {
		t.Error("prism region overlaps cube region")
	}
	if layout.FloorMeshOffset < layout.PrismMeshOffset+7 {
		t.Error("floor region overlaps prism region")
	}
	if layout.UniformOffset < layout.FloorMeshOffset+3 {
		t.Error("uniform region overlaps floor region")
	}
	if layout.TotalSize != layout.UniformOffset+100 {
		t.Errorf("TotalSize = %d, want %d", layout.TotalSize, layout.UniformOffset+100)
	}
}
