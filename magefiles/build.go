//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/cubes/engine/assets/loaders"
	"github.com/spaghettifunk/cubes/engine/resources"
)

type Build mg.Namespace

var shaderSources = []string{
	"phong_inst.vert",
	"phong_inst.frag",
	"flat_color.vert",
	"flat_color.frag",
}

// Compiles the GLSL sources under assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	for _, src := range shaderSources {
		in := filepath.Join("assets", "shaders", src)
		out := in + ".spv"
		if _, err := executeCmd("glslc", withArgs(in, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Packs the generated meshes into the binary format the asset manager
// loads at startup.
func (Build) Meshes() error {
	dir := filepath.Join("assets", "meshes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	meshes := map[string]*resources.MeshData{
		"cube":  resources.GenerateCube(),
		"prism": resources.GeneratePrism(),
	}
	for name, mesh := range meshes {
		path := filepath.Join(dir, name+".buf")
		if err := os.WriteFile(path, loaders.EncodeMesh(mesh), 0o644); err != nil {
			return err
		}
		fmt.Printf("packed %s (%d vertices)\n", path, mesh.VertexCount)
	}
	return nil
}

// Compiles shaders, packs meshes, and builds the binary.
func (Build) All() error {
	mg.Deps(Build.Shaders, Build.Meshes)
	_, err := executeCmd("go", withArgs("build", "."), withStream())
	return err
}
