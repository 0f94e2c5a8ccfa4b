//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the assets and runs the application.
func (Run) App() error {
	mg.Deps(Build.Shaders, Build.Meshes)
	fmt.Println("Run cubes...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}
