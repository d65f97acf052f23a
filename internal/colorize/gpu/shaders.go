package gpu

import (
	"embed"
	"fmt"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// shaderSource returns the WGSL for the named kernel. Kernels that work on
// colors get common.wgsl prepended.
func shaderSource(name string) (string, error) {
	body, err := shaderFS.ReadFile("shaders/" + name + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("failed to read shader %s: %w", name, err)
	}
	switch name {
	case "match", "blend":
		common, err := shaderFS.ReadFile("shaders/common.wgsl")
		if err != nil {
			return "", fmt.Errorf("failed to read shader common: %w", err)
		}
		return string(common) + "\n" + string(body), nil
	}
	return string(body), nil
}
