package textutil

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ContainerToHostPath maps an absolute path inside the container, rooted
// at containerRoot, onto hostRoot. Relative paths are taken relative to
// containerRoot. Paths escaping containerRoot are rejected.
func ContainerToHostPath(hostRoot, containerPath, containerRoot string) (string, error) {
	containerRoot = path.Clean("/" + strings.TrimSpace(containerRoot))
	p := strings.TrimSpace(filepath.ToSlash(containerPath))
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if !path.IsAbs(p) {
		p = path.Join(containerRoot, p)
	}
	p = path.Clean(p)

	var rel string
	switch {
	case containerRoot == "/":
		rel = strings.TrimPrefix(p, "/")
	case p == containerRoot:
		rel = ""
	case strings.HasPrefix(p, containerRoot+"/"):
		rel = p[len(containerRoot)+1:]
	default:
		return "", fmt.Errorf("path %q is outside %s", containerPath, containerRoot)
	}
	return filepath.Join(hostRoot, filepath.FromSlash(rel)), nil
}
