package census

import "strings"

// containerKeywords flag a process by its own name.
var containerKeywords = []string{
	"docker", "containerd", "runc", "pause",
	"container", "podman", "cri-o", "shim",
}

// runtimeParentKeywords flag a process by its parent's name.
var runtimeParentKeywords = []string{
	"containerd", "dockerd", "docker",
}

// IsContainer reports whether a process looks like part of a container
// runtime. Matching is a case-sensitive substring test on the two names only;
// namespaces and cgroups are not consulted, so a binary called
// "my-container-app" is flagged and a renamed runtime is not.
func IsContainer(name, parentName string) bool {
	return containsAny(name, containerKeywords) || containsAny(parentName, runtimeParentKeywords)
}

func containsAny(s string, keys []string) bool {
	if s == "" {
		return false
	}
	for _, key := range keys {
		if strings.Contains(s, key) {
			return true
		}
	}
	return false
}
