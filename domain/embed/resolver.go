package embed

import "context"

// HubRefPrefix marks a model path as a remote hub reference rather than a
// local directory.
const HubRefPrefix = "hf://"

// IsHubRef reports whether path names a remote hub reference.
func IsHubRef(path string) bool {
	return len(path) >= len(HubRefPrefix) && path[:len(HubRefPrefix)] == HubRefPrefix
}

// HubResolver fetches a remote model into a local cache directory. It is the
// sole collaborator through which the registry touches the model hub; the
// hub client's download/progress/caching internals are out of scope here.
type HubResolver interface {
	// Resolve downloads (or locates a cached copy of) remoteRef/variant and
	// returns the local directory holding it and the specific file name to
	// load within that directory.
	Resolve(ctx context.Context, remoteRef, variant, token string) (localDir, file string, err error)
}
