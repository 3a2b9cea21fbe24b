package embedder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vexcore/vexel/domain/embed"
)

// HubDownloader resolves embed.HubRefPrefix references by fetching model
// files over HTTP into a local cache directory. The hub's own download
// protocol, progress reporting, and on-disk caching format are out of scope
// for this module (see embed.HubResolver); this is a narrow, swappable
// implementation of that interface.
type HubDownloader struct {
	CacheRoot string
	BaseURL   string // e.g. "https://huggingface.co"
	Client    *http.Client
}

var _ embed.HubResolver = (*HubDownloader)(nil)

// NewHubDownloader creates a HubDownloader caching under cacheRoot.
func NewHubDownloader(cacheRoot string) *HubDownloader {
	return &HubDownloader{
		CacheRoot: cacheRoot,
		BaseURL:   "https://huggingface.co",
		Client:    http.DefaultClient,
	}
}

// Resolve fetches remoteRef/variant into CacheRoot/<remoteRef>/ if not
// already cached, and returns that directory plus variant as the file name.
func (d *HubDownloader) Resolve(ctx context.Context, remoteRef, variant, token string) (string, string, error) {
	ref := strings.TrimPrefix(remoteRef, embed.HubRefPrefix)
	if ref == "" {
		return "", "", fmt.Errorf("empty hub reference")
	}
	if variant == "" {
		variant = "model.onnx"
	}

	localDir := filepath.Join(d.CacheRoot, filepath.FromSlash(ref))
	target := filepath.Join(localDir, variant)
	if _, err := os.Stat(target); err == nil {
		return localDir, variant, nil
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create cache directory: %w", err)
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", d.BaseURL, ref, variant)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("build hub request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(target)
		return "", "", fmt.Errorf("write %s: %w", target, err)
	}

	return localDir, variant, nil
}
