package palette

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"

	"github.com/ironsheep/colorizer/internal/colorize"
)

// ErrSchemeNotFound is returned when a scheme name matches no file and no
// built-in scheme.
var ErrSchemeNotFound = errors.New("palette: colorscheme not found")

// maxSchemeBytes caps remote downloads.
const maxSchemeBytes = 1 << 20

// Loader resolves a colorscheme reference to its hex codes.
//
// A reference is one of:
//   - an http:// or https:// URL, downloaded once and kept in CacheDir
//   - a path to an image, whose dominant colors become the scheme
//   - a path to a scheme file (anything with a path separator or a .toml
//     suffix)
//   - a name, looked up as <ConfigDir>/<name>.toml and then among the
//     built-in schemes
type Loader struct {
	// ConfigDir holds named scheme files. Empty skips the lookup.
	ConfigDir string

	// CacheDir stores downloaded schemes, zstd-compressed. Empty disables
	// the cache.
	CacheDir string

	// Client fetches remote schemes. Nil uses a client with a 30s timeout.
	Client *http.Client

	// ImageColors is the number of colors taken from an image reference.
	// Zero means DefaultImageColors.
	ImageColors int
}

// Load returns the hex codes of the referenced scheme.
func (l *Loader) Load(ctx context.Context, ref string) ([]string, error) {
	switch {
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return l.loadRemote(ctx, ref)
	case isImagePath(ref):
		return loadImage(ref, l.ImageColors)
	case strings.ContainsRune(ref, filepath.Separator) || strings.HasSuffix(ref, ".toml"):
		return loadFile(ref)
	}

	if l.ConfigDir != "" {
		path := filepath.Join(l.ConfigDir, ref+".toml")
		if _, err := os.Stat(path); err == nil {
			return loadFile(path)
		}
	}
	if codes, ok := Builtin(ref); ok {
		return codes, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSchemeNotFound, ref)
}

// Resolve loads the referenced scheme and turns it into an interpolated
// palette. An empty scheme fails with colorize.ErrPaletteEmpty.
func (l *Loader) Resolve(ctx context.Context, ref string, threshold float64) (colorize.Palette, error) {
	codes, err := l.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	p, err := FromHex(codes)
	if err != nil {
		return nil, fmt.Errorf("colorscheme %q: %w", ref, err)
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("colorscheme %q: %w", ref, colorize.ErrPaletteEmpty)
	}
	out := Interpolate(p, threshold)
	colorize.Logger().Debug("palette resolved", "scheme", ref, "colors", len(p), "interpolated", len(out))
	return out, nil
}

func loadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read colorscheme: %w", err)
	}
	codes, err := ParseScheme(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse colorscheme %s: %w", path, err)
	}
	return codes, nil
}

// ParseScheme reads a scheme file. Two layouts are accepted: a TOML
// document with a top-level `colors` array, or one hex code per line with
// optional quotes and trailing commas. In the line layout, "# " starts a
// comment.
func ParseScheme(data []byte) ([]string, error) {
	var doc struct {
		Colors []string `toml:"colors"`
	}
	if md, err := toml.Decode(string(data), &doc); err == nil && md.IsDefined("colors") {
		return doc.Colors, nil
	}

	var codes []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "#" || strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "//") {
			continue
		}
		// "#abc # note" keeps only the code.
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			line = line[:i]
		}
		line = strings.Trim(line, `[],"'`)
		if line == "" {
			continue
		}
		if _, err := ParseHex(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		codes = append(codes, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

func (l *Loader) cachePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(l.CacheDir, hex.EncodeToString(sum[:8])+".scheme.zst")
}

func (l *Loader) loadRemote(ctx context.Context, url string) ([]string, error) {
	if l.CacheDir != "" {
		if codes, err := l.readCache(url); err == nil {
			return codes, nil
		}
	}

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch colorscheme: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch colorscheme: %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read colorscheme: %w", err)
	}
	codes, err := ParseScheme(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse colorscheme %s: %w", url, err)
	}

	if l.CacheDir != "" {
		if err := l.writeCache(url, data); err != nil {
			colorize.Logger().Warn("palette cache write failed", "url", url, "error", err)
		}
	}
	return codes, nil
}

func (l *Loader) readCache(url string) ([]string, error) {
	compressed, err := os.ReadFile(l.cachePath(url))
	if err != nil {
		return nil, err
	}
	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cached colorscheme: %w", err)
	}
	return ParseScheme(data)
}

func (l *Loader) writeCache(url string, data []byte) error {
	if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(l.cachePath(url), encoder.EncodeAll(data, nil), 0o644)
}
