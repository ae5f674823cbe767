// Package pool manages the directory of source images challenges are drawn from.
package pool

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tileCaptcha/internal/imageio"
)

// ErrEmpty is returned when the pool directory holds no decodable images.
var ErrEmpty = errors.New("image pool is empty")

// Pool is a directory of candidate challenge images.
type Pool struct {
	Dir string
}

// New returns a pool over dir. The directory is read on every call, so images
// can be added or removed while the server runs.
func New(dir string) *Pool {
	return &Pool{Dir: dir}
}

// List returns every supported image in the pool, sorted by name.
func (p *Pool) List() ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("read image pool %s: %w", p.Dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imageio.Supported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(p.Dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Pick selects one image uniformly at random using reservoir sampling, so the
// directory listing never has to be held in full.
func (p *Pool) Pick() (string, error) {
	d, err := os.Open(p.Dir)
	if err != nil {
		return "", fmt.Errorf("open image pool %s: %w", p.Dir, err)
	}
	defer d.Close()

	var chosen string
	count := 0
	for {
		entries, err := d.ReadDir(64)
		for _, e := range entries {
			if e.IsDir() || !imageio.Supported(e.Name()) {
				continue
			}
			count++
			// keep the current candidate with probability 1/count
			if rand.Intn(count) == 0 {
				chosen = e.Name()
			}
		}
		if err != nil {
			break
		}
	}
	if chosen == "" {
		return "", ErrEmpty
	}
	return filepath.Join(p.Dir, chosen), nil
}

// ArtifactName derives the file name of a rendered artifact from the source
// image's base name, qualified by the session so concurrent challenges built
// from the same source never collide.
func ArtifactName(source, sessionID, suffix, ext string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s_%s%s", base, sessionID, suffix, ext)
}
