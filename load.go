// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/audmix/audio"
	"golang.org/x/sync/errgroup"
)

// DefaultLoadConcurrency bounds LoadAll when limit is not positive.
const DefaultLoadConcurrency = 4

// LoadFile decodes the file at path with the decoder registered for its
// extension.
func LoadFile(reg *audio.Registry, path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	src, err := reg.Decode(FormatOf(path), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	clip, err := ReadClip(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	clip.Name = filepath.Base(path)
	return clip, nil
}

// LoadAll decodes paths concurrently, at most limit at a time, and returns
// the clips in the order of paths. The first failure cancels the files not
// yet started.
func LoadAll(ctx context.Context, reg *audio.Registry, paths []string, limit int) ([]*Clip, error) {
	if limit <= 0 {
		limit = DefaultLoadConcurrency
	}

	clips := make([]*Clip, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			clip, err := LoadFile(reg, path)
			if err != nil {
				return err
			}
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}
