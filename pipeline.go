package agb

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bodgit/agb/lz77"
	"github.com/bodgit/agb/palette"
	"github.com/bodgit/agb/rom"
)

// Asset is a decodable blob located inside a scanned cartridge.
type Asset struct {
	Offset     uint32
	Length     int
	Kind       string
	Compressed bool
}

// Asset kinds recorded by the scanner.
const (
	KindPalette  = "palette"
	KindGraphics = "graphics"
)

// probeStep is the alignment at which the scanner tests for LZ77
// streams; compressed assets are 4-aligned in practice.
const probeStep = 4

func crcFile(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err = io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%.*X", crc32.Size<<1, h.Sum(nil)), nil
}

// classify maps a decompressed byte count onto an asset kind.
func classify(length int) (string, bool) {
	switch {
	case length == palette.Colors16*2 || length == palette.Colors256*2:
		return KindPalette, true
	case length > 0 && length%32 == 0:
		return KindGraphics, true
	}
	return "", false
}

// ProbeAssets scans a loaded cartridge for LZ77 streams that decode
// cleanly and look like palettes or tile graphics. The returned
// lengths are the compressed bytes the decoder consumed, header
// included; alignment padding after a stream is not counted.
func ProbeAssets(r *rom.Rom) []Asset {
	var assets []Asset
	for off := uint32(0); off+4 < r.Length(); off += probeStep {
		data, consumed, err := lz77.DecodeRom(r, off)
		if err != nil {
			continue
		}

		kind, ok := classify(len(data))
		if !ok {
			continue
		}

		assets = append(assets, Asset{
			Offset:     off,
			Length:     consumed,
			Kind:       kind,
			Compressed: true,
		})
	}
	return assets
}

func (a *AGB) findDirectories(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(dir string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a directory
			if !info.Mode().IsDir() {
				return nil
			}

			select {
			case out <- dir:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (a *AGB) scanFile(file string) error {
	crc, err := crcFile(file)
	if err != nil {
		return err
	}

	r, err := rom.LoadFile(file)
	if err != nil {
		if errors.Is(err, rom.ErrRomSize) {
			a.logger.Printf("Skipping \"%s\": %v\n", file, err)
			return nil
		}
		return err
	}

	id, err := a.db.AddROM(crc, r.Info().Code(), r.Info().Title(), int64(r.Length()), file)
	if err != nil {
		return err
	}

	for _, asset := range ProbeAssets(r) {
		if err := a.db.AddAsset(id, asset.Offset, asset.Length, asset.Kind, asset.Compressed); err != nil {
			return err
		}
	}

	a.logger.Printf("Scanned \"%s\" (%s)\n", file, r.Info().Code())
	return nil
}

func (a *AGB) directoryWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for dir := range in {
			if err := filepath.Walk(dir, func(file string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}

				// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
				if info.Name()[0] == '.' {
					if info.Mode().IsDir() {
						return filepath.SkipDir
					}
					return nil
				}

				// Ignore anything that isn't a normal file
				if !info.Mode().IsRegular() {
					return nil
				}

				// Check files are in the "top" directory
				if filepath.Dir(file) != dir {
					return nil
				}

				switch filepath.Ext(file) {
				case ".gba", ".agb":
					return a.scanFile(file)
				}

				return nil
			}); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks path for cartridge images, cataloging each one and the
// LZ77 assets found inside it.
func (a *AGB) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	dirs, errc, err := a.findDirectories(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < 10; i++ {
		errc, err := a.directoryWorker(ctx, dirs)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
