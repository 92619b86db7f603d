/*
Package agb is a library for reading and writing Game Boy Advance ROM
assets: BIOS-compatible LZ77 streams, 4bpp/8bpp tile graphics and
15-bit BGR palettes.

The codec packages rom, lz77, palette and tile do the work; this
package ties them to a catalog database of scanned cartridges.
*/
package agb

import "log"

// AGB maintains a catalog of scanned cartridge images and the assets
// found inside them.
type AGB struct {
	db     *GameDB
	logger *log.Logger
}

// New opens the catalog database at file.
func New(file string, logger *log.Logger) (*AGB, error) {
	db, err := NewGameDB(file)
	if err != nil {
		return nil, err
	}

	return &AGB{
		db:     db,
		logger: logger,
	}, nil
}

// Close releases the catalog database.
func (a *AGB) Close() error {
	return a.db.Close()
}
