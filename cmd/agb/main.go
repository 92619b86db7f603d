package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/agb"
	"github.com/bodgit/agb/lz77"
	"github.com/bodgit/agb/palette"
	"github.com/bodgit/agb/rom"
	"github.com/bodgit/agb/tile"
	"github.com/urfave/cli/v2"
)

const defaultDB = "agb.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func readAsset(c *cli.Context) (*rom.Rom, *tile.Image, error) {
	r, err := rom.LoadFile(c.Args().First())
	if err != nil {
		return nil, nil, err
	}

	pal := new(palette.Palette)
	count := palette.Colors256
	if c.Bool("4bpp") {
		count = palette.Colors16
	}
	palOff := uint32(c.Uint64("palette-offset"))
	if c.Bool("compressed") {
		err = pal.ReadCompressed(r, palOff)
	} else {
		err = pal.ReadUncompressed(r, palOff, count)
	}
	if err != nil {
		return nil, nil, err
	}

	img := new(tile.Image)
	imgOff := uint32(c.Uint64("image-offset"))
	if c.Bool("compressed") {
		err = img.ReadCompressed(r, imgOff, c.Int("width"), c.Bool("4bpp"))
	} else {
		err = img.ReadUncompressed(r, imgOff, c.Int("length"), c.Int("width"), c.Bool("4bpp"))
	}
	if err != nil {
		return nil, nil, err
	}
	img.SetPalette(pal)

	return r, img, nil
}

func main() {
	app := cli.NewApp()

	app.Name = "agb"
	app.Usage = "Game Boy Advance ROM asset utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"AGB_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	assetFlags := []cli.Flag{
		&cli.Uint64Flag{
			Name:  "image-offset",
			Usage: "file offset of the tile data",
		},
		&cli.Uint64Flag{
			Name:  "palette-offset",
			Usage: "file offset of the palette",
		},
		&cli.IntFlag{
			Name:  "width",
			Value: 64,
			Usage: "image width in pixels, multiple of 8",
		},
		&cli.IntFlag{
			Name:  "length",
			Usage: "tile data length in bytes (uncompressed only)",
		},
		&cli.BoolFlag{
			Name:  "4bpp",
			Usage: "treat the tile data as 4bpp",
		},
		&cli.BoolFlag{
			Name:  "compressed",
			Usage: "tile data and palette are LZ77-compressed",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "info",
			Usage:       "Print cartridge header information",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				r, err := rom.LoadFile(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				info := r.Info()
				fmt.Printf("Title:    %s\n", info.Title())
				fmt.Printf("Code:     %s\n", info.Code())
				fmt.Printf("Size:     %d\n", r.Length())
				fmt.Printf("Expanded: %t\n", info.Expanded())
				fmt.Printf("Header:   ok=%t\n", r.VerifyHeader())

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Scan filesystem and catalog cartridges and their assets",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				a, err := agb.New(c.String("db"), newLogger(c))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer a.Close()

				if err := a.Scan(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "export",
			Usage:       "Extract a palette and image pair as PNG",
			Description: "",
			ArgsUsage:   "FILE PNG",
			Flags:       assetFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				_, img, err := readAsset(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				pm, err := img.Paletted()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				f, err := os.Create(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer f.Close()

				if err := png.Encode(f, pm); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "import",
			Usage:       "Insert an image into a cartridge, repointing when it does not fit",
			Description: "",
			ArgsUsage:   "FILE IMAGE",
			Flags:       assetFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := newLogger(c)

				r, img, err := readAsset(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				f, err := os.Open(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				src, _, err := image.Decode(f)
				f.Close()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := img.FromImage(src, c.Bool("4bpp")); err != nil {
					return cli.NewExitError(err, 1)
				}

				compress := c.Bool("compressed")
				off := uint32(c.Uint64("image-offset"))

				repoint, err := img.RequiresRepoint(compress)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if repoint {
					encoded, err := img.Encode()
					if err != nil {
						return cli.NewExitError(err, 1)
					}
					if compress {
						if encoded, err = lz77.Encode(encoded); err != nil {
							return cli.NewExitError(err, 1)
						}
					}
					space, ok := r.FindSpace(0, uint32(len(encoded)+4), 0xFF)
					if !ok {
						r.Expand32MB()
						space, _ = r.FindSpace(rom.Size16MB, uint32(len(encoded)+4), 0xFF)
					}
					off = rom.AlignOffset(space, 4)
					logger.Printf("Repointing image to 0x%X\n", off)
				}

				if err := img.Write(r, off, compress); err != nil {
					return cli.NewExitError(err, 1)
				}
				if err := img.Palette().Write(r, uint32(c.Uint64("palette-offset")), compress); err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := r.Save(); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
