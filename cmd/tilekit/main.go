package main

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/tilekit"
	"github.com/bodgit/tilekit/arranger"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/render"
	"github.com/urfave/cli/v2"
)

const defaultDB = "tilekit.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func workspace(c *cli.Context) (*tilekit.Workspace, error) {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	codecs := codec.NewRegistry()
	if file := c.String("formats"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := codecs.LoadFormats(f); err != nil {
			return nil, err
		}
	}

	return tilekit.New(c.String("db"), codecs, logger)
}

func writePNG(file string, m image.Image) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, m); err != nil {
		return err
	}

	return f.Close()
}

func main() {
	app := cli.NewApp()

	app.Name = "tilekit"
	app.Usage = "Retro game graphics viewer and editor"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"TILEKIT_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.StringFlag{
			Name:    "formats",
			EnvVars: []string{"TILEKIT_FORMATS"},
			Usage:   "path to YAML codec definitions",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "codecs",
			Usage:       "List available codecs",
			Description: "",
			Action: func(c *cli.Context) error {
				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				for _, name := range w.Codecs().Names() {
					f, err := w.Codecs().Format(name)
					if err != nil {
						return cli.NewExitError(err, 1)
					}
					fmt.Printf("%-20s %-8s %-6s %dx%d\n", f.Name, f.ColorType(), f.Layout, f.Width, f.Height)
				}

				return nil
			},
		},
		{
			Name:        "add-file",
			Usage:       "Add a data file",
			Description: "Files ending in .cue are read through their first data track and files ending in .zst are decompressed.",
			ArgsUsage:   "KEY FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				if _, err := w.AddDataFile(c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "add-palette",
			Usage:       "Add a palette",
			Description: "Entries are read from a data file, listed as colors, or both.",
			ArgsUsage:   "KEY",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "model",
					Value: "BGR15",
					Usage: "color model",
				},
				&cli.StringFlag{
					Name:  "file",
					Usage: "data file key to read entries from",
				},
				&cli.StringFlag{
					Name:  "offset",
					Value: "0",
					Usage: "hex offset of the first entry",
				},
				&cli.IntFlag{
					Name:  "entries",
					Value: 16,
					Usage: "number of entries to read",
				},
				&cli.StringSliceFlag{
					Name:  "color",
					Usage: "#RRGGBB or #RRGGBBAA color to append",
				},
				&cli.BoolFlag{
					Name:  "zero-transparent",
					Usage: "make entry zero transparent",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				rec := tilekit.PaletteRecord{
					Key:                  c.Args().First(),
					Name:                 c.Args().First(),
					ColorModel:           c.String("model"),
					ZeroIndexTransparent: c.Bool("zero-transparent"),
				}
				if key := c.String("file"); key != "" {
					rec.Sources = append(rec.Sources, tilekit.ColorSourceRecord{
						Kind:        tilekit.SourceFile,
						DataFileKey: key,
						FileOffset:  c.String("offset"),
						Entries:     c.Int("entries"),
					})
				}
				if colors := c.StringSlice("color"); len(colors) > 0 {
					rec.Sources = append(rec.Sources, tilekit.ColorSourceRecord{
						Kind:    tilekit.SourceNative,
						Entries: len(colors),
						Native:  colors,
					})
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				if _, err := w.AddPalette(rec); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "add-arranger",
			Usage:       "Add a sequential arranger over a data file",
			Description: "",
			ArgsUsage:   "KEY FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "codec",
					Value: "SNES 4bpp",
					Usage: "codec name",
				},
				&cli.IntFlag{
					Name:  "width",
					Value: 16,
					Usage: "width in elements, or pixels for single image codecs",
				},
				&cli.IntFlag{
					Name:  "height",
					Value: 16,
					Usage: "height in elements, or pixels for single image codecs",
				},
				&cli.StringFlag{
					Name:  "offset",
					Value: "0",
					Usage: "hex offset of the first element",
				},
				&cli.StringFlag{
					Name:  "tile-layout",
					Value: arranger.Standard.Name,
					Usage: "order elements are stored in",
				},
				&cli.StringFlag{
					Name:  "palette",
					Usage: "default palette key",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				f, err := w.Codecs().Format(c.String("codec"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				rec := tilekit.ArrangerRecord{
					Key:             c.Args().Get(0),
					Name:            c.Args().Get(0),
					ElementsX:       c.Int("width"),
					ElementsY:       c.Int("height"),
					ElementWidth:    f.Width,
					ElementHeight:   f.Height,
					Layout:          f.Layout.String(),
					Color:           f.ColorType().String(),
					DefaultCodec:    f.Name,
					DefaultDataFile: c.Args().Get(1),
					DefaultPalette:  c.String("palette"),
					Sequential:      true,
					FileOffset:      c.String("offset"),
					TileLayout:      c.String("tile-layout"),
				}
				if f.Layout == codec.Single {
					rec.ElementWidth, rec.ElementHeight = rec.ElementsX, rec.ElementsY
					rec.ElementsX, rec.ElementsY = 1, 1
				}

				if _, err := w.AddArranger(rec); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "move",
			Usage:       "Move a sequential arranger through its data file",
			Description: "MOVE is one of byte-down, byte-up, row-down, row-up, col-right, col-left, page-down, page-up, home or end, or a hex offset.",
			ArgsUsage:   "KEY MOVE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				key := c.Args().Get(0)
				a, err := w.Arranger(key)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				s, ok := a.(*arranger.Sequential)
				if !ok {
					return cli.NewExitError(fmt.Errorf("%q is not a sequential arranger", key), 1)
				}

				addr := s.FileAddress()
				if m, err := arranger.ParseMoveType(c.Args().Get(1)); err == nil {
					addr, err = s.Move(m)
					if err != nil {
						return cli.NewExitError(err, 1)
					}
				} else {
					to, err := tilekit.ParseAddress(c.Args().Get(1), 0)
					if err != nil {
						return cli.NewExitError(err, 1)
					}
					if addr, err = s.MoveTo(to); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				if err := w.SaveArranger(key, s); err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Println(addr)

				return nil
			},
		},
		{
			Name:        "render",
			Usage:       "Render an arranger as a PNG image",
			Description: "",
			ArgsUsage:   "KEY FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "enlarge the image by this factor",
				},
				&cli.BoolFlag{
					Name:  "paletted",
					Usage: "write palette indices rather than colors",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				a, err := w.Arranger(c.Args().Get(0))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				var m image.Image
				if c.Bool("paletted") {
					m, err = render.Paletted(context.Background(), a, a.Bounds())
				} else {
					m, err = render.Image(context.Background(), a, a.Bounds())
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if scale := c.Int("scale"); scale != 1 {
					if m, err = render.Scale(m, scale); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				if err := writePNG(c.Args().Get(1), m); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "import",
			Usage:       "Encode an image into the data files of an arranger",
			Description: "The image must be the same size as the arranger.",
			ArgsUsage:   "KEY FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				a, err := w.Arranger(c.Args().Get(0))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				f, err := os.Open(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer f.Close()

				m, _, err := image.Decode(f)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := render.Import(a, m); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "palette",
			Usage:       "Render a palette as a PNG image",
			Description: "",
			ArgsUsage:   "KEY FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "cell",
					Value: 32,
					Usage: "size of each entry in pixels",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				p, err := w.Palette(c.Args().Get(0))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				m, err := render.Swatch(p, c.Int("cell"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := writePNG(c.Args().Get(1), m); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "unlink",
			Usage:       "Remove a resource and every reference to it",
			Description: "",
			ArgsUsage:   "KEY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				if err := w.Unlink(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "verify",
			Usage:       "Check data files have not changed since they were added",
			Description: "",
			Action: func(c *cli.Context) error {
				w, err := workspace(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer w.Close()

				bad, err := w.Verify(context.Background())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				for _, key := range bad {
					fmt.Println(key)
				}
				if len(bad) > 0 {
					return cli.NewExitError(fmt.Sprintf("%d data files changed", len(bad)), 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
