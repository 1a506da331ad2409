/*
Package tilekit is a library for viewing and editing the graphics stored in
retro game data files.

A Workspace ties the library packages together. Data files, palettes and
arrangers are kept in a ResourceDB catalog under unique keys and the
Workspace turns those records into live data sources, palettes and arrangers
on demand.
*/
package tilekit

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/tilekit/arranger"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/colors"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
)

var (
	// ErrNotFound is returned when no resource uses a key.
	ErrNotFound = errors.New("tilekit: resource not found")
	// ErrKeyInUse is returned when adding a resource under a key that is
	// already taken.
	ErrKeyInUse = errors.New("tilekit: key already in use")
	// ErrResourceInUse is returned when unlinking a data file a palette
	// still reads from.
	ErrResourceInUse = errors.New("tilekit: resource in use")
)

// Workspace resolves resource keys to live objects.
type Workspace struct {
	db     *ResourceDB
	codecs *codec.Registry
	logger *log.Logger

	mu        sync.Mutex
	sources   map[string]*datasource.DataSource
	palettes  map[string]*palette.Palette
	arrangers map[string]arranger.Arranger
}

// New opens the catalog in file. A nil codecs uses the builtin formats.
func New(file string, codecs *codec.Registry, logger *log.Logger) (*Workspace, error) {
	db, err := NewResourceDB(file)
	if err != nil {
		return nil, err
	}
	if codecs == nil {
		codecs = codec.NewRegistry()
	}
	return &Workspace{
		db:        db,
		codecs:    codecs,
		logger:    logger,
		sources:   make(map[string]*datasource.DataSource),
		palettes:  make(map[string]*palette.Palette),
		arrangers: make(map[string]arranger.Arranger),
	}, nil
}

// Codecs returns the codec registry arrangers are built with.
func (w *Workspace) Codecs() *codec.Registry {
	return w.codecs
}

// DB returns the underlying catalog.
func (w *Workspace) DB() *ResourceDB {
	return w.db
}

// Close releases every open data source and the catalog.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for _, ds := range w.sources {
		errs = append(errs, ds.Close())
	}
	errs = append(errs, w.db.Close())
	return errors.Join(errs...)
}

func (w *Workspace) checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrKeyInUse)
	}
	kind, err := w.db.Kind(key)
	if err != nil {
		return err
	}
	if kind != "" {
		return fmt.Errorf("%w: %q is a %s", ErrKeyInUse, key, kind)
	}
	return nil
}

func dataFileKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return KindCue
	case ".zst":
		return KindCompressed
	default:
		return KindFile
	}
}

func openSource(rec DataFileRecord, readOnly bool) (*datasource.DataSource, error) {
	switch rec.Kind {
	case KindFile:
		return datasource.NewFile(rec.Key, rec.Location, readOnly), nil
	case KindCue:
		return datasource.NewCueTrack(rec.Key, rec.Location, readOnly), nil
	case KindCompressed:
		return datasource.NewCompressed(rec.Key, rec.Location), nil
	}
	return nil, fmt.Errorf("%w: data file %q has kind %q", errBadRecord, rec.Key, rec.Kind)
}

// AddDataFile catalogs the file at path under key, recording its checksum.
// Cue sheets address their first data track and .zst files are
// decompressed.
func (w *Workspace) AddDataFile(key, path string) (*datasource.DataSource, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkKey(key); err != nil {
		return nil, err
	}
	location, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	rec := DataFileRecord{
		Key:      key,
		Name:     filepath.Base(location),
		Location: location,
		Kind:     dataFileKind(location),
	}
	ds, err := openSource(rec, false)
	if err != nil {
		return nil, err
	}
	if rec.CRC, err = ds.Checksum(); err != nil {
		ds.Close()
		return nil, err
	}
	if err := w.db.PutDataFile(rec); err != nil {
		ds.Close()
		return nil, err
	}
	w.logger.Printf("Added %q as %q with CRC \"%08X\"\n", location, key, rec.CRC)

	w.sources[key] = ds
	return ds, nil
}

func (w *Workspace) dataSource(key string) (*datasource.DataSource, error) {
	if ds, ok := w.sources[key]; ok {
		return ds, nil
	}
	rec, err := w.db.DataFile(key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: data file %q", ErrNotFound, key)
	}
	ds, err := openSource(*rec, false)
	if err != nil {
		return nil, err
	}
	w.sources[key] = ds
	return ds, nil
}

// DataSource returns the data file using key.
func (w *Workspace) DataSource(key string) (*datasource.DataSource, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.dataSource(key)
}

func (w *Workspace) buildPalette(rec PaletteRecord) (*palette.Palette, error) {
	model, err := colors.ParseModel(rec.ColorModel)
	if err != nil {
		return nil, err
	}

	sources := make([]palette.Source, 0, len(rec.Sources))
	for _, s := range rec.Sources {
		switch s.Kind {
		case SourceFile:
			ds, err := w.dataSource(s.DataFileKey)
			if err != nil {
				return nil, err
			}
			addr, err := ParseAddress(s.FileOffset, s.BitOffset)
			if err != nil {
				return nil, err
			}
			sources = append(sources, palette.FileSource{
				Source:  ds,
				Address: addr,
				Entries: s.Entries,
			})
		case SourceNative:
			ns := make(palette.NativeSource, len(s.Native))
			for i, c := range s.Native {
				if ns[i], err = ParseColor(c); err != nil {
					return nil, err
				}
			}
			sources = append(sources, ns)
		case SourceForeign:
			sources = append(sources, palette.ForeignSource(s.Foreign))
		default:
			return nil, fmt.Errorf("%w: palette %q source kind %q", errBadRecord, rec.Key, s.Kind)
		}
	}

	return palette.New(rec.Key, rec.Name, model, rec.ZeroIndexTransparent, sources...)
}

// AddPalette builds the palette described by rec and catalogs it.
func (w *Workspace) AddPalette(rec PaletteRecord) (*palette.Palette, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkKey(rec.Key); err != nil {
		return nil, err
	}
	p, err := w.buildPalette(rec)
	if err != nil {
		return nil, err
	}
	if err := w.db.PutPalette(rec); err != nil {
		return nil, err
	}
	w.logger.Printf("Added palette %q with %d entries\n", rec.Key, p.Len())

	w.palettes[rec.Key] = p
	return p, nil
}

func (w *Workspace) palette(key string) (*palette.Palette, error) {
	if p, ok := w.palettes[key]; ok {
		return p, nil
	}
	rec, err := w.db.Palette(key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: palette %q", ErrNotFound, key)
	}
	p, err := w.buildPalette(*rec)
	if err != nil {
		return nil, err
	}
	w.palettes[key] = p
	return p, nil
}

// Palette returns the palette using key.
func (w *Workspace) Palette(key string) (*palette.Palette, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.palette(key)
}

func paletteRecord(p *palette.Palette) (PaletteRecord, error) {
	rec := PaletteRecord{
		Key:                  p.Key(),
		Name:                 p.Name(),
		ColorModel:           p.Model().String(),
		ZeroIndexTransparent: p.ZeroIndexTransparent(),
	}
	var i int
	for _, s := range p.Sources() {
		n := s.Len()
		if fs, ok := s.(palette.FileSource); ok {
			rec.Sources = append(rec.Sources, ColorSourceRecord{
				Kind:        SourceFile,
				DataFileKey: fs.Source.Key(),
				FileOffset:  FormatOffset(fs.Address),
				BitOffset:   fs.Address.BitOffset(),
				Entries:     fs.Entries,
			})
			i += n
			continue
		}
		src := ColorSourceRecord{
			Kind:    SourceForeign,
			Entries: n,
			Foreign: make([]uint32, n),
		}
		for j := range src.Foreign {
			f, err := p.ForeignColor(i + j)
			if err != nil {
				return PaletteRecord{}, err
			}
			src.Foreign[j] = f
		}
		rec.Sources = append(rec.Sources, src)
		i += n
	}
	return rec, nil
}

// SavePalette writes the entries of the palette using key back to its data
// files and records the current value of its literal entries.
func (w *Workspace) SavePalette(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.palette(key)
	if err != nil {
		return err
	}
	if err := p.Save(); err != nil {
		return err
	}
	rec, err := paletteRecord(p)
	if err != nil {
		return err
	}
	return w.db.PutPalette(rec)
}

func (w *Workspace) optionalPalette(key string) (*palette.Palette, error) {
	if key == "" {
		return nil, nil
	}
	return w.palette(key)
}

func (w *Workspace) buildArranger(rec ArrangerRecord) (arranger.Arranger, error) {
	ct, err := codec.ParseColorType(rec.Color)
	if err != nil {
		return nil, err
	}
	layout, err := codec.ParseLayout(rec.Layout)
	if err != nil {
		return nil, err
	}
	pal, err := w.optionalPalette(rec.DefaultPalette)
	if err != nil {
		return nil, err
	}

	if rec.Sequential {
		ds, err := w.dataSource(rec.DefaultDataFile)
		if err != nil {
			return nil, err
		}
		c, err := w.codecs.Codec(rec.DefaultCodec, rec.ElementWidth, rec.ElementHeight)
		if err != nil {
			return nil, err
		}
		s, err := arranger.NewSequential(rec.ElementsX, rec.ElementsY, ds, pal, w.codecs, c)
		if err != nil {
			return nil, err
		}
		s.SetName(rec.Name)
		if rec.TileLayout != "" && rec.TileLayout != arranger.Standard.Name {
			l, err := arranger.TileLayoutByName(rec.TileLayout)
			if err != nil {
				return nil, err
			}
			if err := s.ChangeElementLayout(l); err != nil {
				return nil, err
			}
		}
		addr, err := ParseAddress(rec.FileOffset, rec.BitOffset)
		if err != nil {
			return nil, err
		}
		if _, err := s.MoveTo(addr); err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := arranger.NewScattered(rec.Name, ct, layout, rec.ElementsX, rec.ElementsY, rec.ElementWidth, rec.ElementHeight)
	if err != nil {
		return nil, err
	}
	s.SetDefaultPalette(pal)

	for _, er := range rec.Elements {
		e, err := w.buildElement(rec, er)
		if err != nil {
			return nil, fmt.Errorf("arranger %q element (%d,%d): %w", rec.Key, er.PosX, er.PosY, err)
		}
		if err := s.SetElement(e, er.PosX, er.PosY); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (w *Workspace) buildElement(rec ArrangerRecord, er ElementRecord) (*arranger.Element, error) {
	var ds *datasource.DataSource
	if key := orDefault(er.DataFileKey, rec.DefaultDataFile); key != "" {
		var err error
		if ds, err = w.dataSource(key); err != nil {
			return nil, err
		}
	}
	c, err := w.codecs.Codec(orDefault(er.CodecName, rec.DefaultCodec), rec.ElementWidth, rec.ElementHeight)
	if err != nil {
		return nil, err
	}
	pal, err := w.optionalPalette(er.PaletteKey)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(er.FileOffset, er.BitOffset)
	if err != nil {
		return nil, err
	}
	mirror, err := arranger.ParseMirror(er.Mirror)
	if err != nil {
		return nil, err
	}
	rotation, err := arranger.ParseRotation(er.Rotation)
	if err != nil {
		return nil, err
	}
	return arranger.NewElement(ds, addr, c, pal).WithMirror(mirror).WithRotation(rotation), nil
}

// AddArranger builds the arranger described by rec and catalogs it.
func (w *Workspace) AddArranger(rec ArrangerRecord) (arranger.Arranger, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkKey(rec.Key); err != nil {
		return nil, err
	}
	a, err := w.buildArranger(rec)
	if err != nil {
		return nil, err
	}
	if err := w.db.PutArranger(rec); err != nil {
		return nil, err
	}
	w.logger.Printf("Added arranger %q\n", rec.Key)

	w.arrangers[rec.Key] = a
	return a, nil
}

// Arranger returns the arranger using key.
func (w *Workspace) Arranger(key string) (arranger.Arranger, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if a, ok := w.arrangers[key]; ok {
		return a, nil
	}
	rec, err := w.db.Arranger(key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: arranger %q", ErrNotFound, key)
	}
	a, err := w.buildArranger(*rec)
	if err != nil {
		return nil, err
	}
	w.arrangers[key] = a
	return a, nil
}

func paletteKey(p *palette.Palette) string {
	if p == nil {
		return ""
	}
	return p.Key()
}

func sourceKey(ds *datasource.DataSource) string {
	if ds == nil {
		return ""
	}
	return ds.Key()
}

// ArrangerRecordOf describes a as the arranger using key.
func ArrangerRecordOf(key string, a arranger.Arranger) (ArrangerRecord, error) {
	cols, rows := a.GridSize()
	ew, eh := a.ElementSize()
	rec := ArrangerRecord{
		Key:            key,
		Name:           a.Name(),
		ElementsX:      cols,
		ElementsY:      rows,
		ElementWidth:   ew,
		ElementHeight:  eh,
		Layout:         a.Layout().String(),
		Color:          a.ColorType().String(),
		DefaultPalette: paletteKey(a.DefaultPalette()),
	}

	if s, ok := a.(*arranger.Sequential); ok {
		if s.Source() == nil {
			return ArrangerRecord{}, fmt.Errorf("%w: sequential arranger %q has no data file", arranger.ErrInvalidOperation, key)
		}
		rec.Sequential = true
		rec.DefaultCodec = s.Codec().Name()
		rec.DefaultDataFile = s.Source().Key()
		rec.FileOffset = FormatOffset(s.FileAddress())
		rec.BitOffset = s.FileAddress().BitOffset()
		rec.TileLayout = s.TileLayout().Name
		return rec, nil
	}

	for p, e := range a.Elements() {
		rec.Elements = append(rec.Elements, ElementRecord{
			FileOffset:  FormatOffset(e.Address()),
			BitOffset:   e.Address().BitOffset(),
			PosX:        p.X,
			PosY:        p.Y,
			CodecName:   e.Codec().Name(),
			PaletteKey:  paletteKey(e.Palette()),
			DataFileKey: sourceKey(e.Source()),
			Mirror:      e.Mirror().String(),
			Rotation:    e.Rotation().String(),
		})
	}
	return rec, nil
}

// SaveArranger records a under key, replacing any arranger already there.
func (w *Workspace) SaveArranger(key string, a arranger.Arranger) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	kind, err := w.db.Kind(key)
	if err != nil {
		return err
	}
	if kind != "" && kind != ResourceArranger {
		return fmt.Errorf("%w: %q is a %s", ErrKeyInUse, key, kind)
	}
	rec, err := ArrangerRecordOf(key, a)
	if err != nil {
		return err
	}
	if err := w.db.PutArranger(rec); err != nil {
		return err
	}
	w.arrangers[key] = a
	return nil
}

func unlinkRecord(rec *ArrangerRecord, key string) bool {
	changed := false
	if rec.DefaultPalette == key {
		rec.DefaultPalette = ""
		changed = true
	}
	if !rec.Sequential && rec.DefaultDataFile == key {
		rec.DefaultDataFile = ""
		changed = true
	}
	for i := range rec.Elements {
		e := &rec.Elements[i]
		if e.PaletteKey == key {
			e.PaletteKey = ""
			changed = true
		}
		if e.DataFileKey == key {
			e.DataFileKey = ""
			changed = true
		}
	}
	return changed
}

// Unlink removes the resource using key from the catalog and from every
// arranger referencing it. Sequential arrangers reading a removed data file
// are removed too. A data file a palette still reads from is not removed.
func (w *Workspace) Unlink(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	kind, err := w.db.Kind(key)
	if err != nil {
		return err
	}
	switch kind {
	case "":
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	case ResourceDataFile:
		keys, err := w.db.PaletteKeys()
		if err != nil {
			return err
		}
		for _, pk := range keys {
			rec, err := w.db.Palette(pk)
			if err != nil {
				return err
			}
			for _, s := range rec.Sources {
				if s.Kind == SourceFile && s.DataFileKey == key {
					return fmt.Errorf("%w: palette %q reads from %q", ErrResourceInUse, pk, key)
				}
			}
		}
	}

	keys, err := w.db.ArrangerKeys()
	if err != nil {
		return err
	}
	var (
		changed []ArrangerRecord
		removed []string
	)
	for _, ak := range keys {
		if ak == key {
			continue
		}
		rec, err := w.db.Arranger(ak)
		if err != nil {
			return err
		}
		if rec.Sequential && rec.DefaultDataFile == key {
			removed = append(removed, ak)
			continue
		}
		if unlinkRecord(rec, key) {
			changed = append(changed, *rec)
		}
	}

	if err := w.db.Unlink(key, changed, removed); err != nil {
		return err
	}

	for _, ak := range removed {
		w.logger.Printf("Removed arranger %q reading from %q\n", ak, key)
		delete(w.arrangers, ak)
	}
	for _, rec := range changed {
		w.logger.Printf("Unlinked %q from arranger %q\n", key, rec.Key)
	}
	for ak, a := range w.arrangers {
		if ak != key {
			a.UnlinkResource(key)
		}
	}

	if ds, ok := w.sources[key]; ok {
		delete(w.sources, key)
		if err := ds.Close(); err != nil {
			return err
		}
	}
	delete(w.palettes, key)
	delete(w.arrangers, key)

	return nil
}
