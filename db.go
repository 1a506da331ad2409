package tilekit

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Resource kinds returned by ResourceDB.Kind.
const (
	ResourceDataFile = "datafile"
	ResourcePalette  = "palette"
	ResourceArranger = "arranger"
)

// ResourceDB is the catalog of data files, palettes and arrangers, all
// sharing one namespace of keys.
type ResourceDB struct {
	db *sql.DB
}

// NewResourceDB opens or creates the catalog stored in file.
func NewResourceDB(file string) (*ResourceDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS datafile (id INTEGER PRIMARY KEY NOT NULL, key TEXT NOT NULL UNIQUE, name TEXT NOT NULL, location TEXT NOT NULL, kind TEXT NOT NULL, crc TEXT NOT NULL)",
		"CREATE TABLE IF NOT EXISTS palette (id INTEGER PRIMARY KEY NOT NULL, key TEXT NOT NULL UNIQUE, name TEXT NOT NULL, model TEXT NOT NULL, zero_transparent INTEGER NOT NULL)",
		"CREATE TABLE IF NOT EXISTS palette_source (palette_id INTEGER NOT NULL, seq INTEGER NOT NULL, kind TEXT NOT NULL, datafile_key TEXT NOT NULL, file_offset TEXT NOT NULL, bit_offset INTEGER NOT NULL, entries INTEGER NOT NULL, colors TEXT NOT NULL, FOREIGN KEY(palette_id) REFERENCES palette(id) ON DELETE CASCADE)",
		"CREATE TABLE IF NOT EXISTS arranger (id INTEGER PRIMARY KEY NOT NULL, key TEXT NOT NULL UNIQUE, name TEXT NOT NULL, elements_x INTEGER NOT NULL, elements_y INTEGER NOT NULL, element_width INTEGER NOT NULL, element_height INTEGER NOT NULL, layout TEXT NOT NULL, color TEXT NOT NULL, default_codec TEXT NOT NULL, default_datafile TEXT NOT NULL, default_palette TEXT NOT NULL, sequential INTEGER NOT NULL, file_offset TEXT NOT NULL, bit_offset INTEGER NOT NULL, tile_layout TEXT NOT NULL)",
		"CREATE TABLE IF NOT EXISTS element (arranger_id INTEGER NOT NULL, pos_x INTEGER NOT NULL, pos_y INTEGER NOT NULL, file_offset TEXT NOT NULL, bit_offset INTEGER NOT NULL, codec TEXT NOT NULL, palette_key TEXT NOT NULL, datafile_key TEXT NOT NULL, mirror TEXT NOT NULL, rotation TEXT NOT NULL, FOREIGN KEY(arranger_id) REFERENCES arranger(id) ON DELETE CASCADE)",
	} {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &ResourceDB{
		db: db,
	}, nil
}

func (db *ResourceDB) Close() error {
	return db.db.Close()
}

// Kind returns which kind of resource uses key, or an empty string.
func (db *ResourceDB) Kind(key string) (string, error) {
	var kind string
	switch err := db.db.QueryRow("SELECT ? FROM datafile WHERE key = ? UNION SELECT ? FROM palette WHERE key = ? UNION SELECT ? FROM arranger WHERE key = ?", ResourceDataFile, key, ResourcePalette, key, ResourceArranger, key).Scan(&kind); err {
	case sql.ErrNoRows:
		return "", nil
	case nil:
		return kind, nil
	default:
		return "", err
	}
}

// Delete removes the resource using key and reports whether there was one.
func (db *ResourceDB) Delete(key string) (bool, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ok, err := deleteKey(tx, key)
	if err != nil {
		return false, err
	}
	return ok, tx.Commit()
}

func deleteKey(tx *sql.Tx, key string) (bool, error) {
	var n int64
	for _, table := range []string{"datafile", "palette", "arranger"} {
		result, err := tx.Exec("DELETE FROM "+table+" WHERE key = ?", key)
		if err != nil {
			return false, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, err
		}
		n += rows
	}
	return n > 0, nil
}

// Unlink deletes key along with the arrangers in removed and stores the
// updated arranger records in changed, all in one transaction.
func (db *ResourceDB) Unlink(key string, changed []ArrangerRecord, removed []string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range changed {
		if err := putArranger(tx, rec); err != nil {
			return err
		}
	}
	for _, k := range removed {
		if _, err := deleteKey(tx, k); err != nil {
			return err
		}
	}
	if _, err := deleteKey(tx, key); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *ResourceDB) keys(table string) ([]string, error) {
	rows, err := db.db.Query("SELECT key FROM " + table + " ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// PutDataFile adds or replaces a data file.
func (db *ResourceDB) PutDataFile(rec DataFileRecord) error {
	if _, err := db.db.Exec("INSERT OR REPLACE INTO datafile (key, name, location, kind, crc) VALUES (?, ?, ?, ?, ?)", rec.Key, rec.Name, rec.Location, rec.Kind, fmt.Sprintf("%08X", rec.CRC)); err != nil {
		return err
	}
	return nil
}

// DataFile returns the data file using key or nil.
func (db *ResourceDB) DataFile(key string) (*DataFileRecord, error) {
	rec := DataFileRecord{Key: key}
	var crc string
	switch err := db.db.QueryRow("SELECT name, location, kind, crc FROM datafile WHERE key = ?", key).Scan(&rec.Name, &rec.Location, &rec.Kind, &crc); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		v, err := strconv.ParseUint(crc, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: data file %q checksum %q", errBadRecord, key, crc)
		}
		rec.CRC = uint32(v)
		return &rec, nil
	default:
		return nil, err
	}
}

// DataFiles returns every data file ordered by key.
func (db *ResourceDB) DataFiles() ([]DataFileRecord, error) {
	keys, err := db.keys("datafile")
	if err != nil {
		return nil, err
	}
	recs := make([]DataFileRecord, 0, len(keys))
	for _, key := range keys {
		rec, err := db.DataFile(key)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func joinColors(src ColorSourceRecord) string {
	switch src.Kind {
	case SourceNative:
		return strings.Join(src.Native, ",")
	case SourceForeign:
		s := make([]string, len(src.Foreign))
		for i, f := range src.Foreign {
			s[i] = strconv.FormatUint(uint64(f), 16)
		}
		return strings.Join(s, ",")
	}
	return ""
}

func splitColors(src *ColorSourceRecord, colors string) error {
	if colors == "" {
		return nil
	}
	switch src.Kind {
	case SourceNative:
		src.Native = strings.Split(colors, ",")
	case SourceForeign:
		for _, s := range strings.Split(colors, ",") {
			v, err := strconv.ParseUint(s, 16, 32)
			if err != nil {
				return fmt.Errorf("%w: foreign color %q", errBadRecord, s)
			}
			src.Foreign = append(src.Foreign, uint32(v))
		}
	}
	return nil
}

// PutPalette adds or replaces a palette.
func (db *ResourceDB) PutPalette(rec PaletteRecord) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM palette WHERE key = ?", rec.Key); err != nil {
		return err
	}
	result, err := tx.Exec("INSERT INTO palette (key, name, model, zero_transparent) VALUES (?, ?, ?, ?)", rec.Key, rec.Name, rec.ColorModel, rec.ZeroIndexTransparent)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	for i, src := range rec.Sources {
		if _, err := tx.Exec("INSERT INTO palette_source (palette_id, seq, kind, datafile_key, file_offset, bit_offset, entries, colors) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", id, i, src.Kind, src.DataFileKey, src.FileOffset, src.BitOffset, src.Entries, joinColors(src)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Palette returns the palette using key or nil.
func (db *ResourceDB) Palette(key string) (*PaletteRecord, error) {
	rec := PaletteRecord{Key: key}
	var id int64
	switch err := db.db.QueryRow("SELECT id, name, model, zero_transparent FROM palette WHERE key = ?", key).Scan(&id, &rec.Name, &rec.ColorModel, &rec.ZeroIndexTransparent); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
	default:
		return nil, err
	}

	rows, err := db.db.Query("SELECT kind, datafile_key, file_offset, bit_offset, entries, colors FROM palette_source WHERE palette_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var src ColorSourceRecord
		var colors string
		if err := rows.Scan(&src.Kind, &src.DataFileKey, &src.FileOffset, &src.BitOffset, &src.Entries, &colors); err != nil {
			return nil, err
		}
		if err := splitColors(&src, colors); err != nil {
			return nil, err
		}
		rec.Sources = append(rec.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &rec, nil
}

// PaletteKeys returns the key of every palette in order.
func (db *ResourceDB) PaletteKeys() ([]string, error) {
	return db.keys("palette")
}

// PutArranger adds or replaces an arranger.
func (db *ResourceDB) PutArranger(rec ArrangerRecord) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := putArranger(tx, rec); err != nil {
		return err
	}

	return tx.Commit()
}

func putArranger(tx *sql.Tx, rec ArrangerRecord) error {
	if _, err := tx.Exec("DELETE FROM arranger WHERE key = ?", rec.Key); err != nil {
		return err
	}
	result, err := tx.Exec("INSERT INTO arranger (key, name, elements_x, elements_y, element_width, element_height, layout, color, default_codec, default_datafile, default_palette, sequential, file_offset, bit_offset, tile_layout) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.Key, rec.Name, rec.ElementsX, rec.ElementsY, rec.ElementWidth, rec.ElementHeight, rec.Layout, rec.Color, rec.DefaultCodec, rec.DefaultDataFile, rec.DefaultPalette, rec.Sequential, rec.FileOffset, rec.BitOffset, rec.TileLayout)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	for _, e := range rec.Elements {
		if _, err := tx.Exec("INSERT INTO element (arranger_id, pos_x, pos_y, file_offset, bit_offset, codec, palette_key, datafile_key, mirror, rotation) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, e.PosX, e.PosY, e.FileOffset, e.BitOffset, e.CodecName, e.PaletteKey, e.DataFileKey, e.Mirror, e.Rotation); err != nil {
			return err
		}
	}

	return nil
}

func (db *ResourceDB) Arranger(key string) (*ArrangerRecord, error) {
	rec := ArrangerRecord{Key: key}
	var id int64
	switch err := db.db.QueryRow("SELECT id, name, elements_x, elements_y, element_width, element_height, layout, color, default_codec, default_datafile, default_palette, sequential, file_offset, bit_offset, tile_layout FROM arranger WHERE key = ?", key).Scan(
		&id, &rec.Name, &rec.ElementsX, &rec.ElementsY, &rec.ElementWidth, &rec.ElementHeight, &rec.Layout, &rec.Color, &rec.DefaultCodec, &rec.DefaultDataFile, &rec.DefaultPalette, &rec.Sequential, &rec.FileOffset, &rec.BitOffset, &rec.TileLayout); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
	default:
		return nil, err
	}

	rows, err := db.db.Query("SELECT pos_x, pos_y, file_offset, bit_offset, codec, palette_key, datafile_key, mirror, rotation FROM element WHERE arranger_id = ? ORDER BY pos_y, pos_x", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e ElementRecord
		if err := rows.Scan(&e.PosX, &e.PosY, &e.FileOffset, &e.BitOffset, &e.CodecName, &e.PaletteKey, &e.DataFileKey, &e.Mirror, &e.Rotation); err != nil {
			return nil, err
		}
		rec.Elements = append(rec.Elements, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &rec, nil
}

// ArrangerKeys returns the key of every arranger in order.
func (db *ResourceDB) ArrangerKeys() ([]string, error) {
	return db.keys("arranger")
}
