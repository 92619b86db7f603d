package agb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// GameDB is the catalog of scanned cartridges and their assets.
type GameDB struct {
	db *sql.DB
}

// NewGameDB opens, creating if necessary, the catalog at file.
func NewGameDB(file string) (*GameDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS rom (id INTEGER PRIMARY KEY NOT NULL, crc TEXT NOT NULL UNIQUE, code TEXT NOT NULL, title TEXT NOT NULL, size INTEGER NOT NULL, path TEXT NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS asset (id INTEGER PRIMARY KEY NOT NULL, rom_id INTEGER NOT NULL, offset INTEGER NOT NULL, length INTEGER NOT NULL, kind TEXT NOT NULL, compressed INTEGER NOT NULL, UNIQUE(rom_id, offset), FOREIGN KEY(rom_id) REFERENCES rom(id))"); err != nil {
		return nil, err
	}

	return &GameDB{
		db: db,
	}, nil
}

// Close closes the underlying database.
func (db *GameDB) Close() error {
	return db.db.Close()
}

// AddROM records a scanned cartridge and returns its row id. A
// cartridge already present under the same CRC keeps its id.
func (db *GameDB) AddROM(crc, code, title string, size int64, path string) (int64, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM rom WHERE crc = ?", crc).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := db.db.Exec("INSERT INTO rom (crc, code, title, size, path) VALUES (?, ?, ?, ?, ?)", crc, code, title, size, path)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// AddAsset records a decodable asset found in a scanned cartridge.
func (db *GameDB) AddAsset(romID int64, offset uint32, length int, kind string, compressed bool) error {
	_, err := db.db.Exec("INSERT OR REPLACE INTO asset (rom_id, offset, length, kind, compressed) VALUES (?, ?, ?, ?, ?)", romID, offset, length, kind, compressed)
	return err
}

// FindROMByCRC returns the catalog row id for a CRC, or false when the
// cartridge has not been scanned.
func (db *GameDB) FindROMByCRC(crc string) (int64, bool, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM rom WHERE crc = ?", crc).Scan(&id); err {
	case sql.ErrNoRows:
		return 0, false, nil
	case nil:
		return id, true, nil
	default:
		return 0, false, err
	}
}

// Assets returns the recorded assets for a catalog row id.
func (db *GameDB) Assets(romID int64) ([]Asset, error) {
	rows, err := db.db.Query("SELECT offset, length, kind, compressed FROM asset WHERE rom_id = ? ORDER BY offset", romID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Offset, &a.Length, &a.Kind, &a.Compressed); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}
