// Package masterdb reads the plaintext master database for the one
// query the system scan needs: character_system_text.
package masterdb

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"uma-voxdump/internal/umaerr"
)

// SystemTextRow is one row from character_system_text.
type SystemTextRow struct {
	CharacterID int64
	Text        string
	CueSheet    string
	CueID       int64
}

// Open connects to the plaintext master database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, umaerr.NotFoundf(path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, umaerr.NotFoundf(path, err)
	}
	return db, nil
}

const systemTextQuery = `
SELECT character_id, text, cue_sheet, cue_id
FROM character_system_text
WHERE cue_sheet IS NOT NULL AND cue_sheet != ''
`

// SystemText runs the character_system_text query and returns every row.
func SystemText(db *sql.DB) ([]SystemTextRow, error) {
	rows, err := db.Query(systemTextQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SystemTextRow
	for rows.Next() {
		var r SystemTextRow
		if err := rows.Scan(&r.CharacterID, &r.Text, &r.CueSheet, &r.CueID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
