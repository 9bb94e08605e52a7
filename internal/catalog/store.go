package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertRecord inserts or replaces a record keyed by canonical URL. A nil
// PlaylistID on the incoming record preserves any existing association so a
// playlist member re-processed standalone is updated in place, not orphaned.
func (s *Store) UpsertRecord(ctx context.Context, record *Record) (*Record, error) {
	if record == nil {
		return nil, errors.New("record is nil")
	}
	record.ProcessedAt = time.Now().UTC()

	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO records
            (name, url, kind, summary, tags, category, thumbnail_url, uploader, duration, processed_at, playlist_id)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(url) DO UPDATE SET
            name = excluded.name,
            kind = excluded.kind,
            summary = excluded.summary,
            tags = excluded.tags,
            category = excluded.category,
            thumbnail_url = excluded.thumbnail_url,
            uploader = excluded.uploader,
            duration = excluded.duration,
            processed_at = excluded.processed_at,
            playlist_id = COALESCE(excluded.playlist_id, records.playlist_id)
         RETURNING id`,
		record.Name,
		record.URL,
		string(record.Kind),
		record.Summary,
		record.Tags,
		record.Category,
		nullableString(record.ThumbnailURL),
		nullableString(record.Uploader),
		record.Duration,
		record.ProcessedAt.Format(time.RFC3339Nano),
		nullableInt64(record.PlaylistID),
	)
	if err := row.Scan(&record.ID); err != nil {
		return nil, fmt.Errorf("upsert record: %w", err)
	}
	return s.GetRecord(ctx, record.ID)
}

// UpsertPlaylist inserts or replaces a playlist keyed by canonical URL and
// returns its row id.
func (s *Store) UpsertPlaylist(ctx context.Context, playlist *Playlist) (int64, error) {
	if playlist == nil {
		return 0, errors.New("playlist is nil")
	}
	playlist.ProcessedAt = time.Now().UTC()

	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO playlists (title, url, uploader, video_count, processed_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(url) DO UPDATE SET
            title = excluded.title,
            uploader = excluded.uploader,
            video_count = excluded.video_count,
            processed_at = excluded.processed_at
         RETURNING id`,
		playlist.Title,
		playlist.URL,
		nullableString(playlist.Uploader),
		playlist.VideoCount,
		playlist.ProcessedAt.Format(time.RFC3339Nano),
	)
	if err := row.Scan(&playlist.ID); err != nil {
		return 0, fmt.Errorf("upsert playlist: %w", err)
	}
	return playlist.ID, nil
}

// PlaylistIDForURL returns the playlist association of an existing record,
// or nil when the record is unknown or standalone.
func (s *Store) PlaylistIDForURL(ctx context.Context, url string) (*int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT playlist_id FROM records WHERE url = ?`, url)
	var playlistID sql.NullInt64
	if err := row.Scan(&playlistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup playlist association: %w", err)
	}
	if !playlistID.Valid {
		return nil, nil
	}
	id := playlistID.Int64
	return &id, nil
}

// GetRecord fetches a record by identifier, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// UpdateRecord persists caller-editable fields of an existing record.
func (s *Store) UpdateRecord(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE records SET name = ?, uploader = ?, category = ?, summary = ?, tags = ? WHERE id = ?`,
		record.Name,
		nullableString(record.Uploader),
		record.Category,
		record.Summary,
		record.Tags,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %d not found", record.ID)
	}
	return nil
}

// RemoveRecord deletes a record by identifier.
func (s *Store) RemoveRecord(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemovePlaylist deletes a playlist and all of its member records.
func (s *Store) RemovePlaylist(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE playlist_id = ?`, id); err != nil {
		return fmt.Errorf("delete playlist records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// RecordsForPlaylist returns a playlist's members in insertion order.
func (s *Store) RecordsForPlaylist(ctx context.Context, playlistID int64) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM records WHERE playlist_id = ? ORDER BY id`,
		playlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("query playlist records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Library returns playlists (with nested records) and standalone records,
// newest first.
func (s *Store) Library(ctx context.Context) ([]LibraryEntry, error) {
	playlistRows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, url, uploader, video_count, processed_at FROM playlists ORDER BY processed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer playlistRows.Close()

	var entries []LibraryEntry
	for playlistRows.Next() {
		playlist, err := scanPlaylist(playlistRows)
		if err != nil {
			return nil, err
		}
		records, err := s.RecordsForPlaylist(ctx, playlist.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LibraryEntry{
			Kind:        "playlist",
			ProcessedAt: playlist.ProcessedAt,
			Playlist:    playlist,
			Records:     records,
		})
	}
	if err := playlistRows.Err(); err != nil {
		return nil, err
	}

	standaloneRows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM records WHERE playlist_id IS NULL ORDER BY processed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query standalone records: %w", err)
	}
	defer standaloneRows.Close()

	standalone, err := collectRecords(standaloneRows)
	if err != nil {
		return nil, err
	}
	for _, record := range standalone {
		entries = append(entries, LibraryEntry{
			Kind:        string(record.Kind),
			ProcessedAt: record.ProcessedAt,
			Record:      record,
		})
	}

	sortLibraryEntries(entries)
	return entries, nil
}

// AllRecords returns every record ordered by processing time, newest first.
func (s *Store) AllRecords(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records ORDER BY processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

const recordColumns = "id, name, url, kind, summary, tags, category, thumbnail_url, uploader, duration, processed_at, playlist_id"

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		name         string
		url          string
		kind         string
		summary      sql.NullString
		tags         sql.NullString
		category     sql.NullString
		thumbnailURL sql.NullString
		uploader     sql.NullString
		duration     sql.NullInt64
		processedRaw sql.NullString
		playlistID   sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&name,
		&url,
		&kind,
		&summary,
		&tags,
		&category,
		&thumbnailURL,
		&uploader,
		&duration,
		&processedRaw,
		&playlistID,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		Name:         name,
		URL:          url,
		Kind:         Kind(kind),
		Summary:      summary.String,
		Tags:         tags.String,
		Category:     category.String,
		ThumbnailURL: thumbnailURL.String,
		Uploader:     uploader.String,
		Duration:     duration.Int64,
	}
	if processed, err := parseTimeString(processedRaw.String); err == nil {
		record.ProcessedAt = processed
	}
	if playlistID.Valid {
		value := playlistID.Int64
		record.PlaylistID = &value
	}
	return record, nil
}

func scanPlaylist(scanner interface{ Scan(dest ...any) error }) (*Playlist, error) {
	var (
		id           int64
		title        string
		url          string
		uploader     sql.NullString
		videoCount   sql.NullInt64
		processedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &title, &url, &uploader, &videoCount, &processedRaw); err != nil {
		return nil, err
	}
	playlist := &Playlist{
		ID:         id,
		Title:      title,
		URL:        url,
		Uploader:   uploader.String,
		VideoCount: int(videoCount.Int64),
	}
	if processed, err := parseTimeString(processedRaw.String); err == nil {
		playlist.ProcessedAt = processed
	}
	return playlist, nil
}

func sortLibraryEntries(entries []LibraryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ProcessedAt.After(entries[j].ProcessedAt)
	})
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
