package sessiondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/models"
)

// Create inserts an empty session and returns its id.
func (db *DB) Create(ctx context.Context, name string) (string, error) {
	name, err := gateway.CheckName(name)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, name, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, gateway.Revision(models.Snapshot{}), now, now)
	if err != nil {
		return "", fmt.Errorf("sessiondb: create: %w", err)
	}
	return id, nil
}

// SetVideo records the video file and duration of a session.
func (db *DB) SetVideo(ctx context.Context, id, fileName string, duration float64) error {
	if err := gateway.CheckVideo(fileName, duration); err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions SET video_file_name = ?, video_duration = ?, updated_at = ?
		WHERE id = ?
	`, fileName, duration, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sessiondb: set video: %w", err)
	}
	return requireRow(res, id)
}

// Save replaces the clips and annotations of a session within a transaction.
func (db *DB) Save(ctx context.Context, id string, snap models.Snapshot) error {
	if err := gateway.CheckSnapshot(snap); err != nil {
		return err
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sessiondb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET canvas_width = ?, canvas_height = ?, checksum = ?, updated_at = ?
		WHERE id = ?
	`, snap.CanvasWidth, snap.CanvasHeight, gateway.Revision(snap), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sessiondb: update session: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM clips WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("sessiondb: clear clips: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("sessiondb: clear annotations: %w", err)
	}

	if len(snap.Clips) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO clips (session_id, id, position, name, type, start_time, end_time, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("sessiondb: prepare clip insert: %w", err)
		}
		defer stmt.Close()
		for i, c := range snap.Clips {
			if _, err := stmt.ExecContext(ctx, id, c.ID, i, c.Name, c.Type, c.StartTime, c.EndTime, c.Description); err != nil {
				return fmt.Errorf("sessiondb: insert clip %s: %w", c.ID, err)
			}
		}
	}

	if len(snap.Annotations) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO annotations (session_id, id, position, type, clip_id, start_time, end_time, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("sessiondb: prepare annotation insert: %w", err)
		}
		defer stmt.Close()
		for i, a := range snap.Annotations {
			body, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("sessiondb: encode annotation %s: %w", a.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, id, a.ID, i, string(a.Type), a.ClipID, a.StartTime, a.EndTime, string(body)); err != nil {
				return fmt.Errorf("sessiondb: insert annotation %s: %w", a.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Load returns a session with its clips and annotations in saved order.
func (db *DB) Load(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{ID: id}
	err := db.conn.QueryRowContext(ctx, `
		SELECT name, video_file_name, video_duration, canvas_width, canvas_height, checksum, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&s.Name, &s.VideoFileName, &s.VideoDuration, &s.CanvasWidth, &s.CanvasHeight, &s.Checksum, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sessiondb: session %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sessiondb: load session: %w", err)
	}

	if s.Clips, err = db.loadClips(ctx, id); err != nil {
		return nil, err
	}
	if s.Annotations, err = db.loadAnnotations(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (db *DB) loadClips(ctx context.Context, id string) ([]models.Clip, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, type, start_time, end_time, description
		FROM clips WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sessiondb: load clips: %w", err)
	}
	defer rows.Close()

	out := []models.Clip{}
	for rows.Next() {
		var c models.Clip
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.StartTime, &c.EndTime, &c.Description); err != nil {
			return nil, err
		}
		c.Duration = c.EndTime - c.StartTime
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) loadAnnotations(ctx context.Context, id string) ([]models.Annotation, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT body FROM annotations WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sessiondb: load annotations: %w", err)
	}
	defer rows.Close()

	out := []models.Annotation{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var a models.Annotation
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("sessiondb: decode annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns a summary of every session, most recently updated first.
func (db *DB) List(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, s.name, s.video_file_name, s.video_duration, s.checksum, s.updated_at,
			(SELECT count(*) FROM clips c WHERE c.session_id = s.id),
			(SELECT count(*) FROM annotations a WHERE a.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC, s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("sessiondb: list: %w", err)
	}
	defer rows.Close()

	out := []models.SessionSummary{}
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.VideoFileName, &s.VideoDuration, &s.Checksum, &s.UpdatedAt, &s.ClipCount, &s.AnnotationCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a session; clips and annotations cascade.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sessiondb: delete: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessiondb: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sessiondb: session %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
