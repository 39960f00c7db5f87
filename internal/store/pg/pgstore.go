// Package pg is the Postgres-backed site store.
package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kosmicapps.com/internal/site"
)

type Store struct {
	db *sql.DB
}

var _ site.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Small-site pool defaults; the admin dashboard is the only heavy reader
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) InsertSignup(ctx context.Context, sg *site.Signup) error {
	return s.db.QueryRowContext(ctx, `
		insert into signups(name, email, social_media, app_selection, comments)
		values ($1,$2,nullif($3,''),$4,nullif($5,''))
		returning id, created_at
	`, sg.Name, sg.Email, sg.SocialMedia, sg.AppSelection, sg.Comments).Scan(&sg.ID, &sg.CreatedAt)
}

func (s *Store) ListSignups(ctx context.Context) ([]site.Signup, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, email, coalesce(social_media,''), app_selection, coalesce(comments,''),
		       email_sent, email_sent_at, created_at
		from signups
		order by created_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignups(rows)
}

func (s *Store) FindSignupsByEmail(ctx context.Context, email string) ([]site.Signup, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, email, coalesce(social_media,''), app_selection, coalesce(comments,''),
		       email_sent, email_sent_at, created_at
		from signups
		where email=$1
		order by created_at desc
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignups(rows)
}

func (s *Store) MarkInviteSent(ctx context.Context, email string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		update signups set email_sent=true, email_sent_at=$2 where email=$1
	`, email, at)
	return err
}

func (s *Store) InsertInteraction(ctx context.Context, fi *site.FormInteraction) error {
	return s.db.QueryRowContext(ctx, `
		insert into form_interactions(session_id, email, name, event_type, field_name, app_selection, user_agent, referrer)
		values ($1,nullif($2,''),nullif($3,''),$4,nullif($5,''),nullif($6,''),nullif($7,''),nullif($8,''))
		returning id, timestamp
	`, fi.SessionID, fi.Email, fi.Name, fi.EventType, fi.FieldName, fi.AppSelection, fi.UserAgent, fi.Referrer).
		Scan(&fi.ID, &fi.Timestamp)
}

func (s *Store) ListInteractions(ctx context.Context) ([]site.FormInteraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, session_id, coalesce(email,''), coalesce(name,''), event_type,
		       coalesce(field_name,''), coalesce(app_selection,''), coalesce(user_agent,''), coalesce(referrer,''),
		       timestamp
		from form_interactions
		order by timestamp desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []site.FormInteraction
	for rows.Next() {
		var fi site.FormInteraction
		if err := rows.Scan(&fi.ID, &fi.SessionID, &fi.Email, &fi.Name, &fi.EventType,
			&fi.FieldName, &fi.AppSelection, &fi.UserAgent, &fi.Referrer, &fi.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, fi)
	}
	return res, rows.Err()
}

func scanSignups(rows *sql.Rows) ([]site.Signup, error) {
	var res []site.Signup
	for rows.Next() {
		var sg site.Signup
		var sentAt sql.NullTime
		if err := rows.Scan(&sg.ID, &sg.Name, &sg.Email, &sg.SocialMedia, &sg.AppSelection, &sg.Comments,
			&sg.EmailSent, &sentAt, &sg.CreatedAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			t := sentAt.Time
			sg.EmailSentAt = &t
		}
		res = append(res, sg)
	}
	return res, rows.Err()
}
