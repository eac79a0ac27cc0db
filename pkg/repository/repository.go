// Package repository persists users, their profiles and their saved cover letters in SQLite.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver
	"github.com/google/uuid"
	"github.com/nikogura/jobdocs/pkg/profile"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

//nolint:gochecknoglobals // sentinel errors
var (
	// ErrNotFound means the row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken means registration hit an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials means the username or password did not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// CoverLetter is a saved document.
type CoverLetter struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository is the SQLite-backed store of the web application.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

//nolint:gochecknoglobals // migration list
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		experience TEXT NOT NULL DEFAULT '',
		education TEXT NOT NULL DEFAULT '',
		highlights TEXT NOT NULL DEFAULT '',
		hobbies TEXT NOT NULL DEFAULT '',
		languages TEXT NOT NULL DEFAULT '',
		other TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS cover_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS cover_letters_user ON cover_letters(user_id, created_at);`,
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (repo *Repository, err error) {
	var db *sql.DB
	db, err = sql.Open("sqlite", path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open database: %s", path)
		return repo, err
	}

	// SQLite serializes writers; one connection avoids busy errors and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	statements := append([]string{"PRAGMA foreign_keys = ON;"}, schema...)
	for _, stmt := range statements {
		_, err = db.ExecContext(ctx, stmt)
		if err != nil {
			_ = db.Close()
			err = errors.Wrap(err, "failed to migrate database")
			return repo, err
		}
	}

	repo = &Repository{db: db, now: time.Now}
	return repo, err
}

// Close releases the database.
func (r *Repository) Close() (err error) {
	err = r.db.Close()
	return err
}

// Ping checks the database is reachable.
func (r *Repository) Ping(ctx context.Context) (err error) {
	err = r.db.PingContext(ctx)
	return err
}

// CreateUser registers a user with a bcrypt-hashed password.
func (r *Repository) CreateUser(ctx context.Context, username, password string) (user User, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		err = errors.New("username is required")
		return user, err
	}
	if len(password) < MinPasswordLength {
		err = errors.Errorf("password must be at least %d characters", MinPasswordLength)
		return user, err
	}

	var hash []byte
	hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		err = errors.Wrap(err, "failed to hash password")
		return user, err
	}

	user = User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: r.now().UTC(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, string(hash), user.CreatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") {
			err = ErrUsernameTaken
			return user, err
		}
		err = errors.Wrap(err, "failed to create user")
		return user, err
	}

	return user, err
}

// Authenticate checks a username and password.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (user User, err error) {
	var hash string
	var created int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		strings.TrimSpace(username)).Scan(&user.ID, &user.Username, &hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrInvalidCredentials
		return user, err
	}
	if err != nil {
		err = errors.Wrap(err, "failed to look up user")
		return user, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		err = ErrInvalidCredentials
		return User{}, err
	}

	user.CreatedAt = time.UnixMilli(created).UTC()
	return user, err
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (user User, err error) {
	var created int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE id = ?`, id).Scan(&user.ID, &user.Username, &created)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return user, err
	}
	if err != nil {
		err = errors.Wrap(err, "failed to look up user")
		return user, err
	}

	user.CreatedAt = time.UnixMilli(created).UTC()
	return user, err
}

// FindUser returns a user by username.
func (r *Repository) FindUser(ctx context.Context, username string) (user User, err error) {
	var created int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE username = ?`,
		strings.TrimSpace(username)).Scan(&user.ID, &user.Username, &created)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return user, err
	}
	if err != nil {
		err = errors.Wrap(err, "failed to look up user")
		return user, err
	}

	user.CreatedAt = time.UnixMilli(created).UTC()
	return user, err
}

// GetProfile returns the user's profile. A user who never saved one gets an empty profile.
func (r *Repository) GetProfile(ctx context.Context, userID string) (p profile.Profile, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT experience, education, highlights, hobbies, languages, other FROM profiles WHERE user_id = ?`,
		userID).Scan(&p.Experience, &p.Education, &p.Highlights, &p.Hobbies, &p.Languages, &p.Other)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return p, err
	}
	if err != nil {
		err = errors.Wrap(err, "failed to read profile")
		return p, err
	}

	return p, err
}

// SaveProfile creates or replaces the user's profile.
func (r *Repository) SaveProfile(ctx context.Context, userID string, p profile.Profile) (err error) {
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, experience, education, highlights, hobbies, languages, other, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			experience = excluded.experience,
			education = excluded.education,
			highlights = excluded.highlights,
			hobbies = excluded.hobbies,
			languages = excluded.languages,
			other = excluded.other,
			updated_at = excluded.updated_at`,
		userID, p.Experience, p.Education, p.Highlights, p.Hobbies, p.Languages, p.Other, r.now().UnixMilli())
	if err != nil {
		err = errors.Wrap(err, "failed to save profile")
		return err
	}

	return err
}

// CreateCoverLetter stores a new cover letter for the user.
func (r *Repository) CreateCoverLetter(ctx context.Context, userID, title, content string) (letter CoverLetter, err error) {
	now := r.now().UTC()

	var res sql.Result
	res, err = r.db.ExecContext(ctx,
		`INSERT INTO cover_letters (user_id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, title, content, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		err = errors.Wrap(err, "failed to save cover letter")
		return letter, err
	}

	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		err = errors.Wrap(err, "failed to read cover letter id")
		return letter, err
	}

	letter = CoverLetter{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
		UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
	}
	return letter, err
}

// ListCoverLetters returns the user's letters, newest first.
func (r *Repository) ListCoverLetters(ctx context.Context, userID string) (letters []CoverLetter, err error) {
	var rows *sql.Rows
	rows, err = r.db.QueryContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at FROM cover_letters
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		err = errors.Wrap(err, "failed to list cover letters")
		return letters, err
	}
	defer rows.Close()

	letters = make([]CoverLetter, 0)
	for rows.Next() {
		var letter CoverLetter
		letter, err = scanLetter(rows)
		if err != nil {
			return letters, err
		}
		letters = append(letters, letter)
	}

	err = rows.Err()
	if err != nil {
		err = errors.Wrap(err, "failed to list cover letters")
		return letters, err
	}

	return letters, err
}

// GetCoverLetter returns one of the user's letters.
func (r *Repository) GetCoverLetter(ctx context.Context, userID string, id int64) (letter CoverLetter, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at FROM cover_letters WHERE id = ? AND user_id = ?`,
		id, userID)

	letter, err = scanLetter(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return letter, err
	}

	return letter, err
}

// UpdateCoverLetter replaces the title and content of one of the user's letters.
func (r *Repository) UpdateCoverLetter(ctx context.Context, userID string, id int64, title, content string) (letter CoverLetter, err error) {
	var res sql.Result
	res, err = r.db.ExecContext(ctx,
		`UPDATE cover_letters SET title = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, content, r.now().UnixMilli(), id, userID)
	if err != nil {
		err = errors.Wrap(err, "failed to update cover letter")
		return letter, err
	}

	var affected int64
	affected, err = res.RowsAffected()
	if err != nil {
		err = errors.Wrap(err, "failed to update cover letter")
		return letter, err
	}
	if affected == 0 {
		err = ErrNotFound
		return letter, err
	}

	letter, err = r.GetCoverLetter(ctx, userID, id)
	return letter, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLetter(s scanner) (letter CoverLetter, err error) {
	var created, updated int64
	err = s.Scan(&letter.ID, &letter.UserID, &letter.Title, &letter.Content, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return letter, err
		}
		err = errors.Wrap(err, "failed to read cover letter")
		return letter, err
	}

	letter.CreatedAt = time.UnixMilli(created).UTC()
	letter.UpdatedAt = time.UnixMilli(updated).UTC()
	return letter, err
}
