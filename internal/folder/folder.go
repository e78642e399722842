// Package folder organizes a user's uploaded files into folders. File
// metadata lives in the relational store; file bytes go through the
// blob storage under a key derived from the file id.
package folder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"choco-backend/internal/storage"
	"choco-backend/internal/store"
)

var (
	// ErrNotFound indicates the folder or file does not exist for the
	// user.
	ErrNotFound = errors.New("folder not found")
	// ErrNotEmpty indicates a folder still holds files.
	ErrNotEmpty = errors.New("folder is not empty")
)

// Folder groups files of one user.
type Folder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	FileCount int       `json:"file_count"`
	CreatedAt time.Time `json:"created_at"`
}

// File is the stored metadata of one uploaded file.
type File struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FolderID    string    `json:"folder_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ChatID      string    `json:"chat_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	storageKey string
}

// FileUpload carries one upload into SaveFile. ChatID optionally links
// the file to the conversation it came from.
type FileUpload struct {
	Name        string
	ContentType string
	Tags        []string
	ChatID      string
	Data        []byte
}

// Service manages folders and files.
type Service struct {
	db     store.Querier
	blobs  storage.Storage
	logger zerolog.Logger
}

// NewService creates the folder service.
func NewService(db store.Querier, blobs storage.Storage, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		blobs:  blobs,
		logger: logger.With().Str("component", "folders").Logger(),
	}
}

// EnsureSchema creates the folder tables when absent.
func (s *Service) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_folders_user ON folders (user_id, created_at);
CREATE TABLE IF NOT EXISTS folder_files (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	folder_id    TEXT NOT NULL,
	name         TEXT NOT NULL,
	size         INTEGER NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '',
	chat_id      TEXT NOT NULL DEFAULT '',
	storage_key  TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_folder_files_folder ON folder_files (folder_id, created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create folder schema: %w", err)
	}
	return nil
}

// CreateFolder creates a folder for the user.
func (s *Service) CreateFolder(ctx context.Context, userID, name string) (*Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is empty")
	}
	f := &Folder{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	const query = `INSERT INTO folders (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, f.ID, f.UserID, f.Name, f.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	s.logger.Info().Str("folder_id", f.ID).Str("user_id", userID).Msg("folder created")
	return f, nil
}

// GetFolder loads one folder, scoped to its owner.
func (s *Service) GetFolder(ctx context.Context, userID, folderID string) (*Folder, error) {
	const query = `
SELECT f.id, f.user_id, f.name, f.created_at,
	(SELECT COUNT(*) FROM folder_files WHERE folder_id = f.id) AS file_count
FROM folders f WHERE f.id = ? AND f.user_id = ?`
	var f Folder
	err := s.db.QueryRowContext(ctx, query, folderID, userID).
		Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt, &f.FileCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load folder %s: %w", folderID, err)
	}
	return &f, nil
}

// ListFolders returns the user's folders, newest first.
func (s *Service) ListFolders(ctx context.Context, userID string) ([]*Folder, error) {
	const query = `
SELECT f.id, f.user_id, f.name, f.created_at,
	(SELECT COUNT(*) FROM folder_files WHERE folder_id = f.id) AS file_count
FROM folders f WHERE f.user_id = ? ORDER BY f.created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt, &f.FileCount); err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// DeleteFolder removes an empty folder. Folders holding files must be
// emptied first so blobs never leak.
func (s *Service) DeleteFolder(ctx context.Context, userID, folderID string) error {
	f, err := s.GetFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}
	if f.FileCount > 0 {
		return ErrNotEmpty
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", folderID, err)
	}
	return nil
}

// SaveFile stores file bytes in the blob storage and records its
// metadata in the folder.
func (s *Service) SaveFile(ctx context.Context, userID, folderID string, up FileUpload) (*File, error) {
	if up.Name == "" {
		return nil, fmt.Errorf("file name is empty")
	}
	if _, err := s.GetFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}

	f := &File{
		ID:          uuid.New().String(),
		UserID:      userID,
		FolderID:    folderID,
		Name:        up.Name,
		Size:        int64(len(up.Data)),
		ContentType: up.ContentType,
		Tags:        up.Tags,
		ChatID:      up.ChatID,
		CreatedAt:   time.Now().UTC(),
	}
	f.storageKey = "files/" + f.ID

	if err := s.blobs.Write(ctx, f.storageKey, up.Data); err != nil {
		return nil, fmt.Errorf("failed to store file bytes: %w", err)
	}
	const query = `
INSERT INTO folder_files (id, user_id, folder_id, name, size, content_type, tags, chat_id, storage_key, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, f.ID, f.UserID, f.FolderID, f.Name,
		f.Size, f.ContentType, joinTags(f.Tags), f.ChatID, f.storageKey, f.CreatedAt)
	if err != nil {
		// Roll the blob back so storage and metadata stay in step.
		if derr := s.blobs.Delete(ctx, f.storageKey); derr != nil && !errors.Is(derr, storage.ErrNotFound) {
			s.logger.Warn().Err(derr).Str("key", f.storageKey).Msg("failed to remove orphaned blob")
		}
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	s.logger.Info().Str("file_id", f.ID).Str("folder_id", folderID).Int64("size", f.Size).Msg("file stored")
	return f, nil
}

// GetFile loads one file's metadata, scoped to its owner.
func (s *Service) GetFile(ctx context.Context, userID, fileID string) (*File, error) {
	const query = `
SELECT id, user_id, folder_id, name, size, content_type, tags, chat_id, storage_key, created_at
FROM folder_files WHERE id = ? AND user_id = ?`
	var f File
	var tags string
	err := s.db.QueryRowContext(ctx, query, fileID, userID).
		Scan(&f.ID, &f.UserID, &f.FolderID, &f.Name, &f.Size, &f.ContentType, &tags, &f.ChatID, &f.storageKey, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s: %w", fileID, err)
	}
	f.Tags = splitTags(tags)
	return &f, nil
}

// ReadFile returns a file's metadata and bytes.
func (s *Service) ReadFile(ctx context.Context, userID, fileID string) (*File, []byte, error) {
	f, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.Read(ctx, f.storageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file bytes: %w", err)
	}
	return f, data, nil
}

// ListFiles returns a folder's files, newest first.
func (s *Service) ListFiles(ctx context.Context, userID, folderID string) ([]*File, error) {
	if _, err := s.GetFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}
	const query = `
SELECT id, user_id, folder_id, name, size, content_type, tags, chat_id, storage_key, created_at
FROM folder_files WHERE folder_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		var f File
		var tags string
		err := rows.Scan(&f.ID, &f.UserID, &f.FolderID, &f.Name, &f.Size,
			&f.ContentType, &tags, &f.ChatID, &f.storageKey, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		f.Tags = splitTags(tags)
		files = append(files, &f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file's metadata and bytes. A blob already gone
// from storage does not fail the delete.
func (s *Service) DeleteFile(ctx context.Context, userID, fileID string) error {
	f, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM folder_files WHERE id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}
	if err := s.blobs.Delete(ctx, f.storageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", f.storageKey).Msg("failed to remove file blob")
	}
	return nil
}

// Tags are stored as one comma-joined column. Commas inside a tag are
// not supported.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
