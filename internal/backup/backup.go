package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3            S3Config
	Passphrase    string
	Prefix        string
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager takes encrypted snapshots of the database and uploads them to
// S3-compatible storage.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	status Status

	db     *sql.DB
	store  *store.BackupStore
	client s3Client
	logger *slog.Logger
}

// NewManager creates a backup manager. It is disabled unless the bucket,
// credentials and passphrase are all configured.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "snapshots"
	}
	m := &Manager{
		cfg:    cfg,
		db:     db,
		store:  bs,
		logger: logger.With("component", "backup"),
		status: Status{State: StateDisabled},
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Enabled reports whether backups are configured.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Run takes a snapshot, uploads it and prunes snapshots past retention.
// Overlapping runs are rejected.
func (m *Manager) Run(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("backup not configured")
	}

	m.mu.Lock()
	if m.status.State == StateRunning {
		m.mu.Unlock()
		return fmt.Errorf("backup already running")
	}
	m.status.State = StateRunning
	m.mu.Unlock()

	record, err := m.snapshot(ctx)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return err
	}
	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", record.S3Key)

	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
	return nil
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) snapshot(ctx context.Context) (*model.Backup, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("toolshub-%s.db.enc", timestamp)
	key := m.cfg.Prefix + "/" + filename

	record, err := m.store.Create(filename, key)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	fail := func(err error) (*model.Backup, error) {
		m.store.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error())
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "toolshub-backup-")
	if err != nil {
		return fail(fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(tmpDir)

	dbCopy := filepath.Join(tmpDir, "snapshot.db")
	encFile := filepath.Join(tmpDir, filename)

	// VACUUM INTO writes a consistent copy without blocking writers for long.
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, dbCopy); err != nil {
		return fail(fmt.Errorf("vacuum into: %w", err))
	}

	if err := EncryptFile(dbCopy, encFile, m.cfg.Passphrase); err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	m.store.UpdateStatus(record.ID, model.BackupStatusUploading, "")

	encData, err := os.Open(encFile)
	if err != nil {
		return fail(fmt.Errorf("open encrypted file: %w", err))
	}
	defer encData.Close()

	stat, err := encData.Stat()
	if err != nil {
		return fail(fmt.Errorf("stat encrypted file: %w", err))
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          encData,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.store.UpdateCompleted(record.ID, stat.Size()); err != nil {
		return nil, err
	}
	return m.store.GetByID(record.ID)
}

// Cleanup deletes snapshots older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	if m.client == nil {
		return nil
	}

	before := time.Now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.store.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Error("delete s3 object", "key", key, "error", err)
		}
	}
	return nil
}
