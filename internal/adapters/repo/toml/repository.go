package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName        = "config"
	configType        = "toml"
	recordsPathKey    = "records.path"
	recordsFileMode   = 0o600
	recordsDirMode    = 0o700
	recordsConfigDir  = ".dealerpipe"
	recordsConfigFile = "records.toml"
	tempFilePattern   = ".records-*.toml.tmp"
)

type Repository struct {
	recordsPath string
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var (
	_ ports.RecordRepository = (*Repository)(nil)
	_ ports.ChangeFeed       = (*Repository)(nil)
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, recordsConfigDir, recordsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, recordsConfigDir))
	cfg.SetDefault(recordsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	recordsPath := cfg.GetString(recordsPathKey)
	if recordsPath == "" {
		return nil, errors.New("records path is empty")
	}
	recordsPath, err = normalizeRecordsPath(recordsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{recordsPath: recordsPath, mu: lockForPath(recordsPath)}, nil
}

func (r *Repository) Path() string {
	return r.recordsPath
}

// Save writes record unless the file already holds the same or a newer
// version of it, in which case the stored record is returned as the conflict.
func (r *Repository) Save(ctx context.Context, record domain.CustomerRecord) (ports.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.SaveResult{}, err
	}
	if err := record.Validate(); err != nil {
		return ports.SaveResult{}, fmt.Errorf("save record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return ports.SaveResult{}, err
	}

	encoded := toSchema(record)
	updated := false
	for i := range file.Records {
		if file.Records[i].ID != encoded.ID {
			continue
		}
		if file.Records[i].Version >= record.Version {
			return ports.SaveResult{Conflict: fromSchema(file.Records[i])}, nil
		}
		file.Records[i] = encoded
		updated = true
		break
	}

	if !updated {
		file.Records = append(file.Records, encoded)
	}

	if err := ctx.Err(); err != nil {
		return ports.SaveResult{}, err
	}

	if err := r.writeSchema(file); err != nil {
		return ports.SaveResult{}, err
	}

	return ports.SaveResult{OK: true, Record: record}, nil
}

func (r *Repository) Fetch(ctx context.Context, id domain.RecordID) (domain.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.CustomerRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.CustomerRecord{}, err
	}

	for _, entry := range file.Records {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.CustomerRecord{}, &domain.NotFoundError{ID: id}
}

func (r *Repository) List(ctx context.Context) ([]domain.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked()
}

func (r *Repository) listLocked() ([]domain.CustomerRecord, error) {
	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	records := make([]domain.CustomerRecord, 0, len(file.Records))
	for _, entry := range file.Records {
		records = append(records, fromSchema(entry))
	}

	return records, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.recordsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read records file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode records file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeRecordsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve records path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.recordsPath), recordsDirMode); err != nil {
		return fmt.Errorf("create records directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode records file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.recordsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp records file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp records file: %w", err)
	}

	if err := tempFile.Chmod(recordsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp records file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp records file: %w", err)
	}

	if err := os.Rename(tempName, r.recordsPath); err != nil {
		return fmt.Errorf("replace records file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.recordsPath, recordsFileMode); err != nil {
		return fmt.Errorf("chmod records file: %w", err)
	}

	return nil
}

func toSchema(record domain.CustomerRecord) recordSchema {
	return recordSchema{
		ID:           string(record.ID),
		Name:         record.Name,
		Stage:        string(record.Stage),
		BudgetCents:  int64(record.Budget),
		Interest:     string(record.Interest),
		AssignedTo:   string(record.AssignedTo),
		LastContact:  formatTime(record.LastContact),
		NextFollowUp: formatTime(record.NextFollowUp),
		ClosedAt:     formatTime(record.ClosedAt),
		Version:      record.Version,
	}
}

func fromSchema(record recordSchema) domain.CustomerRecord {
	return domain.CustomerRecord{
		ID:           domain.RecordID(record.ID),
		Name:         record.Name,
		Stage:        domain.Stage(record.Stage),
		Budget:       domain.Money(record.BudgetCents),
		Interest:     domain.InterestLevel(record.Interest),
		AssignedTo:   domain.UserID(record.AssignedTo),
		LastContact:  parseTime(record.LastContact),
		NextFollowUp: parseTime(record.NextFollowUp),
		ClosedAt:     parseTime(record.ClosedAt),
		Version:      record.Version,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
