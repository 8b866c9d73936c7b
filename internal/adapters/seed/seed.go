package seed

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStage(fl.Field().String())
		return err == nil
	})
}

type file struct {
	Records []entry `yaml:"records" toml:"records" validate:"required,min=1,dive"`
}

type entry struct {
	ID           string    `yaml:"id" toml:"id" validate:"omitempty,max=64"`
	Name         string    `yaml:"name" toml:"name" validate:"required,max=200"`
	Stage        string    `yaml:"stage" toml:"stage" validate:"required,stage"`
	Budget       float64   `yaml:"budget" toml:"budget" validate:"gte=0"`
	Interest     string    `yaml:"interest" toml:"interest" validate:"omitempty,oneof=low medium high"`
	AssignedTo   string    `yaml:"assigned_to" toml:"assigned_to"`
	LastContact  time.Time `yaml:"last_contact" toml:"last_contact"`
	NextFollowUp time.Time `yaml:"next_follow_up" toml:"next_follow_up"`
}

// FormatFromPath picks the decoder by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported seed file extension %q", filepath.Ext(path))
	}
}

// Load reads a seed file and returns validated records at version 1. Records
// without an id get a random one; closed records without a contact date are
// stamped with now.
func Load(path string, now time.Time) ([]domain.CustomerRecord, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	return Parse(data, format, now)
}

func Parse(data []byte, format Format, now time.Time) ([]domain.CustomerRecord, error) {
	var f file
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode seed yaml: %w", err)
		}
	case FormatTOML:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode seed toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}

	if err := validate.Struct(f); err != nil {
		return nil, describe(err)
	}

	records := make([]domain.CustomerRecord, 0, len(f.Records))
	seen := make(map[domain.RecordID]struct{}, len(f.Records))
	for i, e := range f.Records {
		record := e.toRecord(now)
		if _, dup := seen[record.ID]; dup {
			return nil, fmt.Errorf("records[%d]: duplicate id %q", i, record.ID)
		}
		seen[record.ID] = struct{}{}

		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (e entry) toRecord(now time.Time) domain.CustomerRecord {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = uuid.NewString()
	}
	stage, _ := domain.ParseStage(e.Stage)

	record := domain.CustomerRecord{
		ID:           domain.RecordID(id),
		Name:         strings.TrimSpace(e.Name),
		Stage:        stage,
		Budget:       domain.Money(math.Round(e.Budget * 100)),
		Interest:     domain.InterestLevel(e.Interest),
		AssignedTo:   domain.UserID(e.AssignedTo),
		LastContact:  e.LastContact,
		NextFollowUp: e.NextFollowUp,
		Version:      1,
	}
	if stage.Terminal() {
		record.ClosedAt = e.LastContact
		if record.ClosedAt.IsZero() {
			record.ClosedAt = now
		}
	}

	return record
}

func describe(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate seed file: %w", err)
	}

	problems := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fieldErr.Namespace(), "file."), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid seed file: %s", strings.Join(problems, "; "))
}
