package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const recordPrefix = "record/"

// Repository stores customer records in badger, one msgpack value per record.
type Repository struct {
	db *badger.DB
}

var _ ports.RecordRepository = (*Repository)(nil)

func NewRepository(cfg Config) (*Repository, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, record domain.CustomerRecord) (ports.SaveResult, error) {
	if err := record.Validate(); err != nil {
		return ports.SaveResult{}, fmt.Errorf("save record: %w", err)
	}

	value, err := msgpack.Marshal(toValue(record))
	if err != nil {
		return ports.SaveResult{}, fmt.Errorf("encode record %s: %w", record.ID, err)
	}

	// A transaction that lost a race with another writer is retried; the
	// version check then runs against the winner's value.
	for {
		if err := ctx.Err(); err != nil {
			return ports.SaveResult{}, err
		}

		var result ports.SaveResult
		err := r.db.Update(func(txn *badger.Txn) error {
			stored, found, err := getRecord(txn, record.ID)
			if err != nil {
				return err
			}
			if found && stored.Version >= record.Version {
				result = ports.SaveResult{Conflict: stored}
				return nil
			}

			result = ports.SaveResult{OK: true, Record: record}
			return txn.Set(recordKey(record.ID), value)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return ports.SaveResult{}, fmt.Errorf("save record %s: %w", record.ID, err)
		}

		return result, nil
	}
}

func (r *Repository) Fetch(ctx context.Context, id domain.RecordID) (domain.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.CustomerRecord{}, err
	}

	var record domain.CustomerRecord
	err := r.db.View(func(txn *badger.Txn) error {
		stored, found, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if !found {
			return &domain.NotFoundError{ID: id}
		}
		record = stored
		return nil
	})
	if err != nil {
		return domain.CustomerRecord{}, err
	}

	return record, nil
}

// List returns every record ordered by id.
func (r *Repository) List(ctx context.Context) ([]domain.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]domain.CustomerRecord, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				record, err := decodeRecord(val)
				if err != nil {
					return fmt.Errorf("decode %s: %w", item.Key(), err)
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return records, nil
}

func recordKey(id domain.RecordID) []byte {
	return []byte(recordPrefix + string(id))
}

func getRecord(txn *badger.Txn, id domain.RecordID) (domain.CustomerRecord, bool, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.CustomerRecord{}, false, nil
	}
	if err != nil {
		return domain.CustomerRecord{}, false, fmt.Errorf("get record %s: %w", id, err)
	}

	var record domain.CustomerRecord
	err = item.Value(func(val []byte) error {
		decoded, err := decodeRecord(val)
		record = decoded
		return err
	})
	if err != nil {
		return domain.CustomerRecord{}, false, fmt.Errorf("decode record %s: %w", id, err)
	}

	return record, true, nil
}

type recordValue struct {
	ID           string `msgpack:"id"`
	Name         string `msgpack:"name"`
	Stage        string `msgpack:"stage"`
	BudgetCents  int64  `msgpack:"budget_cents"`
	Interest     string `msgpack:"interest,omitempty"`
	AssignedTo   string `msgpack:"assigned_to,omitempty"`
	LastContact  int64  `msgpack:"last_contact,omitempty"`
	NextFollowUp int64  `msgpack:"next_follow_up,omitempty"`
	ClosedAt     int64  `msgpack:"closed_at,omitempty"`
	Version      int64  `msgpack:"version"`
}

func decodeRecord(data []byte) (domain.CustomerRecord, error) {
	var value recordValue
	if err := msgpack.Unmarshal(data, &value); err != nil {
		return domain.CustomerRecord{}, err
	}

	return fromValue(value), nil
}

func toValue(record domain.CustomerRecord) recordValue {
	return recordValue{
		ID:           string(record.ID),
		Name:         record.Name,
		Stage:        string(record.Stage),
		BudgetCents:  int64(record.Budget),
		Interest:     string(record.Interest),
		AssignedTo:   string(record.AssignedTo),
		LastContact:  toUnixNano(record.LastContact),
		NextFollowUp: toUnixNano(record.NextFollowUp),
		ClosedAt:     toUnixNano(record.ClosedAt),
		Version:      record.Version,
	}
}

func fromValue(value recordValue) domain.CustomerRecord {
	return domain.CustomerRecord{
		ID:           domain.RecordID(value.ID),
		Name:         value.Name,
		Stage:        domain.Stage(value.Stage),
		Budget:       domain.Money(value.BudgetCents),
		Interest:     domain.InterestLevel(value.Interest),
		AssignedTo:   domain.UserID(value.AssignedTo),
		LastContact:  fromUnixNano(value.LastContact),
		NextFollowUp: fromUnixNano(value.NextFollowUp),
		ClosedAt:     fromUnixNano(value.ClosedAt),
		Version:      value.Version,
	}
}

func toUnixNano(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UnixNano()
}

func fromUnixNano(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(0, value).UTC()
}
