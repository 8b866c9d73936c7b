package domain

import (
	"fmt"
	"strings"
	"time"
)

type RecordID string

type UserID string

// Money is an amount in minor currency units (cents).
type Money int64

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(v/100), v%100)
}

func groupThousands(v int64) string {
	raw := fmt.Sprintf("%d", v)
	if len(raw) <= 3 {
		return raw
	}

	var b strings.Builder
	lead := len(raw) % 3
	if lead > 0 {
		b.WriteString(raw[:lead])
	}
	for i := lead; i < len(raw); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(raw[i : i+3])
	}
	return b.String()
}

// CustomerRecord is one tracked customer or lead. It holds no reference
// fields, so copies never share state.
type CustomerRecord struct {
	ID           RecordID
	Name         string
	Stage        Stage
	Budget       Money
	Interest     InterestLevel
	AssignedTo   UserID
	LastContact  time.Time
	NextFollowUp time.Time
	// ClosedAt is set while the record sits in a terminal stage.
	ClosedAt time.Time
	Version  int64
}

func (r CustomerRecord) Validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if !r.Stage.Valid() {
		return fmt.Errorf("record %s: %w: %q", r.ID, ErrInvalidStage, r.Stage)
	}
	if r.Budget < 0 {
		return fmt.Errorf("record %s: budget must not be negative", r.ID)
	}
	if r.Interest != "" && !r.Interest.Valid() {
		return fmt.Errorf("record %s: unsupported interest level %q", r.ID, r.Interest)
	}
	if r.Version < 0 {
		return fmt.Errorf("record %s: version must not be negative", r.ID)
	}

	return nil
}

func (r CustomerRecord) Overdue(now time.Time) bool {
	if r.NextFollowUp.IsZero() {
		return false
	}

	return r.NextFollowUp.Before(now)
}
