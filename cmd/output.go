package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
)

type recordJSON struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Stage        string     `json:"stage"`
	BudgetCents  int64      `json:"budget_cents"`
	Interest     string     `json:"interest,omitempty"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	LastContact  *time.Time `json:"last_contact,omitempty"`
	NextFollowUp *time.Time `json:"next_follow_up,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	Version      int64      `json:"version"`
}

type boardJSON struct {
	Revision       uint64       `json:"revision"`
	TotalCents     int64        `json:"total_cents"`
	ConversionRate float64      `json:"conversion_rate"`
	Records        []recordJSON `json:"records"`
}

func toRecordJSON(record domain.CustomerRecord) recordJSON {
	return recordJSON{
		ID:           string(record.ID),
		Name:         record.Name,
		Stage:        string(record.Stage),
		BudgetCents:  int64(record.Budget),
		Interest:     string(record.Interest),
		AssignedTo:   string(record.AssignedTo),
		LastContact:  optionalTime(record.LastContact),
		NextFollowUp: optionalTime(record.NextFollowUp),
		ClosedAt:     optionalTime(record.ClosedAt),
		Version:      record.Version,
	}
}

func toRecordsJSON(records []domain.CustomerRecord) []recordJSON {
	out := make([]recordJSON, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordJSON(record))
	}
	return out
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeRecordTable(w io.Writer, records []domain.CustomerRecord, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tSTAGE\tBUDGET\tASSIGNED\tFOLLOW-UP")
	for _, record := range records {
		followUp := "-"
		if !record.NextFollowUp.IsZero() {
			followUp = fmt.Sprintf("%s (%s ago)", record.NextFollowUp.Format(time.DateOnly), now.Sub(record.NextFollowUp).Round(time.Hour))
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			record.ID, record.Name, record.Stage, record.Budget, record.AssignedTo, followUp)
	}
	return tw.Flush()
}
