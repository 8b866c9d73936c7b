package application

import "github.com/bnema/dealer-pipeline/internal/domain"

type StageStats struct {
	Stage      domain.Stage `json:"stage"`
	Count      int          `json:"count"`
	TotalCents int64        `json:"total_cents"`
}

type Stats struct {
	Revision       uint64       `json:"revision"`
	Records        int          `json:"records"`
	TotalCents     int64        `json:"total_cents"`
	ConversionRate float64      `json:"conversion_rate"`
	Overdue        int          `json:"overdue"`
	Stages         []StageStats `json:"stages"`
}
