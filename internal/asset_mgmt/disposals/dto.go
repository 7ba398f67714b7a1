package disposals

import (
	"time"

	"AMS-backend/internal/asset_mgmt/assignments"
)

// ===== Requests =====

type ScrapRequest struct {
	ScrapDate   *string `json:"scrap_date"` // YYYY-MM-DD
	Reason      *string `json:"reason"`
	Method      *string `json:"method"` // recycle, destroy, donate など自由記述
	PerformedBy *int64  `json:"performed_by,omitempty"`
}

// ===== Responses =====

type ScrapResponse struct {
	AssetID          int64                           `json:"asset_id"`
	AssetTag         string                          `json:"asset_tag"`
	Status           string                          `json:"status"`
	ScrapDate        string                          `json:"scrap_date"`
	Reason           string                          `json:"reason"`
	Method           string                          `json:"method"`
	HistoryULID      string                          `json:"history_ulid"`
	ClosedAssignment *assignments.AssignmentResponse `json:"closed_assignment,omitempty"`
}

type ScrappedItem struct {
	AssetID     int64     `json:"asset_id"`
	AssetTag    string    `json:"asset_tag"`
	Name        string    `json:"name"`
	ScrappedAt  time.Time `json:"scrapped_at"`
	ScrapDate   string    `json:"scrap_date,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Method      string    `json:"method,omitempty"`
	PerformedBy *int64    `json:"performed_by,omitempty"`
}

type ListResponse struct {
	Items      []ScrappedItem `json:"items"`
	Total      int64          `json:"total"`
	NextOffset int            `json:"next_offset"`
}

type Page struct {
	Limit  int
	Offset int
}

// scrapped 履歴の new_value に入れる内容
type scrapDetail struct {
	ScrapDate          string `json:"scrap_date"`
	Reason             string `json:"reason"`
	Method             string `json:"method"`
	ClosedAssignmentID *int64 `json:"closed_assignment_id,omitempty"`
}
