// Package timeline は1資産の貸出と履歴を1本の時系列にまとめる（読み取り専用）。
package timeline

import (
	"fmt"
	"sort"
	"strings"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/db"
)

const (
	SourceAssignment = "assignment"
	SourceHistory    = "history"

	TypeIssued   = "issued"
	TypeReturned = "returned"
)

// Entry はタイムラインの1行
type Entry struct {
	Date        string         `json:"date"` // YYYY-MM-DD
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`

	rank     int
	recordID int64
}

// AssignmentRecord は Merge の入力（従業員名は解決済み）
type AssignmentRecord struct {
	ID              int64
	ULID            string
	EmployeeID      int64
	EmployeeName    string
	AssignedBy      int64
	AssignedByName  string
	AssignedDate    db.Date
	ReturnDate      db.Date
	Status          lifecycle.AssignmentStatus
	ReturnCondition string
	Notes           string
}

type HistoryRecord struct {
	ID              int64
	ULID            string
	ActionType      lifecycle.ActionType
	ActionDate      db.Timestamp
	EmployeeID      *int64
	EmployeeName    string
	PerformedBy     *int64
	PerformedByName string
	Notes           string
	OldValue        string
	NewValue        string
}

// 同じ日付の並び順（上から表示）。新しい出来事ほど上に来るよう、
// 1日の中で後に起きやすいものを先に置く。
var typeOrder = []string{
	"history:" + string(lifecycle.ActionScrapped),
	"history:" + string(lifecycle.ActionDeleted),
	"history:" + string(lifecycle.ActionRetired),
	"history:" + string(lifecycle.ActionMaintenance),
	"assignment:" + TypeReturned,
	"history:" + string(lifecycle.ActionReturned),
	"history:" + string(lifecycle.ActionUpdated),
	"history:" + string(lifecycle.ActionAssigned),
	"assignment:" + TypeIssued,
	"history:" + string(lifecycle.ActionCreated),
}

var ranks = func() map[string]int {
	m := make(map[string]int, len(typeOrder))
	for i, k := range typeOrder {
		m[k] = i
	}
	return m
}()

func rankOf(source, typ string) int {
	if r, ok := ranks[source+":"+typ]; ok {
		return r
	}
	return len(typeOrder)
}

// Merge は貸出と履歴を射影して、日付降順・種別順・レコードID降順に並べる。
// 入力が同じなら出力順も常に同じ。
func Merge(assigns []AssignmentRecord, hist []HistoryRecord) []Entry {
	out := make([]Entry, 0, len(assigns)*2+len(hist))
	for _, a := range assigns {
		out = append(out, issued(a))
		if !a.Status.Open() && a.ReturnDate.Valid {
			out = append(out, returned(a))
		}
	}
	for _, h := range hist {
		out = append(out, fromHistory(h))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].rank != out[j].rank {
			return out[i].rank < out[j].rank
		}
		return out[i].recordID > out[j].recordID
	})
	return out
}

func issued(a AssignmentRecord) Entry {
	desc := fmt.Sprintf("Issued to %s on %s", nameOr(a.EmployeeName, a.EmployeeID), a.AssignedDate)
	if a.AssignedBy != 0 {
		desc += " by " + nameOr(a.AssignedByName, a.AssignedBy)
	}
	return Entry{
		Date:        a.AssignedDate.String(),
		Type:        TypeIssued,
		Source:      SourceAssignment,
		Title:       "Assigned to " + nameOr(a.EmployeeName, a.EmployeeID),
		Description: desc,
		Details: compact(map[string]any{
			"assignment_id":   a.ID,
			"assignment_ulid": a.ULID,
			"employee_id":     a.EmployeeID,
			"employee_name":   a.EmployeeName,
			"assigned_by":     a.AssignedBy,
			"notes":           a.Notes,
		}),
		rank:     rankOf(SourceAssignment, TypeIssued),
		recordID: a.ID,
	}
}

func returned(a AssignmentRecord) Entry {
	who := nameOr(a.EmployeeName, a.EmployeeID)
	desc := "Returned by " + who
	if a.ReturnCondition != "" {
		desc += " in " + a.ReturnCondition + " condition"
	}
	if a.Status != lifecycle.AssignmentReturned {
		desc = fmt.Sprintf("Assignment to %s closed as %s", who, a.Status)
	}
	return Entry{
		Date:        a.ReturnDate.String(),
		Type:        TypeReturned,
		Source:      SourceAssignment,
		Title:       "Returned by " + who,
		Description: desc,
		Details: compact(map[string]any{
			"assignment_id":    a.ID,
			"assignment_ulid":  a.ULID,
			"employee_id":      a.EmployeeID,
			"employee_name":    a.EmployeeName,
			"status":           string(a.Status),
			"return_condition": a.ReturnCondition,
			"notes":            a.Notes,
		}),
		rank:     rankOf(SourceAssignment, TypeReturned),
		recordID: a.ID,
	}
}

var titles = map[lifecycle.ActionType]string{
	lifecycle.ActionCreated:     "Asset created",
	lifecycle.ActionUpdated:     "Asset updated",
	lifecycle.ActionAssigned:    "Asset assigned",
	lifecycle.ActionReturned:    "Asset returned",
	lifecycle.ActionMaintenance: "Sent to maintenance",
	lifecycle.ActionRetired:     "Asset retired",
	lifecycle.ActionDeleted:     "Asset deleted",
	lifecycle.ActionScrapped:    "Asset scrapped",
}

func fromHistory(h HistoryRecord) Entry {
	title, ok := titles[h.ActionType]
	if !ok {
		title = strings.ToUpper(string(h.ActionType[:1])) + string(h.ActionType[1:])
	}
	d := map[string]any{
		"history_id":   h.ID,
		"history_ulid": h.ULID,
		"action_time":  h.ActionDate.Time,
		"old_value":    h.OldValue,
		"new_value":    h.NewValue,
	}
	if h.EmployeeID != nil {
		d["employee_id"] = *h.EmployeeID
		d["employee_name"] = h.EmployeeName
	}
	if h.PerformedBy != nil {
		d["performed_by"] = *h.PerformedBy
		d["performed_by_name"] = h.PerformedByName
	}
	return Entry{
		Date:        db.NewDate(h.ActionDate.Time).String(),
		Type:        string(h.ActionType),
		Source:      SourceHistory,
		Title:       title,
		Description: h.Notes,
		Details:     compact(d),
		rank:        rankOf(SourceHistory, string(h.ActionType)),
		recordID:    h.ID,
	}
}

func nameOr(name string, id int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("employee #%d", id)
}

// 空文字の項目は details から落とす
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		if s, ok := v.(string); ok && s == "" {
			delete(m, k)
		}
	}
	return m
}
