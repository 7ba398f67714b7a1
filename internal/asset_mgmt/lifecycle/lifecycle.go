// Package lifecycle は資産・貸出・履歴の列挙値を閉じた型として定義する。
// 文字列は境界（リクエスト/DB）で Parse し、未知の値は Validation で弾く。
package lifecycle

import (
	"strings"

	"AMS-backend/internal/platform/apperr"
)

// ===== AssetStatus =====

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetAssigned    AssetStatus = "assigned"
	AssetMaintenance AssetStatus = "maintenance"
	AssetRetired     AssetStatus = "retired"
	AssetScrapped    AssetStatus = "scrapped"
)

var assetStatuses = []AssetStatus{AssetAvailable, AssetAssigned, AssetMaintenance, AssetRetired, AssetScrapped}

func ParseAssetStatus(s string) (AssetStatus, error) {
	for _, v := range assetStatuses {
		if string(v) == normalize(s) {
			return v, nil
		}
	}
	return "", invalid("status", s)
}

// Terminal: これ以上の遷移を持たない状態
func (s AssetStatus) Terminal() bool {
	return s == AssetRetired || s == AssetScrapped
}

// ===== AssignmentStatus =====

type AssignmentStatus string

const (
	AssignmentAssigned AssignmentStatus = "assigned"
	AssignmentReturned AssignmentStatus = "returned"
	AssignmentLost     AssignmentStatus = "lost"
	AssignmentStolen   AssignmentStatus = "stolen"
	AssignmentDamaged  AssignmentStatus = "damaged"
)

var assignmentStatuses = []AssignmentStatus{AssignmentAssigned, AssignmentReturned, AssignmentLost, AssignmentStolen, AssignmentDamaged}

func ParseAssignmentStatus(s string) (AssignmentStatus, error) {
	for _, v := range assignmentStatuses {
		if string(v) == normalize(s) {
			return v, nil
		}
	}
	return "", invalid("status", s)
}

func (s AssignmentStatus) Open() bool { return s == AssignmentAssigned }

// ReleasedAssetStatus は貸出を閉じたときの資産側の遷移先。
// returned は available、damaged は maintenance、lost/stolen は retired。
func (s AssignmentStatus) ReleasedAssetStatus() (AssetStatus, ActionType) {
	switch s {
	case AssignmentDamaged:
		return AssetMaintenance, ActionMaintenance
	case AssignmentLost, AssignmentStolen:
		return AssetRetired, ActionRetired
	default:
		return AssetAvailable, ActionReturned
	}
}

// ===== ReturnCondition =====

type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "good"
	ConditionPoor    ReturnCondition = "poor"
	ConditionDamaged ReturnCondition = "damaged"
	ConditionLost    ReturnCondition = "lost"
	ConditionStolen  ReturnCondition = "stolen"
)

var returnConditions = []ReturnCondition{ConditionGood, ConditionPoor, ConditionDamaged, ConditionLost, ConditionStolen}

func ParseReturnCondition(s string) (ReturnCondition, error) {
	for _, v := range returnConditions {
		if string(v) == normalize(s) {
			return v, nil
		}
	}
	return "", invalid("condition", s)
}

// ===== ActionType =====

type ActionType string

const (
	ActionCreated     ActionType = "created"
	ActionUpdated     ActionType = "updated"
	ActionAssigned    ActionType = "assigned"
	ActionReturned    ActionType = "returned"
	ActionMaintenance ActionType = "maintenance"
	ActionRetired     ActionType = "retired"
	ActionDeleted     ActionType = "deleted"
	ActionScrapped    ActionType = "scrapped"
)

var actionTypes = []ActionType{
	ActionCreated, ActionUpdated, ActionAssigned, ActionReturned,
	ActionMaintenance, ActionRetired, ActionDeleted, ActionScrapped,
}

func ParseActionType(s string) (ActionType, error) {
	for _, v := range actionTypes {
		if string(v) == normalize(s) {
			return v, nil
		}
	}
	return "", invalid("action_type", s)
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func invalid(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.FieldErrors{field: "is required"}.Err()
	}
	return apperr.FieldErrors{field: "unknown value " + value}.Err()
}
