package cases

import "fraudshield/internal/models"

// allowed lists the statuses reachable from each non-terminal status.
var allowed = map[string][]string{
	models.CaseStatusOpen:          {models.CaseStatusInvestigating, models.CaseStatusClosed},
	models.CaseStatusInvestigating: {models.CaseStatusResolved, models.CaseStatusDisputed, models.CaseStatusClosed},
	models.CaseStatusDisputed:      {models.CaseStatusInvestigating, models.CaseStatusClosed},
}

// Statuses lists every case status.
var Statuses = []string{
	models.CaseStatusOpen,
	models.CaseStatusInvestigating,
	models.CaseStatusResolved,
	models.CaseStatusDisputed,
	models.CaseStatusClosed,
}

// CanTransition reports whether a case may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return len(allowed[status]) == 0
}

// IsValidStatus reports whether status is a known case status.
func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}
