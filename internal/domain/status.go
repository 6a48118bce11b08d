package domain

import (
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// LoanStatus is the lifecycle state of a loan. Wire values are Portuguese.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ativo"
	LoanStatusCompleted LoanStatus = "concluido"
	LoanStatusOverdue   LoanStatus = "atrasado"
)

// loanTransitions lists, for each status, the statuses it may move to.
// A completed loan is terminal.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusActive:    {LoanStatusCompleted, LoanStatusOverdue},
	LoanStatusOverdue:   {LoanStatusCompleted},
	LoanStatusCompleted: nil,
}

// OpenLoanStatuses are the statuses that hold a copy.
var OpenLoanStatuses = []LoanStatus{LoanStatusActive, LoanStatusOverdue}

// ParseLoanStatus converts a wire value into a LoanStatus.
func ParseLoanStatus(s string) (LoanStatus, error) {
	status := LoanStatus(s)
	if !status.IsValid() {
		return "", customError.WrapInvalidStatus(s)
	}
	return status, nil
}

func (s LoanStatus) IsValid() bool {
	_, ok := loanTransitions[s]
	return ok
}

// IsOpen reports whether a loan in this status keeps its copy unavailable.
func (s LoanStatus) IsOpen() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition returns a classified error when s may not move to next.
func (s LoanStatus) CheckTransition(next LoanStatus) error {
	if !next.IsValid() {
		return customError.WrapInvalidStatus(string(next))
	}
	if !s.CanTransitionTo(next) {
		return customError.WrapInvalidTransition(string(s), string(next))
	}
	return nil
}

func (s LoanStatus) String() string {
	return string(s)
}
