// Package access is the role-check contract the ledger consumes. Identity and
// token verification live with the collaborator; the ledger only asks about
// role membership.
package access

type Control interface {
	// IsManager gates parameter setters, origination, default and closure.
	IsManager(callerID string) bool
	// IsGovernance gates desk-wide gates such as closing the desk.
	IsGovernance(callerID string) bool
	// IsUser gates requestLoan, borrow and repay.
	IsUser(callerID string) bool
}

// Static is a fixed role table, enough for config-driven wiring and tests.
type Static struct {
	Managers   map[string]bool
	Governance map[string]bool
	// AllUsers treats every non-empty caller as a user when set.
	AllUsers bool
	Users    map[string]bool
}

func (s *Static) IsManager(callerID string) bool    { return s.Managers[callerID] }
func (s *Static) IsGovernance(callerID string) bool { return s.Governance[callerID] }

func (s *Static) IsUser(callerID string) bool {
	if callerID == "" {
		return false
	}
	if s.AllUsers {
		return true
	}
	return s.Users[callerID]
}
