// Package accessmock provides canned role tables for tests.
package accessmock

import "loandesk/internal/domain/access"

const (
	Manager    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	Governance = "cccccccccccccccccccccccccccccccc"
	Borrower   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	Payer      = "dddddddddddddddddddddddddddddddd"
)

// Roles returns a static table where Manager/Governance hold their roles and
// every non-empty caller is a user.
func Roles() access.Control {
	return &access.Static{
		Managers:   map[string]bool{Manager: true},
		Governance: map[string]bool{Governance: true},
		AllUsers:   true,
	}
}
