// Package identity defines the principals that interact with the core
// contracts: policy holders, the automated assessor, human reviewers and
// administrators. Every entry point authenticates by caller address.
package identity

import "strings"

// Address is an opaque on-ledger identity. The zero value is the null
// identity and is never a valid holder or recipient.
type Address string

// Zero is the null identity.
const Zero Address = ""

// IsZero reports whether the address is the null identity.
func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) String() string {
	return string(a)
}

// Principal is an entity making a call into the core.
type Principal interface {
	Address() Address
}

// Caller is a simple Principal carrying only an address.
type Caller struct {
	Addr Address
}

func (c Caller) Address() Address {
	return c.Addr
}
