package model

import "strings"

// Identity is an opaque caller reference, usually a wallet address. It is only
// ever compared for equality.
type Identity string

func (i Identity) Empty() bool {
	return strings.TrimSpace(string(i)) == ""
}

func (i Identity) String() string {
	return string(i)
}
