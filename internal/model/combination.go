package model

import "strings"

// CombinationID identifies one evaluated pairing of at most one asset per technology.
// Empty names mean the technology is absent.
type CombinationID struct {
	Owner   string
	Solar   string
	Wind    string
	Storage string
}

// String is the display key, e.g. "acme-sunfield-storage1". Absent parts are omitted.
func (c CombinationID) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Owner, c.Solar, c.Wind, c.Storage} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

// Empty reports whether no technology is selected.
func (c CombinationID) Empty() bool {
	return c.Solar == "" && c.Wind == "" && c.Storage == ""
}

// Combination is a CombinationID plus the assets it refers to.
type Combination struct {
	ID      CombinationID
	Solar   *CandidateAsset
	Wind    *CandidateAsset
	Storage *CandidateAsset
}
