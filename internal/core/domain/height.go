package domain

import "fmt"

// Height is an IBC client height: a revision number plus the block height
// within that revision.
type Height struct {
	RevisionNumber uint64
	RevisionHeight uint64
}

// ZeroHeight is lower than any height a live client reports.
var ZeroHeight = Height{}

// GT reports whether h is strictly greater than other.
func (h Height) GT(other Height) bool {
	if h.RevisionNumber != other.RevisionNumber {
		return h.RevisionNumber > other.RevisionNumber
	}
	return h.RevisionHeight > other.RevisionHeight
}

// IsZero reports whether h is the zero height.
func (h Height) IsZero() bool {
	return h == ZeroHeight
}

func (h Height) String() string {
	return fmt.Sprintf("%d-%d", h.RevisionNumber, h.RevisionHeight)
}
