package domain

import "strconv"

// ProductID identifies a catalog item.
type ProductID int64

func (p ProductID) String() string {
	return strconv.FormatInt(int64(p), 10)
}
