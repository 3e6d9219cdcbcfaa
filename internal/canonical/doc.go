// Package canonical turns raw battlelog records into canonical battles.
//
// A canonical battle has its two sides ordered so the smaller normalized tag
// is side A, and each side's cards sorted ascending. The same match seen from
// either participant's battlelog, with cards listed in any order, yields the
// same value. Nothing here performs I/O.
package canonical
