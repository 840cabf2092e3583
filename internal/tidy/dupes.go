package tidy

// DuplicateGroup is a set of at least two records with identical content.
// Members are sorted by path and share size and final hash.
type DuplicateGroup struct {
	Algorithm string
	Hash      string
	Size      int64
	Records   []*FileRecord
}

// Wasted is the space reclaimable by keeping a single copy.
func (g DuplicateGroup) Wasted() int64 {
	return g.Size * int64(len(g.Records)-1)
}

// Redundant returns every member except the first.
func (g DuplicateGroup) Redundant() []*FileRecord {
	if len(g.Records) < 2 {
		return nil
	}
	return g.Records[1:]
}
