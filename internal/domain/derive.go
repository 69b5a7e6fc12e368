package domain

// CropRegion produces the region of a derived session: every ORF and gRNA
// whose [start, end) interval lies entirely inside [relFrom, relTo) is kept
// and shifted down by relFrom; anything straddling a boundary is dropped
// rather than truncated. The parent region is not modified.
func CropRegion(parent *Region, relFrom, relTo int, name string) *Region {
	out := parent.Clone()
	out.Name = name

	kept := out.Orfs[:0]
	for _, orf := range out.Orfs {
		if orf.Start < relFrom || orf.End > relTo {
			continue
		}
		orf.Start -= relFrom
		orf.End -= relFrom
		kept = append(kept, orf)
	}
	out.Orfs = kept

	grnas := make(map[string]Grna, len(out.Grnas))
	for id, grna := range out.Grnas {
		if grna.Start < relFrom || grna.End > relTo {
			continue
		}
		grna.Start -= relFrom
		grna.End -= relFrom
		grnas[id] = grna
	}
	out.Grnas = grnas

	return out
}

// ValidateSubrange checks that a parent-relative sub-range fits inside the
// parent's scanned window before any derivation work happens.
func ValidateSubrange(parent *Session, relFrom, relTo int) error {
	if relFrom < 0 || relFrom >= relTo {
		return Validationf("invalid coordinates")
	}
	if parent.FromCoord+relTo > parent.ToCoord {
		return Validationf("sub-range end exceeds the parent region")
	}
	return nil
}
