// Package domain defines the core domain models for the CRISPy service.
package domain

import "time"

// Session is the central entity: one genome-analysis job and its result.
// The id is store-assigned and never changes. Exactly one of Accession or
// Filename identifies the underlying sequence data.
type Session struct {
	ID          int64     `json:"id"`
	State       State     `json:"state"`
	Derived     bool      `json:"derived"`
	Accession   string    `json:"accession,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Genome      *Genome   `json:"genome,omitempty"`
	Region      *Region   `json:"region,omitempty"`
	FromCoord   int       `json:"from_coord"`
	ToCoord     int       `json:"to_coord"`
	BestSize    int       `json:"best_size"`
	BestOffset  int       `json:"best_offset"`
	FullSize    int       `json:"full_size,omitempty"`
	LastChanged time.Time `json:"last_changed"`
	Error       string    `json:"error,omitempty"`
}

// HasRegion reports whether a scan result is present. A region is either
// entirely absent or fully populated; there is no partial-scan visibility.
func (s *Session) HasRegion() bool {
	return s.Region != nil
}

// Genome holds the metadata the worker pool fills in during preparation.
type Genome struct {
	Organism string    `json:"organism"`
	Length   int       `json:"length"`
	Clusters []Cluster `json:"clusters"`
}

// Cluster is an annotated secondary-metabolite cluster on the genome.
type Cluster struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Region is the scan result covering the session's coordinate window.
// ORF and gRNA coordinates are relative to the region origin.
type Region struct {
	Name  string          `json:"name"`
	Orfs  []ORF           `json:"orfs"`
	Grnas map[string]Grna `json:"grnas"`
}

// Clone returns a deep copy. Derivation crops a clone so the parent region
// is never touched.
func (r *Region) Clone() *Region {
	if r == nil {
		return nil
	}
	out := &Region{Name: r.Name}
	if r.Orfs != nil {
		out.Orfs = make([]ORF, len(r.Orfs))
		copy(out.Orfs, r.Orfs)
	}
	if r.Grnas != nil {
		out.Grnas = make(map[string]Grna, len(r.Grnas))
		for id, g := range r.Grnas {
			out.Grnas[id] = g.clone()
		}
	}
	return out
}

// ORF is an open reading frame within a region. Start and End are relative
// to the region origin; further annotation fields belong to the scan engine.
type ORF struct {
	Name   string `json:"name"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Strand int    `json:"strand"`
}

// Grna is a guide RNA candidate. The mismatch counts are the number of
// off-target hits at Hamming distance 0, 1 and 2; the json keys keep the
// scan engine's wire names.
type Grna struct {
	ID         string      `json:"id"`
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Strand     int         `json:"strand"`
	Sequence   string      `json:"sequence"`
	PAM        string      `json:"pam"`
	Orf        string      `json:"orf"`
	MM0        int         `json:"0bpmm"`
	MM1        int         `json:"1bpmm"`
	MM2        int         `json:"2bpmm"`
	ChangedAAs *ChangedAAs `json:"changed_aas,omitempty"`
}

func (g Grna) clone() Grna {
	out := g
	if g.ChangedAAs != nil {
		aas := &ChangedAAs{}
		aas.CtoT = append([]string(nil), g.ChangedAAs.CtoT...)
		aas.AtoG = append([]string(nil), g.ChangedAAs.AtoG...)
		out.ChangedAAs = aas
	}
	return out
}

// ChangedAAs maps base-editing mutation classes to affected-codon annotations.
type ChangedAAs struct {
	CtoT []string `json:"CtoT"`
	AtoG []string `json:"AtoG"`
}
