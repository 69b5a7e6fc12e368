package domain

// Editing-window parameter bounds for the CRISPR-BEST algorithm. The window
// size and offset together may not exceed the 20bp protospacer.
const (
	DefaultBestSize   = 7
	DefaultBestOffset = 13
	MaxBestWindow     = 20
	MaxFullSize       = 50
)

// ScanRequest carries the client parameters of a scan or derivation request.
// Pointer fields distinguish "omitted" from zero so derivation can fall back
// to the parent's values.
type ScanRequest struct {
	From       int    `json:"from"`
	To         int    `json:"to"`
	BestSize   *int   `json:"best_size,omitempty"`
	BestOffset *int   `json:"best_offset,omitempty"`
	FullSize   *int   `json:"full_size,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ScanWindow is a fully validated, defaulted scan parameter set.
type ScanWindow struct {
	From       int
	To         int
	BestSize   int
	BestOffset int
	FullSize   int
	Name       string
	// set flags record whether the client supplied the value or the
	// default was filled in.
	BestSizeSet   bool
	BestOffsetSet bool
	FullSizeSet   bool
}

// Validate checks the request against the genome length and the editing
// window bounds, filling in defaults. It must pass before any state is
// touched: a rejected request leaves the session exactly as it was.
func (r *ScanRequest) Validate(genomeLength int) (ScanWindow, error) {
	w := ScanWindow{
		From:       r.From,
		To:         r.To,
		BestSize:   DefaultBestSize,
		BestOffset: DefaultBestOffset,
		Name:       r.Name,
	}

	if r.From < 0 || r.From >= r.To {
		return ScanWindow{}, Validationf("invalid coordinates")
	}
	if r.To > genomeLength {
		return ScanWindow{}, Validationf("coordinates out of range 0 - %d", genomeLength)
	}

	if r.BestSize != nil {
		w.BestSize = *r.BestSize
		w.BestSizeSet = true
	}
	if w.BestSize < 1 || w.BestSize >= MaxBestWindow {
		return ScanWindow{}, Validationf("invalid CRISPR BEST edit window size")
	}

	if r.BestOffset != nil {
		w.BestOffset = *r.BestOffset
		w.BestOffsetSet = true
	}
	if w.BestOffset < 0 || w.BestOffset >= MaxBestWindow {
		return ScanWindow{}, Validationf("invalid CRISPR BEST edit window offset")
	}

	if w.BestSize+w.BestOffset > MaxBestWindow {
		return ScanWindow{}, Validationf("CRISPR BEST offset and window size too large")
	}

	if r.FullSize != nil {
		w.FullSize = *r.FullSize
		w.FullSizeSet = true
		// The scanning engine owns full_size semantics; the bound is ours.
		if w.FullSize > MaxFullSize {
			w.FullSize = MaxFullSize
		}
	}

	return w, nil
}
