package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
)

const csvHeader = "ID,Start,End,Strand,ORF,Sequence,PAM,C to T mutations,A to G mutations,0bp mismatches,1bp mismatches,2bp mismatches\n"

// Export points a client at a generated CSV file.
type Export struct {
	SessionID int64  `json:"id"`
	URI       string `json:"uri"`
}

// ExportCSV renders the selected gRNAs into a CSV file in the blob store and
// returns the download location. Rows follow the request order; identifiers
// not present in the region are skipped, since the picker UI may hold a stale
// view of the result set.
func (s *Service) ExportCSV(ctx context.Context, id int64, ids []string) (*Export, error) {
	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.HasRegion() {
		return nil, domain.Validationf("session %d has no scan results to export", id)
	}

	var buf bytes.Buffer
	buf.WriteString(csvHeader)
	for _, grnaID := range ids {
		if g, ok := sess.Region.Grnas[grnaID]; ok {
			writeGrnaRow(&buf, g)
		}
	}

	key := downloadKey(id)
	if err := s.blobs.Put(ctx, key+"/output.csv", bytes.NewReader(buf.Bytes()), "text/csv"); err != nil {
		return nil, &domain.DependencyError{Op: "store export", Err: err}
	}
	s.metrics.Exports.Inc()
	return &Export{SessionID: id, URI: "/download/" + key + "/output.csv"}, nil
}

// OpenExport fetches a previously generated CSV by its download key.
func (s *Service) OpenExport(ctx context.Context, key string) (io.ReadCloser, string, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, "", domain.Validationf("invalid download key")
	}
	rc, contentType, err := s.blobs.Get(ctx, downloadKey(id)+"/output.csv")
	if err != nil {
		return nil, "", &domain.NotFoundError{ID: id}
	}
	return rc, contentType, nil
}

// downloadKey is the zero-padded fixed-width form of the session id used in
// download paths.
func downloadKey(id int64) string {
	return fmt.Sprintf("%039d", id)
}

// writeGrnaRow emits one CSV line. The two mutation columns hold
// comma-joined lists and are wrapped in double quotes unconditionally, with
// the joined annotation text passed through verbatim.
func writeGrnaRow(buf *bytes.Buffer, g domain.Grna) {
	ctot, atog := "", ""
	if g.ChangedAAs != nil {
		ctot = strings.Join(g.ChangedAAs.CtoT, ",")
		atog = strings.Join(g.ChangedAAs.AtoG, ",")
	}
	fmt.Fprintf(buf, "%s,%d,%d,%d,%s,%s,%s,\"%s\",\"%s\",%d,%d,%d\n",
		g.ID, g.Start, g.End, g.Strand, g.Orf, g.Sequence, g.PAM, ctot, atog, g.MM0, g.MM1, g.MM2)
}
