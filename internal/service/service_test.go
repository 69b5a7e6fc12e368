package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/secondarymetabolites/crispy-service/internal/blob"
	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/kvstore"
	"github.com/secondarymetabolites/crispy-service/internal/metrics"
	"github.com/secondarymetabolites/crispy-service/internal/queue"
	"github.com/secondarymetabolites/crispy-service/internal/repository"
)

func newTestService(t *testing.T) (*Service, *queue.Queue) {
	t.Helper()
	store := kvstore.NewMemory()
	q := queue.New(store)
	svc := New(repository.New(store), q, blob.NewMemory(), metrics.New(), "")
	return svc, q
}

func testGenome() *domain.Genome {
	return &domain.Genome{
		Organism: "Streptomyces coelicolor A3(2)",
		Length:   8667507,
		Clusters: []domain.Cluster{{Name: "cluster-1", Type: "t2pks", Start: 105000, End: 131000}},
	}
}

func TestCreateFromAccessionEnqueuesPrepare(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateFromAccession(ctx, "NC_003888.3")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.State != domain.StatePreparing {
		t.Fatalf("state = %s, want preparing", session.State)
	}

	entry, err := q.Reserve(ctx, queue.Prepare)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if entry == nil || entry.SessionID != session.ID {
		t.Fatalf("prepare queue entry = %+v, want session %d", entry, session.ID)
	}
}

func TestCreateFromAccessionRejectsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CreateFromAccession(context.Background(), "  "); !domain.IsValidation(err) {
		t.Fatalf("empty accession: %v", err)
	}
}

func TestCreateFromUploadStoresFile(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateFromUpload(ctx, "../sneaky/genome.gbk", strings.NewReader("LOCUS TEST"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Filename != "genome.gbk" {
		t.Fatalf("filename = %q, want path stripped", session.Filename)
	}

	key := fmt.Sprintf("uploads/%d/genome.gbk", session.ID)
	rc, _, err := svc.blobs.Get(ctx, key)
	if err != nil {
		t.Fatalf("fetch upload: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "LOCUS TEST" {
		t.Fatalf("upload body = %q", body)
	}

	if entry, err := q.Reserve(ctx, queue.Prepare); err != nil || entry == nil {
		t.Fatalf("prepare queue entry = %v, %v", entry, err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Get(context.Background(), 4711); !domain.IsNotFound(err) {
		t.Fatalf("unknown session: %v", err)
	}
}

func TestWorkerLifecycle(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateFromAccession(ctx, "NC_003888.3")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Genome metadata can only land while preparing.
	if _, err := svc.ReportRegion(ctx, session.ID, &domain.Region{Name: "r"}); !domain.IsForbidden(err) {
		t.Fatalf("region while preparing: %v", err)
	}

	updated, err := svc.ReportGenome(ctx, session.ID, testGenome())
	if err != nil {
		t.Fatalf("report genome: %v", err)
	}
	if updated.State != domain.StatePending {
		t.Fatalf("state = %s, want pending", updated.State)
	}

	// Drain the prepare entry, then request a scan.
	if _, err := q.Reserve(ctx, queue.Prepare); err != nil {
		t.Fatalf("reserve prepare: %v", err)
	}
	scanning, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 105000, To: 131000})
	if err != nil {
		t.Fatalf("request scan: %v", err)
	}
	if scanning.State != domain.StateScanning {
		t.Fatalf("state = %s, want scanning", scanning.State)
	}
	entry, err := svc.ReserveJob(ctx, queue.Scan)
	if err != nil || entry == nil || entry.SessionID != session.ID {
		t.Fatalf("scan queue entry = %+v, %v", entry, err)
	}

	done, err := svc.ReportRegion(ctx, session.ID, &domain.Region{Name: "cluster-1"})
	if err != nil {
		t.Fatalf("report region: %v", err)
	}
	if done.State != domain.StateDone || !done.HasRegion() {
		t.Fatalf("after region: state = %s, region = %v", done.State, done.Region)
	}
}

func TestReportFailureSetsErrorState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	svc.ReportGenome(ctx, session.ID, testGenome())
	svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 100, To: 2000})

	failed, err := svc.ReportFailure(ctx, session.ID, "antismash run crashed")
	if err != nil {
		t.Fatalf("report failure: %v", err)
	}
	if failed.State != domain.StateError || failed.Error != "antismash run crashed" {
		t.Fatalf("after failure: state = %s, error = %q", failed.State, failed.Error)
	}

	// An errored session stays put until a worker-side retry story exists.
	if _, err := svc.Reset(ctx, session.ID, domain.StatePending); !domain.IsForbidden(err) {
		t.Fatalf("reset from error: %v", err)
	}
}

func TestReserveJobValidatesQueueName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ReserveJob(ctx, "shred"); !domain.IsValidation(err) {
		t.Fatalf("unknown queue: %v", err)
	}
	entry, err := svc.ReserveJob(ctx, queue.Scan)
	if err != nil || entry != nil {
		t.Fatalf("empty queue = %+v, %v", entry, err)
	}
}

func TestScanBeforeGenomeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	if _, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 0, To: 100}); !domain.IsValidation(err) {
		t.Fatalf("scan before genome: %v", err)
	}
}

func TestScanValidationLeavesSessionUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	svc.ReportGenome(ctx, session.ID, testGenome())

	if _, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 500, To: 100}); !domain.IsValidation(err) {
		t.Fatalf("inverted coordinates: %v", err)
	}

	current, err := svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.State != domain.StatePending || current.FromCoord != 0 || current.ToCoord != 0 {
		t.Fatalf("session changed by rejected scan: %+v", current)
	}
}

func TestScanRejectedWhileScanning(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	svc.ReportGenome(ctx, session.ID, testGenome())
	if _, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 100, To: 2000}); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if _, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 100, To: 2000}); !domain.IsForbidden(err) {
		t.Fatalf("second scan while scanning: %v", err)
	}
}

type submitFailingStore struct {
	kvstore.Store
}

func (s *submitFailingStore) Update(ctx context.Context, key string, fn kvstore.UpdateFunc) error {
	if strings.HasPrefix(key, "queue:") {
		return fmt.Errorf("store unavailable")
	}
	return s.Store.Update(ctx, key, fn)
}

func TestScanQueueFailureRollsBack(t *testing.T) {
	store := kvstore.NewMemory()
	repo := repository.New(store)
	q := queue.New(&submitFailingStore{Store: store})
	svc := New(repo, q, blob.NewMemory(), metrics.New(), "")
	ctx := context.Background()

	session, err := repo.Create(ctx, "NC_003888.3", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ReportGenome(ctx, session.ID, testGenome()); err != nil {
		t.Fatalf("report genome: %v", err)
	}

	if _, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 100, To: 2000}); !domain.IsDependency(err) {
		t.Fatalf("queue failure: %v", err)
	}

	current, err := svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.State != domain.StatePending {
		t.Fatalf("state after failed hand-off = %s, want pending", current.State)
	}
}

func TestResetSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	svc.ReportGenome(ctx, session.ID, testGenome())
	svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 100, To: 2000})
	svc.ReportRegion(ctx, session.ID, &domain.Region{Name: "cluster-1"})

	// Restating the current state is a no-op.
	same, err := svc.Reset(ctx, session.ID, domain.StateDone)
	if err != nil || same.State != domain.StateDone {
		t.Fatalf("no-op reset: %v, state %s", err, same.State)
	}

	// Arbitrary jumps are forbidden.
	if _, err := svc.Reset(ctx, session.ID, domain.StateScanning); !domain.IsForbidden(err) {
		t.Fatalf("done -> scanning: %v", err)
	}
	if _, err := svc.Reset(ctx, session.ID, "ready"); !domain.IsValidation(err) {
		t.Fatalf("unknown state: %v", err)
	}

	// done -> pending drops the result.
	reset, err := svc.Reset(ctx, session.ID, domain.StatePending)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.State != domain.StatePending || reset.HasRegion() {
		t.Fatalf("after reset: state %s, region %v", reset.State, reset.Region)
	}
}

func TestResetDerivedForbidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	parent := scannedSession(t, svc)
	child, err := svc.RequestScan(ctx, parent.ID, domain.ScanRequest{From: 10, To: 60})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	for _, state := range []domain.State{domain.StateDone, domain.StatePending} {
		if _, err := svc.Reset(ctx, child.ID, state); !domain.IsForbidden(err) {
			t.Fatalf("reset derived to %s: %v", state, err)
		}
	}
}

// scannedSession walks a fresh session through to done with a small region
// covering coordinates 1000-2000.
func scannedSession(t *testing.T, svc *Service) *domain.Session {
	t.Helper()
	ctx := context.Background()

	session, err := svc.CreateFromAccession(ctx, "NC_003888.3")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ReportGenome(ctx, session.ID, testGenome()); err != nil {
		t.Fatalf("report genome: %v", err)
	}
	if _, err := svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 1000, To: 2000}); err != nil {
		t.Fatalf("request scan: %v", err)
	}
	region := &domain.Region{
		Name: "cluster-1",
		Orfs: []domain.ORF{
			{Name: "orfA", Start: 20, End: 50, Strand: 1},
			{Name: "orfB", Start: 55, End: 120, Strand: -1},
		},
		Grnas: map[string]domain.Grna{
			"G1": {ID: "G1", Start: 25, End: 48, Strand: 1, Sequence: "ACGTACGTACGTACGTACGT", PAM: "AGG", Orf: "orfA"},
			"G2": {ID: "G2", Start: 70, End: 93, Strand: -1, Sequence: "TTTTACGTACGTACGTAAAA", PAM: "CGG", Orf: "orfB"},
		},
	}
	done, err := svc.ReportRegion(ctx, session.ID, region)
	if err != nil {
		t.Fatalf("report region: %v", err)
	}
	return done
}

func TestDeriveCropsIntoReadOnlyChild(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()

	parent := scannedSession(t, svc)
	// Drain the queues so a stray enqueue would be visible.
	for _, name := range []string{queue.Prepare, queue.Scan} {
		for {
			entry, err := q.Reserve(ctx, name)
			if err != nil {
				t.Fatalf("drain %s: %v", name, err)
			}
			if entry == nil {
				break
			}
		}
	}

	size := 5
	child, err := svc.RequestScan(ctx, parent.ID, domain.ScanRequest{From: 10, To: 52, BestSize: &size, Name: "crop"})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if child.ID == parent.ID {
		t.Fatal("derivation reused the parent id")
	}
	if !child.Derived || child.State != domain.StateDone {
		t.Fatalf("child derived=%v state=%s", child.Derived, child.State)
	}
	if child.FromCoord != parent.FromCoord+10 || child.ToCoord != parent.FromCoord+52 {
		t.Fatalf("child window %d-%d", child.FromCoord, child.ToCoord)
	}
	if child.BestSize != 5 || child.BestOffset != parent.BestOffset {
		t.Fatalf("child params size=%d offset=%d", child.BestSize, child.BestOffset)
	}
	if child.Region.Name != "crop" {
		t.Fatalf("child region name %q", child.Region.Name)
	}
	// orfA (20-50) fits the window and rebases; orfB straddles and is dropped.
	if len(child.Region.Orfs) != 1 || child.Region.Orfs[0].Start != 10 || child.Region.Orfs[0].End != 40 {
		t.Fatalf("child orfs %+v", child.Region.Orfs)
	}
	if _, ok := child.Region.Grnas["G1"]; !ok || len(child.Region.Grnas) != 1 {
		t.Fatalf("child grnas %+v", child.Region.Grnas)
	}

	// Nothing was enqueued for the child.
	for _, name := range []string{queue.Prepare, queue.Scan} {
		if entry, _ := q.Reserve(ctx, name); entry != nil {
			t.Fatalf("derivation enqueued on %s: %+v", name, entry)
		}
	}

	// The parent is untouched.
	reloaded, err := svc.Get(ctx, parent.ID)
	if err != nil {
		t.Fatalf("reload parent: %v", err)
	}
	if len(reloaded.Region.Orfs) != 2 || len(reloaded.Region.Grnas) != 2 {
		t.Fatalf("parent region modified: %+v", reloaded.Region)
	}
}

func TestDeriveRejectsOutOfParentWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	parent := scannedSession(t, svc)
	// Parent covers 1000-2000; a 1200bp crop runs past its end.
	if _, err := svc.RequestScan(ctx, parent.ID, domain.ScanRequest{From: 0, To: 1200}); !domain.IsValidation(err) {
		t.Fatalf("oversized crop: %v", err)
	}

	reloaded, _ := svc.Get(ctx, parent.ID)
	if reloaded.State != domain.StateDone {
		t.Fatalf("parent state after rejected crop = %s", reloaded.State)
	}
}

func TestExportCSV(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	svc.ReportGenome(ctx, session.ID, testGenome())
	svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 1000, To: 3000})
	region := &domain.Region{
		Name: "cluster-1",
		Grnas: map[string]domain.Grna{
			"FAKE1": {
				ID: "FAKE1", Start: 1240, End: 1263, Strand: 1, Orf: "FAK1",
				Sequence: "AAAAAAAATTTTTTTTCCCC", PAM: "AGG",
				MM0: 0, MM1: 2, MM2: 4,
				ChangedAAs: &domain.ChangedAAs{CtoT: []string{"A1*", "B2C"}, AtoG: []string{"D3*"}},
			},
			"FAKE2": {ID: "FAKE2", Start: 1500, End: 1523, Strand: -1, Orf: "FAK2", Sequence: "GGGGCCCCAAAATTTTACGT", PAM: "TGG"},
		},
	}
	if _, err := svc.ReportRegion(ctx, session.ID, region); err != nil {
		t.Fatalf("report region: %v", err)
	}

	export, err := svc.ExportCSV(ctx, session.ID, []string{"FAKE1", "NOT-THERE"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	wantKey := fmt.Sprintf("%039d", session.ID)
	if export.URI != "/download/"+wantKey+"/output.csv" {
		t.Fatalf("export uri %q", export.URI)
	}

	rc, contentType, err := svc.OpenExport(ctx, wantKey)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer rc.Close()
	if contentType != "text/csv" {
		t.Errorf("content type %q", contentType)
	}
	body, _ := io.ReadAll(rc)
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines: %q", len(lines), body)
	}
	if lines[0] != strings.TrimRight(csvHeader, "\n") {
		t.Errorf("header %q", lines[0])
	}
	want := `FAKE1,1240,1263,1,FAK1,AAAAAAAATTTTTTTTCCCC,AGG,"A1*,B2C","D3*",0,2,4`
	if lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestExportPassesAnnotationsThroughVerbatim(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	svc.ReportGenome(ctx, session.ID, testGenome())
	svc.RequestScan(ctx, session.ID, domain.ScanRequest{From: 1000, To: 3000})
	region := &domain.Region{
		Name: "cluster-1",
		Grnas: map[string]domain.Grna{
			"G1": {
				ID: "G1", Start: 10, End: 33, Strand: 1, Orf: "orfA",
				Sequence: "ACGTACGTACGTACGTACGT", PAM: "AGG",
				ChangedAAs: &domain.ChangedAAs{CtoT: []string{`A1"X`, `B2\C`}},
			},
		},
	}
	if _, err := svc.ReportRegion(ctx, session.ID, region); err != nil {
		t.Fatalf("report region: %v", err)
	}

	if _, err := svc.ExportCSV(ctx, session.ID, []string{"G1"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	rc, _, err := svc.OpenExport(ctx, fmt.Sprintf("%039d", session.ID))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)

	// Quote and backslash characters in annotations are not escaped; the
	// joined list is wrapped in quotes as-is.
	want := `"A1"X,B2\C"`
	if !strings.Contains(string(body), want) {
		t.Fatalf("csv = %q, want it to contain %q", body, want)
	}
}

func TestExportWithoutRegion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, _ := svc.CreateFromAccession(ctx, "NC_003888.3")
	if _, err := svc.ExportCSV(ctx, session.ID, []string{"G1"}); !domain.IsValidation(err) {
		t.Fatalf("export without region: %v", err)
	}
}

func TestOpenExportErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.OpenExport(ctx, "not-a-key"); !domain.IsValidation(err) {
		t.Fatalf("garbage key: %v", err)
	}
	if _, _, err := svc.OpenExport(ctx, fmt.Sprintf("%039d", int64(99))); !domain.IsNotFound(err) {
		t.Fatalf("missing export: %v", err)
	}
}
