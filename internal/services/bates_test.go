package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pdf"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/gcp"
)

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apierr.From(err).Status; got != status {
		t.Fatalf("expected status %d, got %d (%v)", status, got, err)
	}
}

func TestCreateConfigDefaults(t *testing.T) {
	e := newEnv(t)
	caseID := e.seedCase(t)

	cfg, err := e.bates.CreateConfig(context.Background(), CreateBatesConfigInput{
		CaseID: caseID,
		Name:   "Production set",
		Prefix: "ABC-",
	})
	if err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	if cfg.StartNumber != 1 {
		t.Errorf("start number = %d, want 1", cfg.StartNumber)
	}
	if cfg.Padding != 5 {
		t.Errorf("padding = %d, want 5", cfg.Padding)
	}
	if cfg.Format != types.BatesFormatSequential {
		t.Errorf("format = %q, want sequential", cfg.Format)
	}
}

func TestCreateConfigValidation(t *testing.T) {
	e := newEnv(t)
	caseID := e.seedCase(t)
	ctx := context.Background()

	_, err := e.bates.CreateConfig(ctx, CreateBatesConfigInput{CaseID: caseID})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = e.bates.CreateConfig(ctx, CreateBatesConfigInput{CaseID: caseID, Name: "x", Padding: 11})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = e.bates.CreateConfig(ctx, CreateBatesConfigInput{CaseID: caseID, Name: "x", StartNumber: -5})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = e.bates.CreateConfig(ctx, CreateBatesConfigInput{CaseID: caseID, Name: "x", Format: "roman"})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = e.bates.CreateConfig(ctx, CreateBatesConfigInput{CaseID: uuid.New(), Name: "x"})
	wantStatus(t, err, http.StatusNotFound)
}

func TestApplyLabelPDF(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "TEST", 1, 5)
	docID := e.seedDocument(t, caseID, "contract.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4 body"))

	res, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{
		ConfigID:   cfgID,
		DocumentID: docID,
		AppliedBy:  userID,
	})
	if err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}
	if res.BatesNumber != "TEST00001" {
		t.Errorf("bates number = %q, want TEST00001", res.BatesNumber)
	}
	if !res.Applied {
		t.Error("expected Applied=true for a PDF")
	}
	if res.Entry.SequenceNumber != 1 {
		t.Errorf("sequence = %d, want 1", res.Entry.SequenceNumber)
	}

	doc := e.st.documents[docID]
	if doc.BatesNumber == nil || *doc.BatesNumber != "TEST00001" {
		t.Errorf("document label = %v, want TEST00001", doc.BatesNumber)
	}

	labeled, ok := e.bucket.object(gcp.BucketCategoryLabeled, res.LabeledKey)
	if !ok {
		t.Fatalf("labeled object %s missing", res.LabeledKey)
	}
	if !bytes.HasPrefix(labeled, []byte("text[TEST00001]")) {
		t.Errorf("labeled object not stamped: %q", labeled)
	}

	// The original stays byte-identical.
	original, _ := e.bucket.object(gcp.BucketCategoryDocument, doc.StorageKey)
	if string(original) != "%PDF-1.4 body" {
		t.Errorf("original mutated: %q", original)
	}
}

func TestApplyLabelNonPDFPassThrough(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "IMG", 1, 4)
	content := []byte{0xff, 0xd8, 0xff}
	docID := e.seedDocument(t, caseID, "photo.jpg", "image/jpeg", content)

	res, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID})
	if err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}
	if res.Applied {
		t.Error("expected Applied=false for non-PDF content")
	}
	if res.BatesNumber != "IMG0001" {
		t.Errorf("bates number = %q, want IMG0001", res.BatesNumber)
	}
	labeled, ok := e.bucket.object(gcp.BucketCategoryLabeled, res.LabeledKey)
	if !ok || !bytes.Equal(labeled, content) {
		t.Error("labeled copy should be byte-identical to the original")
	}
}

func TestApplyLabelAlreadyLabeled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "DUP", 1, 5)
	docID := e.seedDocument(t, caseID, "a.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err != nil {
		t.Fatalf("first ApplyLabel: %v", err)
	}
	_, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID})
	wantStatus(t, err, http.StatusConflict)
}

func TestApplyLabelCaseMismatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseA := e.seedCase(t)
	caseB := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseA, "A", 1, 5)
	docID := e.seedDocument(t, caseB, "b.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	_, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestApplyLabelWatermark(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "WM", 1, 5)
	docID := e.seedDocument(t, caseID, "c.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{
		ConfigID:      cfgID,
		DocumentID:    docID,
		WatermarkText: "CONFIDENTIAL",
		AppliedBy:     userID,
	}); err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}
	found := false
	for _, call := range e.stamper.calls {
		if call == "watermark:CONFIDENTIAL" {
			found = true
		}
	}
	if !found {
		t.Errorf("watermark stamp not applied, calls: %v", e.stamper.calls)
	}
}

func TestApplyLabelStampFailureConsumesNoNumber(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "GAP", 1, 5)
	docID := e.seedDocument(t, caseID, "d.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	e.stamper.failOn = "GAP00001"
	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err == nil {
		t.Fatal("expected stamp failure")
	}
	if len(e.st.entries) != 0 {
		t.Fatalf("failed label recorded %d entries", len(e.st.entries))
	}

	e.stamper.failOn = ""
	res, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID})
	if err != nil {
		t.Fatalf("retry ApplyLabel: %v", err)
	}
	if res.BatesNumber != "GAP00001" {
		t.Errorf("retry consumed a new number: %q", res.BatesNumber)
	}
}

func TestBatchApplyPerItemIsolation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "BATCH", 10, 5)

	docA := e.seedDocument(t, caseID, "a.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4 a"))
	docB := e.seedDocument(t, caseID, "b.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4 b"))
	docC := e.seedDocument(t, caseID, "c.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4 c"))

	// B is already labeled; it must fail in place without consuming a number.
	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docB, AppliedBy: userID}); err != nil {
		t.Fatalf("pre-label B: %v", err)
	}

	out, err := e.bates.BatchApplyLabels(ctx, BatchApplyLabelsInput{
		ConfigID:    cfgID,
		DocumentIDs: []uuid.UUID{docA, docB, docC},
		AppliedBy:   userID,
	})
	if err != nil {
		t.Fatalf("BatchApplyLabels: %v", err)
	}
	if out.Total != 3 || out.Succeeded != 2 || out.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1", out.Total, out.Succeeded, out.Failed)
	}
	if out.Items[0].BatesNumber != "BATCH00011" {
		t.Errorf("item A = %q, want BATCH00011", out.Items[0].BatesNumber)
	}
	if out.Items[1].Error == "" {
		t.Error("item B should report its error")
	}
	if out.Items[2].BatesNumber != "BATCH00012" {
		t.Errorf("item C = %q, want BATCH00012", out.Items[2].BatesNumber)
	}
}

func TestConcurrentApplyUniqueNumbers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "PAR", 1, 5)

	const n = 8
	docIDs := make([]uuid.UUID, n)
	for i := range docIDs {
		docIDs[i] = e.seedDocument(t, caseID, fmt.Sprintf("doc%d.pdf", i), pdf.MimeTypePDF, []byte("%PDF-1.4"))
	}

	var wg sync.WaitGroup
	results := make([]*LabelResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.bates.ApplyLabel(ctx, ApplyLabelInput{
				ConfigID:   cfgID,
				DocumentID: docIDs[i],
				AppliedBy:  userID,
			})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if seen[results[i].BatesNumber] {
			t.Fatalf("duplicate number %q", results[i].BatesNumber)
		}
		seen[results[i].BatesNumber] = true
	}
	for seq := 1; seq <= n; seq++ {
		if !seen[fmt.Sprintf("PAR%05d", seq)] {
			t.Errorf("sequence %d never issued", seq)
		}
	}
}

func TestUpdateConfigImmutableAfterIssue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "LOCK", 1, 5)
	docID := e.seedDocument(t, caseID, "x.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	newPrefix := "OTHER"
	if _, err := e.bates.UpdateConfig(ctx, cfgID, UpdateBatesConfigInput{Prefix: &newPrefix}); err != nil {
		t.Fatalf("prefix change before issue should pass: %v", err)
	}
	old := "LOCK"
	if _, err := e.bates.UpdateConfig(ctx, cfgID, UpdateBatesConfigInput{Prefix: &old}); err != nil {
		t.Fatalf("restore prefix: %v", err)
	}

	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}

	_, err := e.bates.UpdateConfig(ctx, cfgID, UpdateBatesConfigInput{Prefix: &newPrefix})
	wantStatus(t, err, http.StatusConflict)

	start := int64(100)
	_, err = e.bates.UpdateConfig(ctx, cfgID, UpdateBatesConfigInput{StartNumber: &start})
	wantStatus(t, err, http.StatusConflict)

	// Name and padding stay editable.
	name := "renamed"
	padding := 6
	cfg, err := e.bates.UpdateConfig(ctx, cfgID, UpdateBatesConfigInput{Name: &name, Padding: &padding})
	if err != nil {
		t.Fatalf("name/padding update: %v", err)
	}
	if cfg.Name != "renamed" || cfg.Padding != 6 {
		t.Errorf("got %q/%d, want renamed/6", cfg.Name, cfg.Padding)
	}
}

func TestDeleteConfigInUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "DEL", 1, 5)
	docID := e.seedDocument(t, caseID, "y.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}
	wantStatus(t, e.bates.DeleteConfig(ctx, cfgID), http.StatusConflict)

	emptyID := e.seedConfig(t, caseID, "EMPTY", 1, 5)
	if err := e.bates.DeleteConfig(ctx, emptyID); err != nil {
		t.Fatalf("delete unused config: %v", err)
	}
}

func TestNextNumberPreview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "NXT", 7, 3)

	label, seq, err := e.bates.NextNumber(ctx, cfgID)
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if label != "NXT007" || seq != 7 {
		t.Fatalf("got %q/%d, want NXT007/7", label, seq)
	}

	// Preview does not consume.
	label2, _, err := e.bates.NextNumber(ctx, cfgID)
	if err != nil || label2 != "NXT007" {
		t.Fatalf("second preview = %q (%v), want NXT007", label2, err)
	}

	docID := e.seedDocument(t, caseID, "z.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))
	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}
	label3, seq3, err := e.bates.NextNumber(ctx, cfgID)
	if err != nil || label3 != "NXT008" || seq3 != 8 {
		t.Fatalf("after issue got %q/%d (%v), want NXT008/8", label3, seq3, err)
	}
}

func TestSearchRegistry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "SRCH", 1, 5)

	for i := 0; i < 3; i++ {
		docID := e.seedDocument(t, caseID, fmt.Sprintf("s%d.pdf", i), pdf.MimeTypePDF, []byte("%PDF-1.4"))
		if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err != nil {
			t.Fatalf("ApplyLabel %d: %v", i, err)
		}
	}

	entries, total, err := e.bates.SearchRegistry(ctx, RegistryQuery{CaseID: &caseID, Pattern: "srch00002"})
	if err != nil {
		t.Fatalf("SearchRegistry: %v", err)
	}
	if total != 1 || len(entries) != 1 || entries[0].BatesNumber != "SRCH00002" {
		t.Fatalf("got %d entries (total %d), want exactly SRCH00002", len(entries), total)
	}

	all, total, err := e.bates.SearchRegistry(ctx, RegistryQuery{ConfigID: &cfgID})
	if err != nil || total != 3 {
		t.Fatalf("config search total = %d (%v), want 3", total, err)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].SequenceNumber > all[i].SequenceNumber {
			t.Error("registry entries not in sequence order")
		}
	}
}

func TestReportCSV(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	caseID := e.seedCase(t)
	userID := e.seedUser(t)
	cfgID := e.seedConfig(t, caseID, "RPT", 1, 5)
	docID := e.seedDocument(t, caseID, "deposition.pdf", pdf.MimeTypePDF, []byte("%PDF-1.4"))

	if _, err := e.bates.ApplyLabel(ctx, ApplyLabelInput{ConfigID: cfgID, DocumentID: docID, AppliedBy: userID}); err != nil {
		t.Fatalf("ApplyLabel: %v", err)
	}

	report, err := e.bates.Report(ctx, ReportScope{CaseID: &caseID})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(report.Rows))
	}
	row := report.Rows[0]
	if row.BatesNumber != "RPT00001" || row.DocumentName != "deposition.pdf" || row.AppliedBy != "Dana Reyes" {
		t.Errorf("unexpected row: %+v", row)
	}

	lines := strings.Split(strings.TrimSpace(string(report.CSV())), "\n")
	if lines[0] != "Bates Number,Document Name,Applied By,Applied Date" {
		t.Errorf("csv header = %q", lines[0])
	}
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "RPT00001,deposition.pdf,Dana Reyes,") {
		t.Errorf("csv row = %v", lines[1:])
	}

	// Config-scoped report covers the same entries.
	scoped, err := e.bates.Report(ctx, ReportScope{ConfigID: &cfgID})
	if err != nil || len(scoped.Rows) != 1 {
		t.Fatalf("config-scoped report rows = %d (%v), want 1", len(scoped.Rows), err)
	}

	missing := uuid.New()
	_, err = e.bates.Report(ctx, ReportScope{CaseID: &missing})
	wantStatus(t, err, http.StatusNotFound)

	_, err = e.bates.Report(ctx, ReportScope{})
	wantStatus(t, err, http.StatusBadRequest)
}
