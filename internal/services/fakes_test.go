package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pdf"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/gcp"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// fakeStore is a single in-memory backing store shared by all fake repos in
// a test, so cross-repo flows (claim, record, guarded update) see one state.
type fakeStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*types.User
	cases     map[uuid.UUID]*types.Case
	documents map[uuid.UUID]*types.Document
	configs   map[uuid.UUID]*types.BatesConfig
	entries   []*types.BatesRegistryEntry
	exhibits  map[uuid.UUID]*types.Exhibit
	packages  map[uuid.UUID]*types.ExhibitPackage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[uuid.UUID]*types.User{},
		cases:     map[uuid.UUID]*types.Case{},
		documents: map[uuid.UUID]*types.Document{},
		configs:   map[uuid.UUID]*types.BatesConfig{},
		exhibits:  map[uuid.UUID]*types.Exhibit{},
		packages:  map[uuid.UUID]*types.ExhibitPackage{},
	}
}

type fakeUserRepo struct{ st *fakeStore }

func (r *fakeUserRepo) Create(_ dbctx.Context, u *types.User) (*types.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.User
	for _, id := range ids {
		if u, ok := r.st.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeCaseRepo struct{ st *fakeStore }

func (r *fakeCaseRepo) Create(_ dbctx.Context, c *types.Case) (*types.Case, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.cases[c.ID] = c
	return c, nil
}

func (r *fakeCaseRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Case, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.cases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakeCaseRepo) Exists(_ dbctx.Context, id uuid.UUID) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	_, ok := r.st.cases[id]
	return ok, nil
}

func (r *fakeCaseRepo) List(_ dbctx.Context, status string, offset, limit int) ([]*types.Case, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.Case
	for _, c := range r.st.cases {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

type fakeDocumentRepo struct{ st *fakeStore }

func (r *fakeDocumentRepo) Create(_ dbctx.Context, d *types.Document) (*types.Document, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.documents[d.ID] = d
	return d, nil
}

func (r *fakeDocumentRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Document, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	d, ok := r.st.documents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDocumentRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Document, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.Document
	for _, id := range ids {
		if d, ok := r.st.documents[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) ListByCase(_ dbctx.Context, caseID uuid.UUID, category string, offset, limit int) ([]*types.Document, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.Document
	for _, d := range r.st.documents {
		if d.CaseID == caseID && (category == "" || d.Category == category) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeDocumentRepo) SetBatesLabel(_ dbctx.Context, documentID, registryID uuid.UUID, batesNumber string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	d, ok := r.st.documents[documentID]
	if !ok || d.BatesRegistryID != nil {
		return false, nil
	}
	rid := registryID
	num := batesNumber
	d.BatesRegistryID = &rid
	d.BatesNumber = &num
	return true, nil
}

type fakeConfigRepo struct{ st *fakeStore }

func (r *fakeConfigRepo) Create(_ dbctx.Context, c *types.BatesConfig) (*types.BatesConfig, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.configs[c.ID] = c
	return c, nil
}

func (r *fakeConfigRepo) get(id uuid.UUID) (*types.BatesConfig, error) {
	c, ok := r.st.configs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConfigRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.BatesConfig, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.get(id)
}

func (r *fakeConfigRepo) GetByIDForUpdate(_ dbctx.Context, id uuid.UUID) (*types.BatesConfig, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.get(id)
}

func (r *fakeConfigRepo) List(_ dbctx.Context, caseID *uuid.UUID, offset, limit int) ([]*types.BatesConfig, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.BatesConfig
	for _, c := range r.st.configs {
		if caseID == nil || c.CaseID == *caseID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeConfigRepo) IDsByCase(_ dbctx.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var ids []uuid.UUID
	for _, c := range r.st.configs {
		if c.CaseID == caseID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (r *fakeConfigRepo) Save(_ dbctx.Context, c *types.BatesConfig) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.configs[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *c
	r.st.configs[c.ID] = &cp
	return nil
}

func (r *fakeConfigRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.configs, id)
	return nil
}

type fakeRegistryRepo struct{ st *fakeStore }

func (r *fakeRegistryRepo) Create(_ dbctx.Context, e *types.BatesRegistryEntry) (*types.BatesRegistryEntry, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.entries {
		if existing.ConfigID == e.ConfigID && existing.SequenceNumber == e.SequenceNumber {
			return nil, repos.ErrDuplicateSequence
		}
	}
	r.st.entries = append(r.st.entries, e)
	return e, nil
}

func (r *fakeRegistryRepo) MaxSequence(_ dbctx.Context, configID uuid.UUID) (int64, bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var max int64
	found := false
	for _, e := range r.st.entries {
		if e.ConfigID == configID && (!found || e.SequenceNumber > max) {
			max = e.SequenceNumber
			found = true
		}
	}
	return max, found, nil
}

func (r *fakeRegistryRepo) ExistsForConfig(_ dbctx.Context, configID uuid.UUID) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, e := range r.st.entries {
		if e.ConfigID == configID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRegistryRepo) List(_ dbctx.Context, f repos.RegistryFilter) ([]*types.BatesRegistryEntry, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	inConfigs := func(id uuid.UUID) bool {
		if len(f.ConfigIDs) == 0 {
			return true
		}
		for _, c := range f.ConfigIDs {
			if c == id {
				return true
			}
		}
		return false
	}
	var out []*types.BatesRegistryEntry
	for _, e := range r.st.entries {
		if !inConfigs(e.ConfigID) {
			continue
		}
		if f.Pattern != "" && !strings.Contains(strings.ToLower(e.BatesNumber), strings.ToLower(f.Pattern)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, int64(len(out)), nil
}

func (r *fakeRegistryRepo) ListAll(dbc dbctx.Context, configIDs []uuid.UUID) ([]*types.BatesRegistryEntry, error) {
	out, _, err := r.List(dbc, repos.RegistryFilter{ConfigIDs: configIDs})
	return out, err
}

type fakeExhibitRepo struct{ st *fakeStore }

func (r *fakeExhibitRepo) Create(_ dbctx.Context, e *types.Exhibit) (*types.Exhibit, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.exhibits[e.ID] = e
	return e, nil
}

func (r *fakeExhibitRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Exhibit, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	e, ok := r.st.exhibits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeExhibitRepo) Save(_ dbctx.Context, e *types.Exhibit) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.exhibits[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *e
	r.st.exhibits[e.ID] = &cp
	return nil
}

func (r *fakeExhibitRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.exhibits, id)
	return nil
}

func (r *fakeExhibitRepo) List(_ dbctx.Context, f repos.ExhibitFilter) ([]*types.Exhibit, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.Exhibit
	for _, e := range r.st.exhibits {
		if f.CaseID != nil && e.CaseID != *f.CaseID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sortExhibits(out)
	return out, int64(len(out)), nil
}

func (r *fakeExhibitRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Exhibit, error) {
	out, _, err := r.List(dbc, repos.ExhibitFilter{CaseID: &caseID})
	return out, err
}

func sortExhibits(out []*types.Exhibit) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ExhibitNumber, out[j].ExhibitNumber
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

func (r *fakeExhibitRepo) NumberTaken(_ dbctx.Context, caseID uuid.UUID, number string, exclude uuid.UUID) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, e := range r.st.exhibits {
		if e.CaseID == caseID && e.ID != exclude && e.ExhibitNumber != nil && *e.ExhibitNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeExhibitRepo) CountsByStatus(_ dbctx.Context, caseID uuid.UUID) ([]repos.ExhibitStatusCount, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	counts := map[string]int64{}
	for _, e := range r.st.exhibits {
		if e.CaseID == caseID {
			counts[e.Status]++
		}
	}
	var out []repos.ExhibitStatusCount
	for status, n := range counts {
		out = append(out, repos.ExhibitStatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

type fakePackageRepo struct{ st *fakeStore }

func (r *fakePackageRepo) Create(_ dbctx.Context, p *types.ExhibitPackage, exhibitIDs []uuid.UUID) (*types.ExhibitPackage, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i, id := range exhibitIDs {
		p.Members = append(p.Members, types.ExhibitPackageMember{
			ID:        uuid.New(),
			PackageID: p.ID,
			ExhibitID: id,
			SortOrder: i,
		})
	}
	r.st.packages[p.ID] = p
	return p, nil
}

func (r *fakePackageRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.ExhibitPackage, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakePackageRepo) ListByCase(_ dbctx.Context, caseID uuid.UUID) ([]*types.ExhibitPackage, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*types.ExhibitPackage
	for _, p := range r.st.packages {
		if p.CaseID == caseID {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeBucket keeps objects in memory, keyed per category.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) objectKey(category gcp.BucketCategory, key string) string {
	return string(category) + "/" + key
}

func (b *fakeBucket) UploadFile(_ dbctx.Context, category gcp.BucketCategory, key string, file io.Reader) error {
	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[b.objectKey(category, key)] = content
	return nil
}

func (b *fakeBucket) DownloadFile(_ context.Context, category gcp.BucketCategory, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.objects[b.objectKey(category, key)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (b *fakeBucket) DeleteFile(_ dbctx.Context, category gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, b.objectKey(category, key))
	return nil
}

func (b *fakeBucket) ListKeys(_ context.Context, category gcp.BucketCategory, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		full := string(category) + "/" + prefix
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, string(category)+"/"))
		}
	}
	return keys, nil
}

func (b *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://storage.test/" + b.objectKey(category, key)
}

func (b *fakeBucket) object(category gcp.BucketCategory, key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.objects[b.objectKey(category, key)]
	return content, ok
}

// fakeStamper marks stamped content with a readable prefix instead of
// producing real page content. failOn makes a specific text fail, for
// exercising failed-item behavior.
type fakeStamper struct {
	mu     sync.Mutex
	failOn string
	calls  []string
}

func (f *fakeStamper) record(kind, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind+":"+text)
}

func (f *fakeStamper) apply(kind, text string, content []byte, mimeType string) (pdf.Result, error) {
	if f.failOn != "" && text == f.failOn {
		return pdf.Result{}, fmt.Errorf("stamp %q failed", text)
	}
	f.record(kind, text)
	if mimeType != pdf.MimeTypePDF {
		cp := make([]byte, len(content))
		copy(cp, content)
		return pdf.Result{Content: cp, Applied: false}, nil
	}
	out := append([]byte(kind+"["+text+"]"), content...)
	return pdf.Result{Content: out, Applied: true}, nil
}

func (f *fakeStamper) StampText(_ context.Context, content []byte, mimeType, text string, _ pdf.Position) (pdf.Result, error) {
	return f.apply("text", text, content, mimeType)
}

func (f *fakeStamper) StampBadge(_ context.Context, content []byte, mimeType, text string) (pdf.Result, error) {
	return f.apply("badge", text, content, mimeType)
}

func (f *fakeStamper) StampWatermark(_ context.Context, content []byte, mimeType, text string) (pdf.Result, error) {
	return f.apply("watermark", text, content, mimeType)
}

// env bundles everything the service tests need.
type env struct {
	st      *fakeStore
	bucket  *fakeBucket
	stamper *fakeStamper
	bates   BatesService
	exhibit ExhibitService
	docs    DocumentService
	cases   CaseService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	st := newFakeStore()
	bucket := newFakeBucket()
	stamper := &fakeStamper{}
	runTx := PassthroughTxRunner()

	userRepo := &fakeUserRepo{st: st}
	caseRepo := &fakeCaseRepo{st: st}
	docRepo := &fakeDocumentRepo{st: st}
	cfgRepo := &fakeConfigRepo{st: st}
	regRepo := &fakeRegistryRepo{st: st}
	exhRepo := &fakeExhibitRepo{st: st}
	pkgRepo := &fakePackageRepo{st: st}

	return &env{
		st:      st,
		bucket:  bucket,
		stamper: stamper,
		bates:   NewBatesService(log, runTx, cfgRepo, regRepo, docRepo, userRepo, caseRepo, bucket, stamper),
		exhibit: NewExhibitService(log, runTx, exhRepo, pkgRepo, docRepo, caseRepo, bucket, stamper),
		docs:    NewDocumentService(log, docRepo, caseRepo, bucket),
		cases:   NewCaseService(log, caseRepo),
	}
}

func (e *env) seedCase(t *testing.T) uuid.UUID {
	t.Helper()
	c := &types.Case{ID: uuid.New(), Name: "Acme v. Bolt", Status: types.CaseStatusActive}
	e.st.cases[c.ID] = c
	return c.ID
}

func (e *env) seedUser(t *testing.T) uuid.UUID {
	t.Helper()
	u := &types.User{ID: uuid.New(), Email: "paralegal@example.com", FirstName: "Dana", LastName: "Reyes"}
	e.st.users[u.ID] = u
	return u.ID
}

func (e *env) seedDocument(t *testing.T, caseID uuid.UUID, name, mimeType string, content []byte) uuid.UUID {
	t.Helper()
	id := uuid.New()
	key := fmt.Sprintf("cases/%s/documents/%s_%s", caseID, id, name)
	e.bucket.mu.Lock()
	e.bucket.objects[e.bucket.objectKey(gcp.BucketCategoryDocument, key)] = content
	e.bucket.mu.Unlock()
	e.st.documents[id] = &types.Document{
		ID:         id,
		CaseID:     caseID,
		Name:       name,
		StorageKey: key,
		MimeType:   mimeType,
		SizeBytes:  int64(len(content)),
		Category:   "Uncategorized",
	}
	return id
}

func (e *env) seedConfig(t *testing.T, caseID uuid.UUID, prefix string, start int64, padding int) uuid.UUID {
	t.Helper()
	cfg := &types.BatesConfig{
		ID:          uuid.New(),
		CaseID:      caseID,
		Name:        prefix + " series",
		Prefix:      prefix,
		StartNumber: start,
		Padding:     padding,
		Format:      types.BatesFormatSequential,
	}
	e.st.configs[cfg.ID] = cfg
	return cfg.ID
}
