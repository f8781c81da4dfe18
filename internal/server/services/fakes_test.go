package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/dbx"
	"github.com/dmitrijs2005/memorialboard/internal/server/media"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/notify"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/approvers"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/messages"
	"github.com/google/uuid"
)

// --- in-memory repositories ---

// fakeMessages mirrors the conditional UPDATE of the postgres repository.
type fakeMessages struct {
	mu      sync.Mutex
	rows    map[string]*models.Message
	clock   time.Time
	applied []messages.Transition

	createErr error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{
		rows:  map[string]*models.Message{},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func clone(m *models.Message) *models.Message {
	c := *m
	if m.ApprovedAt != nil {
		t := *m.ApprovedAt
		c.ApprovedAt = &t
	}
	if m.ApprovedByApproverID != nil {
		id := *m.ApprovedByApproverID
		c.ApprovedByApproverID = &id
	}
	return &c
}

func (f *fakeMessages) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	c := clone(m)
	c.ID = uuid.NewString()
	f.clock = f.clock.Add(time.Minute)
	c.CreatedAt = f.clock
	f.rows[c.ID] = c
	return clone(c), nil
}

func (f *fakeMessages) GetByID(_ context.Context, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(m), nil
}

func (f *fakeMessages) List(ctx context.Context) ([]models.Message, error) {
	return f.list(func(*models.Message) bool { return true }), nil
}

func (f *fakeMessages) ListByStatus(_ context.Context, status models.Status) ([]models.Message, error) {
	return f.list(func(m *models.Message) bool { return m.Status == status }), nil
}

func (f *fakeMessages) list(keep func(*models.Message) bool) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Message{}
	for _, m := range f.rows {
		if keep(m) {
			out = append(out, *clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeMessages) CountByStatus(context.Context) (map[models.Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.Status]int{models.StatusPending: 0, models.StatusApproved: 0, models.StatusRejected: 0}
	for _, m := range f.rows {
		out[m.Status]++
	}
	return out, nil
}

func (f *fakeMessages) Transition(_ context.Context, t messages.Transition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[t.ID]
	if !ok || m.Status == t.To {
		return false, nil
	}
	if t.OnlyFromPending && m.Status != models.StatusPending {
		return false, nil
	}
	m.Status = t.To
	if t.To == models.StatusApproved {
		at := t.At
		m.ApprovedAt = &at
	}
	if t.ApproverID != nil {
		id := *t.ApproverID
		m.ApprovedByApproverID = &id
	}
	f.applied = append(f.applied, t)
	return true, nil
}

func (f *fakeMessages) Delete(_ context.Context, id string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, id)
	return m.ImagePublicID, nil
}

type fakeApprovers struct {
	mu     sync.Mutex
	rows   []models.Approver
	onLock func(*fakeApprovers)

	listErr error
}

func (f *fakeApprovers) add(a models.Approver) {
	f.rows = append(f.rows, a)
}

func (f *fakeApprovers) Create(_ context.Context, a *models.Approver) (*models.Approver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == a.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *a
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	f.rows = append(f.rows, c)
	return &c, nil
}

func (f *fakeApprovers) find(match func(models.Approver) bool) (*models.Approver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if match(r) {
			c := r
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeApprovers) GetByID(_ context.Context, id string) (*models.Approver, error) {
	return f.find(func(a models.Approver) bool { return a.ID == id })
}

func (f *fakeApprovers) GetByEmail(_ context.Context, email string) (*models.Approver, error) {
	return f.find(func(a models.Approver) bool { return a.Email == email })
}

func (f *fakeApprovers) List(context.Context) ([]models.Approver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Approver(nil), f.rows...), nil
}

func (f *fakeApprovers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeApprovers) update(id string, fn func(*models.Approver)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			fn(&f.rows[i])
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeApprovers) SetActive(_ context.Context, id string, active bool) error {
	return f.update(id, func(a *models.Approver) { a.IsActive = active })
}

func (f *fakeApprovers) UpdatePassword(_ context.Context, id, hash string) error {
	return f.update(id, func(a *models.Approver) { a.PasswordHash = hash })
}

func (f *fakeApprovers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeApprovers) LockBootstrap(context.Context) error {
	if f.onLock != nil {
		f.onLock(f)
	}
	return nil
}

type fakeRM struct {
	messages  *fakeMessages
	approvers *fakeApprovers
}

func newFakeRM() *fakeRM {
	return &fakeRM{messages: newFakeMessages(), approvers: &fakeApprovers{}}
}

func (m *fakeRM) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRM) Messages(dbx.DBTX) messages.Repository        { return m.messages }
func (m *fakeRM) Approvers(dbx.DBTX) approvers.Repository      { return m.approvers }

// --- collaborators ---

type fakeTokens struct {
	next string
	err  error
}

func (f *fakeTokens) Generate() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.next, nil
}

type fakeCaptcha struct {
	ok    bool
	err   error
	calls int
}

func (f *fakeCaptcha) Verify(context.Context, string, string) (bool, error) {
	f.calls++
	return f.ok, f.err
}

type fakeImages struct {
	mu        sync.Mutex
	uploadErr error
	deleteErr error
	uploaded  []media.Image
	deleted   []string
}

func (f *fakeImages) Upload(_ context.Context, img media.Image) (*media.UploadedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append(f.uploaded, img)
	return &media.UploadedImage{URL: "https://cdn.example.com/memorial/a.png", PublicID: "memorial/a.png"}, nil
}

func (f *fakeImages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeNotifier) all() []notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Notification(nil), f.sent...)
}

var errBoom = errors.New("boom")
