package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

// memoryStudentStore keeps students in insertion order and joins lookup names on read.
type memoryStudentStore struct {
	order    []string
	students map[string]models.Student
	plans    *memoryLookupStore
	phases   *memoryLookupStore
	failOn   map[string]error
	seq      int
	deleted  []string
	listErr  error
}

func newMemoryStudentStore(plans, phases *memoryLookupStore) *memoryStudentStore {
	return &memoryStudentStore{students: map[string]models.Student{}, plans: plans, phases: phases, failOn: map[string]error{}}
}

func (m *memoryStudentStore) detail(st models.Student) models.StudentDetail {
	d := models.StudentDetail{Student: st}
	if m.plans != nil {
		if p, ok := m.plans.items[st.PlanTypeID]; ok {
			name, color := p.Name, p.Color
			d.PlanTypeName, d.PlanTypeColor = &name, &color
		}
	}
	if m.phases != nil && st.TrainingPhaseID != nil {
		if f, ok := m.phases.items[*st.TrainingPhaseID]; ok {
			name, color := f.Name, f.Color
			d.TrainingPhaseName, d.TrainingPhaseColor = &name, &color
		}
	}
	return d
}

func (m *memoryStudentStore) matches(st models.Student, filter models.StudentFilter) bool {
	if filter.Name != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Name)) {
		return false
	}
	if filter.PlanTypeID != "" && st.PlanTypeID != filter.PlanTypeID {
		return false
	}
	if filter.PaymentStatus != "" && string(st.PaymentStatus) != filter.PaymentStatus {
		return false
	}
	if filter.TrainingStatus != "" && string(st.TrainingStatus) != filter.TrainingStatus {
		return false
	}
	if filter.ExpiryFrom != nil && st.PlanExpiryDate.Before(*filter.ExpiryFrom) {
		return false
	}
	if filter.ExpiryTo != nil && st.PlanExpiryDate.After(*filter.ExpiryTo) {
		return false
	}
	return true
}

func (m *memoryStudentStore) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.StudentDetail
	for _, id := range m.order {
		st, ok := m.students[id]
		if !ok || !m.matches(st, filter) {
			continue
		}
		out = append(out, m.detail(st))
	}
	if filter.SortBy == "name" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out, nil
}

func (m *memoryStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	all, err := m.ListAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return all, len(all), nil
}

func (m *memoryStudentStore) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	st, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := m.detail(st)
	return &d, nil
}

func (m *memoryStudentStore) Create(ctx context.Context, student *models.Student) error {
	if err, ok := m.failOn[student.Name]; ok {
		return err
	}
	m.seq++
	if student.ID == "" {
		student.ID = fmt.Sprintf("student-%d", m.seq)
	}
	m.order = append(m.order, student.ID)
	m.students[student.ID] = *student
	return nil
}

func (m *memoryStudentStore) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *memoryStudentStore) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryStudentStore) all() []models.Student {
	out := make([]models.Student, 0, len(m.order))
	for _, id := range m.order {
		if st, ok := m.students[id]; ok {
			out = append(out, st)
		}
	}
	return out
}

// memoryLookupStore is an in-memory plan type or training phase table.
type memoryLookupStore struct {
	kind      models.LookupKind
	items     map[string]models.Lookup
	seq       int
	listCalls int
}

func newMemoryLookupStore(kind models.LookupKind, names ...string) *memoryLookupStore {
	m := &memoryLookupStore{kind: kind, items: map[string]models.Lookup{}}
	for _, name := range names {
		_ = m.Create(context.Background(), &models.Lookup{Name: name, Active: true})
	}
	return m
}

func (m *memoryLookupStore) idOf(name string) string {
	for id, item := range m.items {
		if item.Name == name {
			return id
		}
	}
	return ""
}

func (m *memoryLookupStore) Kind() models.LookupKind { return m.kind }

func (m *memoryLookupStore) List(ctx context.Context, activeOnly bool) ([]models.Lookup, error) {
	m.listCalls++
	var out []models.Lookup
	for _, item := range m.items {
		if activeOnly && !item.Active {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memoryLookupStore) FindByID(ctx context.Context, id string) (*models.Lookup, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m *memoryLookupStore) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	for id, item := range m.items {
		if item.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLookupStore) Create(ctx context.Context, item *models.Lookup) error {
	m.seq++
	if item.ID == "" {
		item.ID = fmt.Sprintf("%s-%d", m.kind, m.seq)
	}
	m.items[item.ID] = *item
	return nil
}

func (m *memoryLookupStore) Update(ctx context.Context, item *models.Lookup) error {
	m.items[item.ID] = *item
	return nil
}

func (m *memoryLookupStore) Deactivate(ctx context.Context, id string) error {
	item := m.items[id]
	item.Active = false
	m.items[id] = item
	return nil
}

// memoryCacheRepo stores cached values by key without serialisation.
type memoryCacheRepo struct {
	entries     map[string]interface{}
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string]interface{}{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if items, ok := value.([]models.Lookup); ok {
		if target, ok := dest.(*[]models.Lookup); ok {
			*target = append([]models.Lookup(nil), items...)
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func ptrString(v string) *string { return &v }

func ptrFloat(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
