// Package fakes provides in-memory stand-ins for the storage interfaces so
// service tests run without a database.
package fakes

import (
	"context"
	"sort"
	"sync"

	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
)

// FakeStudentRepo keeps one partition's records in a map. It reproduces the
// real store's ordering (risk score descending, then name, then student id)
// so merge tests observe realistic per-partition output.
type FakeStudentRepo struct {
	mu       sync.RWMutex
	tenantID string
	records  map[string]*models.StudentRecord

	// FailWith, when set, makes every call return this error. Used to
	// simulate an unavailable partition.
	FailWith error
}

// NewFakeStudentRepo creates an empty partition.
func NewFakeStudentRepo(tenantID string) *FakeStudentRepo {
	return &FakeStudentRepo{
		tenantID: tenantID,
		records:  make(map[string]*models.StudentRecord),
	}
}

var _ repository.StudentRepository = (*FakeStudentRepo)(nil)

func (r *FakeStudentRepo) TenantID() string {
	return r.tenantID
}

func (r *FakeStudentRepo) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	rec, ok := r.records[studentID]
	if !ok {
		return nil, errors.ErrStudentNotFound(studentID)
	}
	clone := *rec
	return &clone, nil
}

func (r *FakeStudentRepo) List(ctx context.Context, filter models.StudentFilter, page models.Page) ([]*models.StudentRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, 0, r.FailWith
	}

	var matched []*models.StudentRecord
	for _, rec := range r.records {
		if filter.Department != "" && rec.Department != filter.Department {
			continue
		}
		if filter.RiskLevel != "" && rec.RiskLevel != filter.RiskLevel {
			continue
		}
		if filter.InstitutionType != "" && rec.InstitutionType != filter.InstitutionType {
			continue
		}
		clone := *rec
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].RiskScore != matched[j].RiskScore {
			return matched[i].RiskScore > matched[j].RiskScore
		}
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].StudentID < matched[j].StudentID
	})

	total := int64(len(matched))
	page = page.Normalize()
	if page.Offset >= len(matched) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], total, nil
}

func (r *FakeStudentRepo) UpsertBatch(ctx context.Context, records []*models.StudentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	for _, rec := range records {
		clone := *rec
		r.records[rec.StudentID] = &clone
	}
	return nil
}

func (r *FakeStudentRepo) Update(ctx context.Context, record *models.StudentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	clone := *record
	r.records[record.StudentID] = &clone
	return nil
}

func (r *FakeStudentRepo) Stats(ctx context.Context) (*models.TenantStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}

	stats := models.NewTenantStats(r.tenantID)
	var scoreSum float64
	for _, rec := range r.records {
		stats.TotalStudents++
		scoreSum += rec.RiskScore
		stats.RiskLevels[rec.RiskLevel]++
		if rec.Department != "" {
			stats.Departments[rec.Department]++
		}
		if rec.RiskLevel.IsElevated() {
			stats.HighRiskCount++
		}
	}
	if stats.TotalStudents > 0 {
		stats.AverageScore = scoreSum / float64(stats.TotalStudents)
	}
	return stats, nil
}

// Len returns the current record count.
func (r *FakeStudentRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// FakePartitionManager hands out fake partitions keyed by tenant id.
type FakePartitionManager struct {
	mu       sync.Mutex
	repos    map[string]*FakeStudentRepo
	registry *FakeRegistry
}

// NewFakePartitionManager creates the manager over the given registry.
func NewFakePartitionManager(registry *FakeRegistry) *FakePartitionManager {
	return &FakePartitionManager{
		repos:    make(map[string]*FakeStudentRepo),
		registry: registry,
	}
}

var _ repository.PartitionManager = (*FakePartitionManager)(nil)

// Seed installs a pre-built partition, registering its tenant.
func (m *FakePartitionManager) Seed(repo *FakeStudentRepo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos[repo.TenantID()] = repo
	m.registry.Add(repo.TenantID())
}

func (m *FakePartitionManager) Partition(ctx context.Context, tenantID string) (repository.StudentRepository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[tenantID]
	if !ok {
		return nil, errors.ErrTenantNotFound(tenantID)
	}
	if repo.FailWith != nil {
		return nil, errors.ErrPartitionUnavailable(tenantID, repo.FailWith)
	}
	return repo, nil
}

func (m *FakePartitionManager) OpenPartition(ctx context.Context, tenantID string) (repository.StudentRepository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[tenantID]
	if !ok {
		repo = NewFakeStudentRepo(tenantID)
		m.repos[tenantID] = repo
		m.registry.Add(tenantID)
	}
	return repo, nil
}

func (m *FakePartitionManager) KnownTenants(ctx context.Context) ([]string, error) {
	return m.registry.ListTenantIDs(ctx)
}

func (m *FakePartitionManager) Close() error {
	return nil
}

// FakeRegistry is the in-memory tenant registry.
type FakeRegistry struct {
	mu      sync.RWMutex
	tenants map[string]*models.Tenant

	// FailWith, when set, makes every lookup fail.
	FailWith error
}

// NewFakeRegistry creates an empty registry.
func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{tenants: make(map[string]*models.Tenant)}
}

var _ repository.RegistryRepository = (*FakeRegistry)(nil)

// Add registers a tenant id with a matching display name.
func (r *FakeRegistry) Add(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenantID]; !ok {
		r.tenants[tenantID] = models.NewTenant(tenantID, tenantID)
	}
}

func (r *FakeRegistry) ListTenantIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *FakeRegistry) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*models.Tenant, 0, len(ids))
	for _, id := range ids {
		clone := *r.tenants[id]
		out = append(out, &clone)
	}
	return out, nil
}

func (r *FakeRegistry) Exists(ctx context.Context, tenantID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	_, ok := r.tenants[tenantID]
	return ok, nil
}

func (r *FakeRegistry) Register(ctx context.Context, tenant *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.TenantID]; !ok {
		clone := *tenant
		r.tenants[tenant.TenantID] = &clone
	}
	return nil
}

func (r *FakeRegistry) UpdateSummary(ctx context.Context, tenantID string, totalStudents, highRisk int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant, ok := r.tenants[tenantID]
	if !ok {
		return errors.ErrTenantNotFound(tenantID)
	}
	tenant.TotalStudents = totalStudents
	tenant.HighRiskStudents = highRisk
	return nil
}

// FakeAuditRepo records appended audit entries in order.
type FakeAuditRepo struct {
	mu      sync.Mutex
	Entries []*models.AuditRecord

	// FailWith, when set, makes Append fail: the write-before-respond tests
	// rely on this.
	FailWith error
}

// NewFakeAuditRepo creates an empty trail.
func NewFakeAuditRepo() *FakeAuditRepo {
	return &FakeAuditRepo{}
}

var _ repository.AuditRepository = (*FakeAuditRepo)(nil)

func (r *FakeAuditRepo) Append(ctx context.Context, record *models.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	clone := *record
	r.Entries = append(r.Entries, &clone)
	return nil
}

func (r *FakeAuditRepo) ListByPrincipal(ctx context.Context, principalID string, page models.Page) ([]*models.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	var matched []*models.AuditRecord
	for _, rec := range r.Entries {
		if rec.PrincipalID == principalID {
			clone := *rec
			matched = append(matched, &clone)
		}
	}
	page = page.Normalize()
	if page.Offset >= len(matched) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], nil
}

// Actions returns the recorded action names in append order.
func (r *FakeAuditRepo) Actions() []constants.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]constants.AuditAction, 0, len(r.Entries))
	for _, rec := range r.Entries {
		out = append(out, rec.Action)
	}
	return out
}
