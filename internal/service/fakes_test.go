package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// fakeStore is an in-memory stand-in for the enrollment tables. Each repository view
// below shares it; transactions are driven by sqlmock and ignored here.
type fakeStore struct {
	mu            sync.Mutex
	seq           int
	clock         time.Time
	guardians     map[string]*models.Guardian
	students      map[string]*models.Student
	enrollments   map[string]*models.Enrollment
	registrations map[string]*models.Registration
	attached      map[string]map[string]bool
	assignments   map[string]*models.ClassGroupAssignment
	plans         map[string]*models.Plan
	payments      map[string]*models.Payment
	proofs        map[string]*models.PaymentProof
	fail          map[string]error
	calls         []string
	// rowLocks, when set, makes seats.LockForUpdate block like a row lock.
	rowLocks *rowLocks
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:         time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		guardians:     map[string]*models.Guardian{},
		students:      map[string]*models.Student{},
		enrollments:   map[string]*models.Enrollment{},
		registrations: map[string]*models.Registration{},
		attached:      map[string]map[string]bool{},
		assignments:   map[string]*models.ClassGroupAssignment{},
		plans:         map[string]*models.Plan{},
		payments:      map[string]*models.Payment{},
		proofs:        map[string]*models.PaymentProof{},
		fail:          map[string]error{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// tick returns strictly increasing timestamps so ordering by creation is stable.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *fakeStore) check(op string) error {
	s.calls = append(s.calls, op)
	return s.fail[op]
}

func (s *fakeStore) occupied(assignmentID string) int {
	count := 0
	for _, set := range s.attached {
		if set[assignmentID] {
			count++
		}
	}
	return count
}

func (s *fakeStore) addAssignment(id, planID, grade string, capacity int) *models.ClassGroupAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &models.ClassGroupAssignment{ID: id, PlanID: planID, Grade: grade, Capacity: capacity}
	s.assignments[id] = a
	return a
}

func (s *fakeStore) addPlan(id string, active bool) *models.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Plan{ID: id, Name: "Plan " + id, Level: models.PlanLevelSecondary, Active: active, CreatedAt: s.tick()}
	s.plans[id] = p
	return p
}

// seedEnrollment creates a guardian, student, enrollment and registration directly.
func (s *fakeStore) seedEnrollment(provisional bool, assignmentID *string) *models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := "tutor@example.com"
	g := &models.Guardian{ID: s.nextID("guardian"), DNI: fmt.Sprintf("%08d", s.seq), FirstName: "Rosa", LastName: "Quispe", Phone: "987654321", Email: &email}
	s.guardians[g.ID] = g
	st := &models.Student{ID: s.nextID("student"), FirstName: "Luis", LastName: "Quispe", Age: 14, Grade: "3° Sec", GuardianID: &g.ID}
	s.students[st.ID] = st
	e := &models.Enrollment{
		ID:            s.nextID("enrollment"),
		StudentID:     st.ID,
		PlanID:        "plan-1",
		AssignmentID:  assignmentID,
		Status:        models.EnrollmentStatusPending,
		PaymentStatus: models.EnrollmentPaymentPending,
		Provisional:   provisional,
		CreatedAt:     s.tick(),
	}
	if !provisional {
		e.Status = models.EnrollmentStatusConfirmed
	}
	s.enrollments[e.ID] = e
	r := &models.Registration{ID: s.nextID("registration"), EnrollmentID: e.ID, StudentID: st.ID, Status: models.RegistrationStatusInactive}
	s.registrations[r.ID] = r
	if assignmentID != nil {
		s.attached[r.ID] = map[string]bool{*assignmentID: true}
	}
	return e
}

func (s *fakeStore) seedPayment(enrollmentID string, amount float64, status, requested models.PaymentStatus, proofPaths ...string) *models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Payment{
		ID:              s.nextID("payment"),
		EnrollmentID:    enrollmentID,
		Amount:          amount,
		Method:          models.PaymentMethodYape,
		Status:          status,
		RequestedStatus: requested,
		CreatedAt:       s.tick(),
	}
	s.payments[p.ID] = p
	for _, path := range proofPaths {
		proof := &models.PaymentProof{ID: s.nextID("proof"), PaymentID: p.ID, FilePath: path}
		s.proofs[proof.ID] = proof
	}
	return p
}

func (s *fakeStore) registrationFor(enrollmentID string) *models.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.EnrollmentID == enrollmentID {
			return r
		}
	}
	return nil
}

type fakeGuardians struct{ *fakeStore }

func (f fakeGuardians) FindByDNI(ctx context.Context, exec sqlx.ExtContext, dni string) (*models.Guardian, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("guardians.FindByDNI"); err != nil {
		return nil, err
	}
	for _, g := range f.guardians {
		if g.DNI == dni {
			cp := *g
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeGuardians) FindByPhone(ctx context.Context, phone string) (*models.Guardian, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.guardians {
		if g.Phone == phone {
			cp := *g
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeGuardians) Create(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("guardians.Create"); err != nil {
		return err
	}
	for _, g := range f.guardians {
		if g.Phone == guardian.Phone {
			return appErrors.Clone(appErrors.ErrDuplicate, "this phone number is already registered to another guardian")
		}
	}
	guardian.ID = f.nextID("guardian")
	cp := *guardian
	f.guardians[guardian.ID] = &cp
	return nil
}

func (f fakeGuardians) UpdateContact(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("guardians.UpdateContact"); err != nil {
		return err
	}
	cp := *guardian
	f.guardians[guardian.ID] = &cp
	return nil
}

func (f fakeGuardians) CountStudents(ctx context.Context, exec sqlx.ExtContext, guardianID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("guardians.CountStudents"); err != nil {
		return 0, err
	}
	count := 0
	for _, st := range f.students {
		if st.GuardianID != nil && *st.GuardianID == guardianID {
			count++
		}
	}
	return count, nil
}

func (f fakeGuardians) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("guardians.Delete"); err != nil {
		return err
	}
	if _, ok := f.guardians[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.guardians, id)
	return nil
}

type fakeStudents struct{ *fakeStore }

func (f fakeStudents) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("students.Create"); err != nil {
		return err
	}
	student.ID = f.nextID("student")
	cp := *student
	f.students[student.ID] = &cp
	return nil
}

func (f fakeStudents) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (f fakeStudents) CountEnrollments(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.enrollments {
		if e.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (f fakeStudents) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("students.Delete"); err != nil {
		return err
	}
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

type fakeEnrollments struct{ *fakeStore }

func (f fakeEnrollments) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("enrollments.Create"); err != nil {
		return err
	}
	enrollment.ID = f.nextID("enrollment")
	enrollment.Status = models.EnrollmentStatusPending
	enrollment.PaymentStatus = models.EnrollmentPaymentPending
	enrollment.CreatedAt = f.tick()
	cp := *enrollment
	f.enrollments[enrollment.ID] = &cp
	return nil
}

func (f fakeEnrollments) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f fakeEnrollments) Confirm(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("enrollments.Confirm"); err != nil {
		return err
	}
	e, ok := f.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Provisional = false
	e.Status = models.EnrollmentStatusConfirmed
	return nil
}

func (f fakeEnrollments) UpdatePaymentStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.EnrollmentPaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.PaymentStatus = status
	return nil
}

func (f fakeEnrollments) SetAccessCodeIfEmpty(ctx context.Context, id, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("enrollments.SetAccessCodeIfEmpty"); err != nil {
		return false, err
	}
	e, ok := f.enrollments[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	if e.AccessCode != nil {
		return false, nil
	}
	e.AccessCode = &code
	return true, nil
}

func (f fakeEnrollments) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("enrollments.Delete"); err != nil {
		return err
	}
	if _, ok := f.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.enrollments, id)
	for pid, p := range f.payments {
		if p.EnrollmentID != id {
			continue
		}
		delete(f.payments, pid)
		for proofID, proof := range f.proofs {
			if proof.PaymentID == pid {
				delete(f.proofs, proofID)
			}
		}
	}
	return nil
}

func (f fakeEnrollments) detail(e *models.Enrollment) *models.EnrollmentDetail {
	d := &models.EnrollmentDetail{Enrollment: *e}
	if st, ok := f.students[e.StudentID]; ok {
		d.StudentFirstName = st.FirstName
		d.StudentLastName = st.LastName
		d.Grade = st.Grade
		if st.GuardianID != nil {
			if g, ok := f.guardians[*st.GuardianID]; ok {
				name := g.FullName()
				d.GuardianID = &g.ID
				d.GuardianName = &name
				d.GuardianEmail = g.Email
			}
		}
	}
	if p, ok := f.plans[e.PlanID]; ok {
		d.PlanName = p.Name
	}
	return d
}

func (f fakeEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f.detail(e), nil
}

func (f fakeEnrollments) FindDetailByAccessCode(ctx context.Context, code string) (*models.EnrollmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.enrollments {
		if e.AccessCode != nil && *e.AccessCode == code {
			return f.detail(e), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeEnrollments) FindLatestByGuardianEmail(ctx context.Context, email string) (*models.EnrollmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Enrollment
	for _, e := range f.enrollments {
		d := f.detail(e)
		if d.GuardianEmail == nil || *d.GuardianEmail != email {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return f.detail(latest), nil
}

type fakeRegistrations struct{ *fakeStore }

func (f fakeRegistrations) Create(ctx context.Context, exec sqlx.ExtContext, registration *models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("registrations.Create"); err != nil {
		return err
	}
	registration.ID = f.nextID("registration")
	registration.Status = models.RegistrationStatusInactive
	cp := *registration
	f.registrations[registration.ID] = &cp
	return nil
}

func (f fakeRegistrations) FindByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.registrations {
		if r.EnrollmentID == enrollmentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeRegistrations) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RegistrationStatus, referenceAmount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	r.ReferenceAmount = referenceAmount
	return nil
}

func (f fakeRegistrations) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("registrations.Delete"); err != nil {
		return err
	}
	if _, ok := f.registrations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.registrations, id)
	return nil
}

func (f fakeRegistrations) HasAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached[registrationID][assignmentID], nil
}

func (f fakeRegistrations) AttachAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("registrations.AttachAssignment"); err != nil {
		return err
	}
	if f.attached[registrationID] == nil {
		f.attached[registrationID] = map[string]bool{}
	}
	f.attached[registrationID][assignmentID] = true
	return nil
}

func (f fakeRegistrations) DetachAssignments(ctx context.Context, exec sqlx.ExtContext, registrationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("registrations.DetachAssignments"); err != nil {
		return err
	}
	delete(f.attached, registrationID)
	return nil
}

type fakeSeats struct{ *fakeStore }

func (f fakeSeats) LockForUpdate(ctx context.Context, tx sqlx.ExtContext, id string) (*models.ClassGroupAssignment, error) {
	if f.rowLocks != nil {
		f.rowLocks.acquire(tx, "class_group_assignments:"+id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("seats.LockForUpdate"); err != nil {
		return nil, err
	}
	a, ok := f.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f fakeSeats) CountOccupied(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.occupied(id), nil
}

type fakePlans struct{ *fakeStore }

func (f fakePlans) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f fakePlans) FirstActive(ctx context.Context) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first *models.Plan
	for _, p := range f.plans {
		if p.Active && (first == nil || p.CreatedAt.Before(first.CreatedAt)) {
			first = p
		}
	}
	if first == nil {
		return nil, sql.ErrNoRows
	}
	cp := *first
	return &cp, nil
}

type fakePayments struct{ *fakeStore }

func (f fakePayments) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("payments.Create"); err != nil {
		return err
	}
	payment.ID = f.nextID("payment")
	payment.Status = models.PaymentStatusPending
	if payment.RequestedStatus == "" {
		payment.RequestedStatus = models.PaymentStatusCompleted
	}
	payment.CreatedAt = f.tick()
	cp := *payment
	f.payments[payment.ID] = &cp
	return nil
}

func (f fakePayments) CreateProof(ctx context.Context, exec sqlx.ExtContext, proof *models.PaymentProof) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("payments.CreateProof"); err != nil {
		return err
	}
	proof.ID = f.nextID("proof")
	cp := *proof
	f.proofs[proof.ID] = &cp
	return nil
}

func (f fakePayments) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f fakePayments) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PaymentStatus, reviewedBy *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("payments.UpdateStatus"); err != nil {
		return err
	}
	p, ok := f.payments[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = status
	if reviewedBy != nil {
		p.ReviewedBy = reviewedBy
	}
	return nil
}

func (f fakePayments) ListByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.EnrollmentID == enrollmentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakePayments) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentQueueItem, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.PaymentQueueItem
	for _, p := range f.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Method != "" && p.Method != filter.Method {
			continue
		}
		matched = append(matched, models.PaymentQueueItem{Payment: *p})
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	start := (filter.Page - 1) * filter.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (f fakePayments) ListProofsByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.PaymentProof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentProof
	for _, proof := range f.proofs {
		if p, ok := f.payments[proof.PaymentID]; ok && p.EnrollmentID == enrollmentID {
			out = append(out, *proof)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out, nil
}

type fakeProofHandler struct {
	mu          sync.Mutex
	validateErr error
	storeErr    error
	stored      []StoredProof
	discarded   []StoredProof
}

func (f *fakeProofHandler) Validate(uploads []ProofUpload) ([]ProofUpload, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return uploads, nil
}

func (f *fakeProofHandler) Store(uploads []ProofUpload) ([]StoredProof, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]StoredProof, 0, len(uploads))
	for i, u := range uploads {
		stored = append(stored, StoredProof{
			Path:         fmt.Sprintf("2025/03/proof_%d.png", i),
			OriginalName: u.Filename,
			ContentType:  "image/png",
			SizeBytes:    u.Size,
		})
	}
	f.stored = append(f.stored, stored...)
	return stored, nil
}

func (f *fakeProofHandler) Discard(stored []StoredProof) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, stored...)
}

type fakeReconciler struct {
	mu      sync.Mutex
	created []string
	changed []string
}

func (f *fakeReconciler) OnPaymentCreated(ctx context.Context, paymentID string) *models.ReconciliationReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, paymentID)
	return &models.ReconciliationReport{PaymentID: paymentID, Trigger: TriggerPaymentCreated}
}

func (f *fakeReconciler) OnPaymentStatusChanged(ctx context.Context, paymentID string) *models.ReconciliationReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, paymentID)
	return &models.ReconciliationReport{PaymentID: paymentID, Trigger: TriggerPaymentStatusChanged}
}

type fakeCleanup struct {
	paths []string
	err   error
}

func (f *fakeCleanup) EnqueueProofCleanup(paths []string) error {
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, paths...)
	return nil
}

type fakeAudit struct {
	logs    []*models.AuditLog
	listErr error
}

func (f *fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAudit) ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	entries := []models.AuditEntry{}
	for i := len(f.logs) - 1; i >= 0 && len(entries) < limit; i-- {
		log := f.logs[i]
		if log.Resource == resource && log.ResourceID != nil && *log.ResourceID == resourceID {
			entries = append(entries, models.AuditEntry{AuditLog: *log})
		}
	}
	return entries, nil
}

func strPtr(v string) *string {
	return &v
}
