package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/consultoria-api/internal/models"
)

const studentColumns = `s.id, s.name, s.email, s.plan_type_id, s.plan_start_date, s.plan_expiry_date,
        s.training_start_date, s.training_expiry_date, s.training_phase_id, s.training_status, s.payment_status,
        s.payment_method, s.payment_date, s.discount, s.discount_type, s.training_access_id, s.observations,
        s.created_at, s.updated_at,
        p.name AS plan_type_name, p.color AS plan_type_color, f.name AS training_phase_name, f.color AS training_phase_color`

const studentJoins = "FROM students s LEFT JOIN plan_types p ON p.id = s.plan_type_id LEFT JOIN training_phases f ON f.id = s.training_phase_id"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func buildStudentWhere(filter models.StudentFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.PlanTypeID != "" {
		conditions = append(conditions, fmt.Sprintf("s.plan_type_id = $%d", len(args)+1))
		args = append(args, filter.PlanTypeID)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("s.payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}
	if filter.TrainingStatus != "" {
		conditions = append(conditions, fmt.Sprintf("s.training_status = $%d", len(args)+1))
		args = append(args, filter.TrainingStatus)
	}
	if filter.TrainingPhaseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.training_phase_id = $%d", len(args)+1))
		args = append(args, filter.TrainingPhaseID)
	}
	if filter.ExpiryFrom != nil {
		conditions = append(conditions, fmt.Sprintf("s.plan_expiry_date >= $%d", len(args)+1))
		args = append(args, *filter.ExpiryFrom)
	}
	if filter.ExpiryTo != nil {
		conditions = append(conditions, fmt.Sprintf("s.plan_expiry_date <= $%d", len(args)+1))
		args = append(args, *filter.ExpiryTo)
	}

	return fmt.Sprintf("%s WHERE %s", studentJoins, strings.Join(conditions, " AND ")), args
}

func studentOrder(filter models.StudentFilter) string {
	allowedSorts := map[string]string{
		"name":             "s.name",
		"plan_expiry_date": "s.plan_expiry_date",
		"created_at":       "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return column + " " + order
}

// List returns a page of students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base, args := buildStudentWhere(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", studentColumns, base, studentOrder(filter), size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(s.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student matching the filters without pagination.
func (r *StudentRepository) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	base, args := buildStudentWhere(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s", studentColumns, base, studentOrder(filter))

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", studentColumns, studentJoins)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, email, plan_type_id, plan_start_date, plan_expiry_date, training_start_date, training_expiry_date,
        training_phase_id, training_status, payment_status, payment_method, payment_date, discount, discount_type, training_access_id, observations, created_at, updated_at)
        VALUES (:id, :name, :email, :plan_type_id, :plan_start_date, :plan_expiry_date, :training_start_date, :training_expiry_date,
        :training_phase_id, :training_status, :payment_status, :payment_method, :payment_date, :discount, :discount_type, :training_access_id, :observations, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, plan_type_id = :plan_type_id, plan_start_date = :plan_start_date,
        plan_expiry_date = :plan_expiry_date, training_start_date = :training_start_date, training_expiry_date = :training_expiry_date,
        training_phase_id = :training_phase_id, training_status = :training_status, payment_status = :payment_status,
        payment_method = :payment_method, payment_date = :payment_date, discount = :discount, discount_type = :discount_type,
        training_access_id = :training_access_id, observations = :observations, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student permanently.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
