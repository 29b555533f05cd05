package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"examtracker/internal/common"
	"examtracker/internal/domain/model"
)

type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	FindByIDForUser(ctx context.Context, examID, userID int64) (*model.Exam, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Exam, error)
	Update(ctx context.Context, exam *model.Exam) error
	Delete(ctx context.Context, examID, userID int64) error

	AverageGrade(ctx context.Context, userID int64) (float64, error)
	TotalEcts(ctx context.Context, userID int64) (int, error)

	AddResource(ctx context.Context, resource *model.Resource) error
	ListResources(ctx context.Context, examID int64) ([]model.Resource, error)
	DeleteResource(ctx context.Context, resourceID, examID int64) error
}

type pgExamRepository struct {
	db *sql.DB
}

func NewPgExamRepository(db *sql.DB) ExamRepository {
	return &pgExamRepository{db: db}
}

func (r *pgExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	query := `INSERT INTO exams (name, ects, attempt, passed, date, grade, user_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		exam.Name, exam.Ects, exam.Attempt, exam.Passed,
		dateArg(exam.Date), gradeArg(exam.Grade), exam.UserID,
	).Scan(&exam.ID)
	if err != nil {
		return fmt.Errorf("pgExamRepository.Create: %w", err)
	}
	return nil
}

func (r *pgExamRepository) FindByIDForUser(ctx context.Context, examID, userID int64) (*model.Exam, error) {
	query := `SELECT id, name, ects, attempt, passed, date, grade, user_id
	          FROM exams WHERE id = $1 AND user_id = $2`
	exam, err := scanExam(r.db.QueryRowContext(ctx, query, examID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExamRepository.FindByIDForUser: %w", err)
	}
	return exam, nil
}

func (r *pgExamRepository) ListByUser(ctx context.Context, userID int64) ([]model.Exam, error) {
	query := `SELECT id, name, ects, attempt, passed, date, grade, user_id
	          FROM exams WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("pgExamRepository.ListByUser scan: %w", err)
		}
		exams = append(exams, *exam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListByUser rows: %w", err)
	}
	return exams, nil
}

func (r *pgExamRepository) Update(ctx context.Context, exam *model.Exam) error {
	query := `UPDATE exams
	          SET name = $1, ects = $2, attempt = $3, passed = $4, date = $5, grade = $6
	          WHERE id = $7 AND user_id = $8`
	result, err := r.db.ExecContext(ctx, query,
		exam.Name, exam.Ects, exam.Attempt, exam.Passed,
		dateArg(exam.Date), gradeArg(exam.Grade), exam.ID, exam.UserID,
	)
	if err != nil {
		return fmt.Errorf("pgExamRepository.Update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgExamRepository.Update rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes an exam and its resources in one transaction. Resources are
// cascade-owned by the exam.
func (r *pgExamRepository) Delete(ctx context.Context, examID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgExamRepository.Delete begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resources WHERE exam_id IN (SELECT id FROM exams WHERE id = $1 AND user_id = $2)`,
		examID, userID,
	); err != nil {
		return fmt.Errorf("pgExamRepository.Delete resources: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM exams WHERE id = $1 AND user_id = $2`, examID, userID)
	if err != nil {
		return fmt.Errorf("pgExamRepository.Delete exam: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgExamRepository.Delete rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgExamRepository.Delete commit: %w", err)
	}
	return nil
}

func (r *pgExamRepository) AverageGrade(ctx context.Context, userID int64) (float64, error) {
	query := `SELECT COALESCE(AVG(grade), 0) FROM exams WHERE user_id = $1 AND grade IS NOT NULL`
	var average float64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&average); err != nil {
		return 0, fmt.Errorf("pgExamRepository.AverageGrade: %w", err)
	}
	return average, nil
}

func (r *pgExamRepository) TotalEcts(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COALESCE(SUM(ects), 0) FROM exams WHERE user_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("pgExamRepository.TotalEcts: %w", err)
	}
	return total, nil
}

func (r *pgExamRepository) AddResource(ctx context.Context, resource *model.Resource) error {
	query := `INSERT INTO resources (exam_id, name) VALUES ($1, $2) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, resource.ExamID, resource.Name).Scan(&resource.ID)
	if err != nil {
		return fmt.Errorf("pgExamRepository.AddResource: %w", err)
	}
	return nil
}

func (r *pgExamRepository) ListResources(ctx context.Context, examID int64) ([]model.Resource, error) {
	query := `SELECT id, exam_id, name FROM resources WHERE exam_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, examID)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListResources: %w", err)
	}
	defer rows.Close()

	resources := []model.Resource{}
	for rows.Next() {
		var resource model.Resource
		if err := rows.Scan(&resource.ID, &resource.ExamID, &resource.Name); err != nil {
			return nil, fmt.Errorf("pgExamRepository.ListResources scan: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListResources rows: %w", err)
	}
	return resources, nil
}

func (r *pgExamRepository) DeleteResource(ctx context.Context, resourceID, examID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM resources WHERE id = $1 AND exam_id = $2`, resourceID, examID)
	if err != nil {
		return fmt.Errorf("pgExamRepository.DeleteResource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgExamRepository.DeleteResource rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExam(row rowScanner) (*model.Exam, error) {
	exam := &model.Exam{}
	var date sql.NullTime
	var grade sql.NullFloat64
	err := row.Scan(&exam.ID, &exam.Name, &exam.Ects, &exam.Attempt, &exam.Passed,
		&date, &grade, &exam.UserID)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		d := model.Date{Time: date.Time}
		exam.Date = &d
	}
	if grade.Valid {
		g := grade.Float64
		exam.Grade = &g
	}
	return exam, nil
}

func dateArg(date *model.Date) interface{} {
	if date == nil {
		return nil
	}
	return date.Time
}

func gradeArg(grade *float64) interface{} {
	if grade == nil {
		return nil
	}
	return *grade
}
