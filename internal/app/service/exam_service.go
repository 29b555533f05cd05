package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"examtracker/internal/common"
	"examtracker/internal/domain/model"
	"examtracker/internal/domain/repository"
	"examtracker/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

const maxNameLength = 99

type ExamService struct {
	examRepo repository.ExamRepository
	cache    *redis.Client // nil disables aggregate caching
	log      *slog.Logger
}

func NewExamService(examRepo repository.ExamRepository, cache *redis.Client, log *slog.Logger) *ExamService {
	return &ExamService{examRepo: examRepo, cache: cache, log: log}
}

type CreateExamRequest struct {
	Name    string      `json:"name"`
	Ects    int         `json:"ects"`
	Attempt *int        `json:"attempt,omitempty"`
	Passed  *bool       `json:"passed,omitempty"`
	Date    *model.Date `json:"date,omitempty"`
	Grade   *float64    `json:"grade,omitempty"`
}

type UpdateExamRequest struct {
	Name    *string     `json:"name,omitempty"`
	Ects    *int        `json:"ects,omitempty"`
	Attempt *int        `json:"attempt,omitempty"`
	Passed  *bool       `json:"passed,omitempty"`
	Date    *model.Date `json:"date,omitempty"`
	Grade   *float64    `json:"grade,omitempty"`
}

type ResourceRequest struct {
	Name string `json:"name"`
}

func (s *ExamService) CreateExam(ctx context.Context, userID int64, req CreateExamRequest) (*model.Exam, error) {
	fields := map[string]string{}
	validateName(fields, req.Name)
	if req.Ects < 1 {
		fields["ects"] = "must be greater than or equal to 1"
	}
	if req.Attempt != nil && *req.Attempt < 1 {
		fields["attempt"] = "must be greater than or equal to 1"
	}
	validateGrade(fields, req.Grade)
	if err := common.NewValidationError(fields); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		Name:      req.Name,
		Ects:      req.Ects,
		Attempt:   1,
		UserID:    userID,
		Date:      req.Date,
		Grade:     req.Grade,
		Resources: []model.Resource{},
	}
	if req.Attempt != nil {
		exam.Attempt = *req.Attempt
	}
	if req.Passed != nil {
		exam.Passed = *req.Passed
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	s.invalidateAggregates(ctx, userID)
	return exam, nil
}

func (s *ExamService) GetExam(ctx context.Context, userID, examID int64) (*model.Exam, error) {
	exam, err := s.examRepo.FindByIDForUser(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	resources, err := s.examRepo.ListResources(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	exam.Resources = resources
	return exam, nil
}

func (s *ExamService) ListExams(ctx context.Context, userID int64) ([]model.Exam, error) {
	exams, err := s.examRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range exams {
		resources, err := s.examRepo.ListResources(ctx, exams[i].ID)
		if err != nil {
			return nil, err
		}
		exams[i].Resources = resources
	}
	return exams, nil
}

// UpdateExam applies a partial patch: absent fields keep their stored value,
// identity fields are immutable.
func (s *ExamService) UpdateExam(ctx context.Context, userID, examID int64, req UpdateExamRequest) (*model.Exam, error) {
	fields := map[string]string{}
	if req.Name != nil {
		validateName(fields, *req.Name)
	}
	if req.Ects != nil && *req.Ects < 1 {
		fields["ects"] = "must be greater than or equal to 1"
	}
	if req.Attempt != nil && *req.Attempt < 1 {
		fields["attempt"] = "must be greater than or equal to 1"
	}
	validateGrade(fields, req.Grade)
	if err := common.NewValidationError(fields); err != nil {
		return nil, err
	}

	exam, err := s.examRepo.FindByIDForUser(ctx, examID, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		exam.Name = *req.Name
	}
	if req.Ects != nil {
		exam.Ects = *req.Ects
	}
	if req.Attempt != nil {
		exam.Attempt = *req.Attempt
	}
	if req.Passed != nil {
		exam.Passed = *req.Passed
	}
	if req.Date != nil {
		exam.Date = req.Date
	}
	if req.Grade != nil {
		exam.Grade = req.Grade
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	s.invalidateAggregates(ctx, userID)
	return s.GetExam(ctx, userID, examID)
}

func (s *ExamService) DeleteExam(ctx context.Context, userID, examID int64) error {
	if err := s.examRepo.Delete(ctx, examID, userID); err != nil {
		return err
	}
	s.invalidateAggregates(ctx, userID)
	return nil
}

func (s *ExamService) AverageGrade(ctx context.Context, userID int64) (*model.ExamAverage, error) {
	if value, ok := s.cachedFloat(ctx, averageKey(userID)); ok {
		return &model.ExamAverage{Average: value}, nil
	}
	average, err := s.examRepo.AverageGrade(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheFloat(ctx, averageKey(userID), average)
	return &model.ExamAverage{Average: average}, nil
}

func (s *ExamService) TotalEcts(ctx context.Context, userID int64) (*model.ExamTotalEcts, error) {
	if value, ok := s.cachedFloat(ctx, totalEctsKey(userID)); ok {
		return &model.ExamTotalEcts{TotalEcts: int(value)}, nil
	}
	total, err := s.examRepo.TotalEcts(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheFloat(ctx, totalEctsKey(userID), float64(total))
	return &model.ExamTotalEcts{TotalEcts: total}, nil
}

func (s *ExamService) AddResource(ctx context.Context, userID, examID int64, req ResourceRequest) (*model.Resource, error) {
	fields := map[string]string{}
	validateName(fields, req.Name)
	if err := common.NewValidationError(fields); err != nil {
		return nil, err
	}

	// Ownership check before touching resources
	if _, err := s.examRepo.FindByIDForUser(ctx, examID, userID); err != nil {
		return nil, err
	}

	resource := &model.Resource{ExamID: examID, Name: req.Name}
	if err := s.examRepo.AddResource(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	return resource, nil
}

func (s *ExamService) DeleteResource(ctx context.Context, userID, examID, resourceID int64) error {
	if _, err := s.examRepo.FindByIDForUser(ctx, examID, userID); err != nil {
		return err
	}
	return s.examRepo.DeleteResource(ctx, resourceID, examID)
}

func validateName(fields map[string]string, name string) {
	if name == "" {
		fields["name"] = "must not be empty"
		return
	}
	if len(name) > maxNameLength {
		fields["name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
}

func validateGrade(fields map[string]string, grade *float64) {
	if grade != nil && (*grade < 1.0 || *grade > 5.0) {
		fields["grade"] = "must be between 1.0 and 5.0"
	}
}

func averageKey(userID int64) string {
	return "exam:average:" + strconv.FormatInt(userID, 10)
}

func totalEctsKey(userID int64) string {
	return "exam:total_ects:" + strconv.FormatInt(userID, 10)
}

func (s *ExamService) cachedFloat(ctx context.Context, key string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func (s *ExamService) cacheFloat(ctx context.Context, key string, value float64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), config.AppConfig.AggregateCacheTTL).Err(); err != nil {
		s.log.WarnContext(ctx, "failed to cache aggregate", "key", key, "error", err)
	}
}

func (s *ExamService) invalidateAggregates(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, averageKey(userID), totalEctsKey(userID)).Err(); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate aggregate cache", "user_id", userID, "error", err)
	}
}
