package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"examtracker/internal/api/middleware"
	"examtracker/internal/app/service"
	"examtracker/internal/common"

	"github.com/go-chi/chi/v5"
)

type ExamHandler struct {
	examService *service.ExamService
}

func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

func (h *ExamHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createExam)
	r.Get("/", h.listExams)
	r.Get("/average", h.averageGrade)
	r.Get("/total-ects", h.totalEcts)
	r.Get("/{examID}", h.getExam)
	r.Put("/{examID}", h.updateExam)
	r.Delete("/{examID}", h.deleteExam)
	r.Post("/{examID}/resources", h.addResource)
	r.Delete("/{examID}/resources/{resourceID}", h.deleteResource)
}

func (h *ExamHandler) createExam(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}

	var req service.CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	exam, err := h.examService.CreateExam(r.Context(), user.ID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, exam)
}

func (h *ExamHandler) listExams(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}

	exams, err := h.examService.ListExams(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, exams)
}

func (h *ExamHandler) getExam(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}
	examID, err := pathID(r, "examID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid exam id")
		return
	}

	exam, err := h.examService.GetExam(r.Context(), user.ID, examID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, exam)
}

func (h *ExamHandler) updateExam(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}
	examID, err := pathID(r, "examID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid exam id")
		return
	}

	var req service.UpdateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	exam, err := h.examService.UpdateExam(r.Context(), user.ID, examID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, exam)
}

func (h *ExamHandler) deleteExam(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}
	examID, err := pathID(r, "examID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid exam id")
		return
	}

	if err := h.examService.DeleteExam(r.Context(), user.ID, examID); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExamHandler) averageGrade(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}

	average, err := h.examService.AverageGrade(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, average)
}

func (h *ExamHandler) totalEcts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}

	total, err := h.examService.TotalEcts(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, total)
}

func (h *ExamHandler) addResource(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}
	examID, err := pathID(r, "examID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid exam id")
		return
	}

	var req service.ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	resource, err := h.examService.AddResource(r.Context(), user.ID, examID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resource)
}

func (h *ExamHandler) deleteResource(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
		return
	}
	examID, err := pathID(r, "examID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid exam id")
		return
	}
	resourceID, err := pathID(r, "resourceID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid resource id")
		return
	}

	if err := h.examService.DeleteResource(r.Context(), user.ID, examID, resourceID); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
