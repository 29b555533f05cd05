package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"examtracker/internal/app/service"
	"examtracker/internal/common"
	"examtracker/internal/common/security"
	"examtracker/internal/domain/model"
	"examtracker/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserRepository struct {
	users  map[string]*model.User
	nextID int64
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: map[string]*model.User{}, nextID: 1}
}

func (r *memUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, exists := r.users[user.Username]; exists {
		return fmt.Errorf("duplicate username: %w", common.ErrConflict)
	}
	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.users[user.Username] = &stored
	return nil
}

func (r *memUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, exists := r.users[username]
	if !exists {
		return nil, common.ErrNotFound
	}
	found := *user
	return &found, nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			found := *user
			return &found, nil
		}
	}
	return nil, common.ErrNotFound
}

type memExamRepository struct {
	exams          map[int64]*model.Exam
	resources      map[int64]*model.Resource
	nextExamID     int64
	nextResourceID int64
}

func newMemExamRepository() *memExamRepository {
	return &memExamRepository{
		exams:          map[int64]*model.Exam{},
		resources:      map[int64]*model.Resource{},
		nextExamID:     1,
		nextResourceID: 1,
	}
}

func (r *memExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	exam.ID = r.nextExamID
	r.nextExamID++
	stored := *exam
	r.exams[exam.ID] = &stored
	return nil
}

func (r *memExamRepository) FindByIDForUser(ctx context.Context, examID, userID int64) (*model.Exam, error) {
	exam, exists := r.exams[examID]
	if !exists || exam.UserID != userID {
		return nil, common.ErrNotFound
	}
	found := *exam
	return &found, nil
}

func (r *memExamRepository) ListByUser(ctx context.Context, userID int64) ([]model.Exam, error) {
	exams := []model.Exam{}
	for id := int64(1); id < r.nextExamID; id++ {
		if exam, exists := r.exams[id]; exists && exam.UserID == userID {
			exams = append(exams, *exam)
		}
	}
	return exams, nil
}

func (r *memExamRepository) Update(ctx context.Context, exam *model.Exam) error {
	stored, exists := r.exams[exam.ID]
	if !exists || stored.UserID != exam.UserID {
		return common.ErrNotFound
	}
	updated := *exam
	r.exams[exam.ID] = &updated
	return nil
}

func (r *memExamRepository) Delete(ctx context.Context, examID, userID int64) error {
	exam, exists := r.exams[examID]
	if !exists || exam.UserID != userID {
		return common.ErrNotFound
	}
	delete(r.exams, examID)
	return nil
}

func (r *memExamRepository) AverageGrade(ctx context.Context, userID int64) (float64, error) {
	sum, count := 0.0, 0
	for _, exam := range r.exams {
		if exam.UserID == userID && exam.Grade != nil {
			sum += *exam.Grade
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

func (r *memExamRepository) TotalEcts(ctx context.Context, userID int64) (int, error) {
	total := 0
	for _, exam := range r.exams {
		if exam.UserID == userID {
			total += exam.Ects
		}
	}
	return total, nil
}

func (r *memExamRepository) AddResource(ctx context.Context, resource *model.Resource) error {
	resource.ID = r.nextResourceID
	r.nextResourceID++
	stored := *resource
	r.resources[resource.ID] = &stored
	return nil
}

func (r *memExamRepository) ListResources(ctx context.Context, examID int64) ([]model.Resource, error) {
	resources := []model.Resource{}
	for id := int64(1); id < r.nextResourceID; id++ {
		if resource, exists := r.resources[id]; exists && resource.ExamID == examID {
			resources = append(resources, *resource)
		}
	}
	return resources, nil
}

func (r *memExamRepository) DeleteResource(ctx context.Context, resourceID, examID int64) error {
	resource, exists := r.resources[resourceID]
	if !exists || resource.ExamID != examID {
		return common.ErrNotFound
	}
	delete(r.resources, resourceID)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTKey:     []byte("test-signing-key"),
		JWTExp:     time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	security.InitJWT()

	userRepo := newMemUserRepository()
	examRepo := newMemExamRepository()
	authService := service.NewAuthService(userRepo, slog.Default())
	examService := service.NewExamService(examRepo, nil, slog.Default())

	server := httptest.NewServer(NewRouter(authService, examService, userRepo))
	t.Cleanup(server.Close)
	return server
}

func register(t *testing.T, server *httptest.Server, username, password string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp, err := http.Post(server.URL+"/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, server *httptest.Server, username, password string) *http.Response {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := http.PostForm(server.URL+"/auth/token", form)
	require.NoError(t, err)
	return resp
}

func authedRequest(t *testing.T, method, target, token, body string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestRegisterLoginMeScenario(t *testing.T) {
	server := newTestServer(t)

	// Register alice
	resp := register(t, server, "alice", "pw123")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var createdUsername string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&createdUsername))
	resp.Body.Close()
	assert.Equal(t, "alice", createdUsername)

	// Duplicate registration conflicts
	resp = register(t, server, "alice", "other")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Login yields a bearer token
	resp = login(t, server, "alice", "pw123")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokenResp service.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	resp.Body.Close()
	assert.Equal(t, "bearer", tokenResp.TokenType)
	require.NotEmpty(t, tokenResp.AccessToken)

	// /users/me returns the current user's profile
	meResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/auth/users/me", tokenResp.AccessToken, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	var me model.User
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
	meResp.Body.Close()
	assert.Equal(t, "alice", me.Username)

	// A truncated token is rejected with a bearer challenge
	truncated := tokenResp.AccessToken[:len(tokenResp.AccessToken)-1]
	badResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/auth/users/me", truncated, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
	assert.Equal(t, "Bearer", badResp.Header.Get("WWW-Authenticate"))
	badResp.Body.Close()
}

func TestLoginFailureChallenges(t *testing.T) {
	server := newTestServer(t)

	resp := register(t, server, "alice", "pw123")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	for _, creds := range [][2]string{{"alice", "wrong"}, {"nouser", "anything"}} {
		resp := login(t, server, creds[0], creds[1])
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		resp.Body.Close()
	}
}

func TestExamEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp := register(t, server, "alice", "pw123")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = login(t, server, "alice", "pw123")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokenResp service.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	resp.Body.Close()
	token := tokenResp.AccessToken

	// Unauthenticated access is rejected
	plainResp, err := http.Get(server.URL + "/exams")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, plainResp.StatusCode)
	plainResp.Body.Close()

	// Validation failures return 422 with per-field details
	invalidResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/exams", token,
		`{"name":"","ects":0,"grade":6.0}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, invalidResp.StatusCode)
	var errResp common.ErrorResponse
	require.NoError(t, json.NewDecoder(invalidResp.Body).Decode(&errResp))
	invalidResp.Body.Close()
	assert.Contains(t, errResp.Details, "name")
	assert.Contains(t, errResp.Details, "ects")
	assert.Contains(t, errResp.Details, "grade")

	// Create a valid exam
	createResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/exams", token,
		`{"name":"Algebra","ects":5,"grade":2.3,"date":"2026-03-14"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)
	var exam model.Exam
	require.NoError(t, json.NewDecoder(createResp.Body).Decode(&exam))
	createResp.Body.Close()
	assert.Equal(t, 1, exam.Attempt)
	assert.False(t, exam.Passed)
	require.NotNil(t, exam.Date)
	assert.Equal(t, "2026-03-14", exam.Date.String())

	// Partial update
	updateResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPut,
		fmt.Sprintf("%s/exams/%d", server.URL, exam.ID), token, `{"passed":true}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, updateResp.StatusCode)
	var updated model.Exam
	require.NoError(t, json.NewDecoder(updateResp.Body).Decode(&updated))
	updateResp.Body.Close()
	assert.True(t, updated.Passed)
	assert.Equal(t, "Algebra", updated.Name)

	// Aggregates
	avgResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/exams/average", token, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, avgResp.StatusCode)
	var average model.ExamAverage
	require.NoError(t, json.NewDecoder(avgResp.Body).Decode(&average))
	avgResp.Body.Close()
	assert.InDelta(t, 2.3, average.Average, 0.0001)

	ectsResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/exams/total-ects", token, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, ectsResp.StatusCode)
	var total model.ExamTotalEcts
	require.NoError(t, json.NewDecoder(ectsResp.Body).Decode(&total))
	ectsResp.Body.Close()
	assert.Equal(t, 5, total.TotalEcts)

	// Attach a resource, then delete everything
	resResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost,
		fmt.Sprintf("%s/exams/%d/resources", server.URL, exam.ID), token, `{"name":"Lecture notes"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resResp.StatusCode)
	var resource model.Resource
	require.NoError(t, json.NewDecoder(resResp.Body).Decode(&resource))
	resResp.Body.Close()

	deleteResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodDelete,
		fmt.Sprintf("%s/exams/%d", server.URL, exam.ID), token, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, deleteResp.StatusCode)
	deleteResp.Body.Close()

	missingResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet,
		fmt.Sprintf("%s/exams/%d", server.URL, exam.ID), token, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
	missingResp.Body.Close()
}
