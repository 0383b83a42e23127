package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/cannerai/cannerd/domain"
	"github.com/cannerai/cannerd/services"
)

// --- Mock repository ---

type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) List(ctx context.Context, userID, search string) ([]*domain.CannedResponse, error) {
	args := m.Called(ctx, userID, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CannedResponse), args.Error(1)
}

func (m *MockResponseRepository) GetByID(ctx context.Context, id, userID string) (*domain.CannedResponse, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CannedResponse), args.Error(1)
}

func (m *MockResponseRepository) Create(ctx context.Context, response *domain.CannedResponse) error {
	args := m.Called(ctx, response)
	if response.ID.IsZero() {
		response.ID = bson.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockResponseRepository) Update(ctx context.Context, id, userID string, update domain.ResponseUpdate) (*domain.CannedResponse, error) {
	args := m.Called(ctx, id, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CannedResponse), args.Error(1)
}

func (m *MockResponseRepository) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// --- Fixture ---

type crudFixture struct {
	echo   *echo.Echo
	repo   *MockResponseRepository
	tokens *services.TokenService
}

func newCRUDFixture(t *testing.T) *crudFixture {
	t.Helper()
	repo := new(MockResponseRepository)
	tokens := services.NewTokenService(testJWTSecret)

	restAPI := NewAPI(Options{
		Tokens:    tokens,
		Responses: repo,
		DBPing:    func(context.Context) error { return nil },
	})

	e := echo.New()
	restAPI.RegisterRoutes(e)
	return &crudFixture{echo: e, repo: repo, tokens: tokens}
}

func (f *crudFixture) request(t *testing.T, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		token, err := f.tokens.Issue(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestListResponses_RequiresAuth(t *testing.T) {
	f := newCRUDFixture(t)

	rec := f.request(t, http.MethodGet, "/api/responses", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No authorization header", decodeBody(t, rec)["error"])
}

func TestListResponses(t *testing.T) {
	f := newCRUDFixture(t)
	stored := []*domain.CannedResponse{
		{ID: bson.NewObjectID(), Title: "Intro", Content: "Hi there", Tags: []string{"greeting"}, UserID: "u1"},
	}
	f.repo.On("List", mock.Anything, "u1", "").Return(stored, nil)

	rec := f.request(t, http.MethodGet, "/api/responses", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Intro", body[0]["title"])
	assert.Equal(t, stored[0].ID.Hex(), body[0]["id"])
	f.repo.AssertExpectations(t)
}

func TestListResponses_SearchForwarded(t *testing.T) {
	f := newCRUDFixture(t)
	f.repo.On("List", mock.Anything, "u1", "greeting").
		Return([]*domain.CannedResponse{}, nil)

	rec := f.request(t, http.MethodGet, "/api/responses?search=greeting", "", "u1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	f.repo.AssertExpectations(t)
}

func TestTemplatesAlias(t *testing.T) {
	f := newCRUDFixture(t)
	f.repo.On("List", mock.Anything, "u1", "").Return([]*domain.CannedResponse{}, nil)

	rec := f.request(t, http.MethodGet, "/api/templates", "", "u1")
	assert.Equal(t, http.StatusOK, rec.Code)
	f.repo.AssertExpectations(t)
}

func TestCreateResponse(t *testing.T) {
	f := newCRUDFixture(t)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.CannedResponse) bool {
		return r.Title == "Intro" && r.Content == "Hi" && r.UserID == "u1"
	})).Return(nil)

	rec := f.request(t, http.MethodPost, "/api/responses", `{"title":"Intro","content":"Hi","tags":["a"]}`, "u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Intro", body["title"])
	assert.Equal(t, "u1", body["user_id"])
	assert.NotEmpty(t, body["id"])
	f.repo.AssertExpectations(t)
}

func TestCreateResponse_MissingFields(t *testing.T) {
	f := newCRUDFixture(t)

	rec := f.request(t, http.MethodPost, "/api/responses", `{"title":"Intro"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title and content are required", decodeBody(t, rec)["error"])
}

func TestGetResponse_NotFound(t *testing.T) {
	f := newCRUDFixture(t)
	id := bson.NewObjectID().Hex()
	f.repo.On("GetByID", mock.Anything, id, "u1").Return(nil, domain.ErrResponseNotFound)

	rec := f.request(t, http.MethodGet, "/api/responses/"+id, "", "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Response not found", decodeBody(t, rec)["error"])
}

func TestGetResponse_InvalidID(t *testing.T) {
	f := newCRUDFixture(t)
	f.repo.On("GetByID", mock.Anything, "not-an-id", "u1").Return(nil, domain.ErrInvalidResponseID)

	rec := f.request(t, http.MethodGet, "/api/responses/not-an-id", "", "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid response ID", decodeBody(t, rec)["error"])
}

func TestUpdateResponse(t *testing.T) {
	f := newCRUDFixture(t)
	id := bson.NewObjectID()
	updated := &domain.CannedResponse{ID: id, Title: "New title", Content: "Hi", UserID: "u1"}
	f.repo.On("Update", mock.Anything, id.Hex(), "u1", mock.MatchedBy(func(u domain.ResponseUpdate) bool {
		return u.Title != nil && *u.Title == "New title" && u.Content == nil && u.Tags == nil
	})).Return(updated, nil)

	rec := f.request(t, http.MethodPatch, "/api/responses/"+id.Hex(), `{"title":"New title"}`, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New title", decodeBody(t, rec)["title"])
	f.repo.AssertExpectations(t)
}

func TestUpdateResponse_NoFields(t *testing.T) {
	f := newCRUDFixture(t)

	rec := f.request(t, http.MethodPatch, "/api/responses/"+bson.NewObjectID().Hex(), `{}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data provided", decodeBody(t, rec)["error"])
}

func TestDeleteResponse(t *testing.T) {
	f := newCRUDFixture(t)
	id := bson.NewObjectID().Hex()
	f.repo.On("Delete", mock.Anything, id, "u1").Return(nil)

	rec := f.request(t, http.MethodDelete, "/api/responses/"+id, "", "u1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	f.repo.AssertExpectations(t)
}

func TestDeleteResponse_NotFound(t *testing.T) {
	f := newCRUDFixture(t)
	id := bson.NewObjectID().Hex()
	f.repo.On("Delete", mock.Anything, id, "u1").Return(domain.ErrResponseNotFound)

	rec := f.request(t, http.MethodDelete, "/api/responses/"+id, "", "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
