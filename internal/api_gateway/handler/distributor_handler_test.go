package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/distributor-bonus-ledger/internal/domain/distributor"
)

func TestDistributorHandler_Search(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBonusService)
		handler := NewDistributorHandler(testLogger(), mockService)
		mockService.On("SearchDistributors", mock.Anything, "ada", 0).Return([]distributor.Distributor{
			{ID: "D-1", Name: "Ada", GroupKey: "DPC-A"},
		}, nil)

		router := setupTestRouter()
		router.GET("/distributors", handler.Search)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/distributors?q=ada", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode[[]distributor.Distributor](t, w)
		assert.Equal(t, []distributor.Distributor{{ID: "D-1", Name: "Ada", GroupKey: "DPC-A"}}, body.Data)
	})

	t.Run("No match is an empty list", func(t *testing.T) {
		mockService := new(MockBonusService)
		handler := NewDistributorHandler(testLogger(), mockService)
		mockService.On("SearchDistributors", mock.Anything, "zz", 5).Return(nil, nil)

		router := setupTestRouter()
		router.GET("/distributors", handler.Search)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/distributors?q=zz&limit=5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("Store failure", func(t *testing.T) {
		mockService := new(MockBonusService)
		handler := NewDistributorHandler(testLogger(), mockService)
		mockService.On("SearchDistributors", mock.Anything, "ada", 0).Return(nil, errors.New("db down"))

		router := setupTestRouter()
		router.GET("/distributors", handler.Search)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/distributors?q=ada", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDistributorHandler_Groups(t *testing.T) {
	mockService := new(MockBonusService)
	handler := NewDistributorHandler(testLogger(), mockService)
	mockService.On("ListGroups", mock.Anything, salesUser).Return([]distributor.Group{
		{Code: "DPC-A", Name: "North", Department: "Sales"},
	}, nil)

	router := setupTestRouter()
	router.GET("/groups", handler.Groups)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newSalesRequest(http.MethodGet, "/groups"))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[[]distributor.Group](t, w)
	assert.Len(t, body.Data, 1)
	mockService.AssertExpectations(t)
}
