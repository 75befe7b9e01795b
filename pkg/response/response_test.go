package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccess(t *testing.T) {
	r := Success(http.StatusOK, map[string]int{"n": 1})
	assert.Equal(t, "success", r.Status)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Empty(t, r.Error)
	assert.Nil(t, r.Meta)
}

func TestError(t *testing.T) {
	r := Error(http.StatusNotFound, "not found")
	assert.Equal(t, "error", r.Status)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
	assert.Equal(t, "not found", r.Error)
	assert.Nil(t, r.Data)
}

func TestSuccessWithPagination(t *testing.T) {
	r := SuccessWithPagination(http.StatusOK, []int{1, 2, 3}, 2, 10, 25)
	assert.NotNil(t, r.Meta)
	assert.Equal(t, 2, r.Meta.Page)
	assert.Equal(t, 10, r.Meta.Limit)
	assert.Equal(t, int64(25), r.Meta.Total)
	assert.Equal(t, 3, r.Meta.TotalPages)

	exact := SuccessWithPagination(http.StatusOK, nil, 1, 10, 30)
	assert.Equal(t, 3, exact.Meta.TotalPages)

	empty := SuccessWithPagination(http.StatusOK, nil, 1, 10, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}
