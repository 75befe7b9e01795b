package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page/limit bounds shared by every list endpoint (users, suppliers, items,
// purchase requests). MaxLimit caps the page size a caller can request.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated pagination parameters. Offset is precomputed so
// repositories can pass it straight to gorm's Offset/Limit.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the query string. Out-of-range or
// non-numeric values fall back to the defaults rather than erroring, so a
// garbage ?page= never breaks a listing.
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
