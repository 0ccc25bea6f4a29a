package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spinwheel/internal/app"
)

const maxPageSize = 100

type Paginated[T any] struct {
	Count    int64  `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// pageParams reads page and size from the query, answering 400 itself on bad input.
func pageParams(c *gin.Context) (page int, size int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	if size < 1 || size > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.New("maximum size is 100").Error()})
		return 0, 0, false
	}
	return page, size, true
}

func paginate[T any](path string, page int, size int, total int64, results []T) Paginated[T] {
	p := Paginated[T]{Count: total, Results: results}
	if p.Results == nil {
		p.Results = []T{}
	}
	if total > int64(page*size) {
		p.Next = fmt.Sprintf("%s/?page=%d&size=%d", app.RemoveTrailingSlash(path), page+1, size)
	}
	if page > 1 {
		p.Previous = fmt.Sprintf("%s/?page=%d&size=%d", app.RemoveTrailingSlash(path), page-1, size)
	}
	return p
}
