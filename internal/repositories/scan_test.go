package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_BuildsPlaceholders(t *testing.T) {
	var f filter
	f.add("id = ?", int64(3))
	f.add("(name ILIKE ? OR company ILIKE ?)", "%a%", "%a%")
	paging := f.page(0, -5, 50)

	assert.Equal(t, " WHERE id = $1 AND (name ILIKE $2 OR company ILIKE $3)", f.where())
	assert.Equal(t, " LIMIT $4 OFFSET $5", paging)
	assert.Equal(t, []interface{}{int64(3), "%a%", "%a%", 50, 0}, f.args)
}

func TestFilter_Empty(t *testing.T) {
	var f filter
	assert.Equal(t, "", f.where())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%solar%`, likePattern("  solar "))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}
