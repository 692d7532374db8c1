package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Skipped string `db:"-"`
	NoTag   string
	Lat     *float64 `db:"latitude"`
	hidden  string   `db:"hidden"`
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "latitude"}, Columns(row{}))
	assert.Equal(t, []string{"id", "name", "latitude"}, Columns(&row{}))
}

func TestColumnMap(t *testing.T) {
	lat := 27.7
	r := &row{ID: "abc", Name: "Sita", Lat: &lat, hidden: "x"}

	m := ColumnMap(r, "id")

	require.Len(t, m, 2)
	assert.Equal(t, "Sita", m["name"])
	assert.Equal(t, &lat, m["latitude"])
	assert.NotContains(t, m, "id")
}

func TestColumnsPanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() { Columns(42) })
}

func TestNanoID(t *testing.T) {
	a, b := NanoID(), NanoID()
	assert.Len(t, a, IDSize)
	assert.NotEqual(t, a, b)
}

func TestNilIfEmpty(t *testing.T) {
	assert.Nil(t, NilIfEmpty("   "))
	assert.Equal(t, "Pokhara", *NilIfEmpty(" Pokhara "))
}
