package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder(t *testing.T) {
	w := newWhereBuilder()
	assert.Equal(t, "", w.sql())

	w.add("envelope_id", int64(7))
	w.add("token", "abc")

	assert.Equal(t, " WHERE envelope_id = $1 AND token = $2", w.sql())
	assert.Equal(t, []interface{}{int64(7), "abc"}, w.args)
}

func TestSetBuilder(t *testing.T) {
	s := newSetBuilder()
	s.add("status", "COMPLETED")
	s.add("inserted", true)

	assert.Equal(t, []string{"status = $1", "inserted = $2"}, s.columns)
	assert.Equal(t, []interface{}{"COMPLETED", true}, s.args)
}
