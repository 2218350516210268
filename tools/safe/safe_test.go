package safe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	n, s := 3, "SG"
	assert.Equal(t, 3, DefaultInt(&n, 5))
	assert.Equal(t, 5, DefaultInt(nil, 5))
	assert.Equal(t, "SG", DefaultString(&s, ""))
	assert.Equal(t, "", DefaultString(nil, ""))
}

func TestMustNotNil(t *testing.T) {
	var p *int
	assert.Panics(t, func() { MustNotNil(p, "p") })
	assert.Panics(t, func() { MustNotNil(nil, "nil") })
	assert.NotPanics(t, func() { MustNotNil(1, "int") })
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		panic("boom")
	}
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
