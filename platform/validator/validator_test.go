package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Address string `validate:"required,channel_address"`
	Body    string `validate:"notblank,max=10"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(sample{Address: "5551234567@c.us", Body: "hi"}))

	err := v.Struct(sample{Address: "123@g.us", Body: "   "})
	require.Error(t, err)

	details := Describe(err)
	assert.Equal(t, "channel_address", details["Address"])
	assert.Equal(t, "notblank", details["Body"])
}

func TestDescribeIncludesParam(t *testing.T) {
	v := New()
	err := v.Struct(sample{Address: "5551234567", Body: "this is far too long"})
	assert.Equal(t, "max=10", Describe(err)["Body"])
}
