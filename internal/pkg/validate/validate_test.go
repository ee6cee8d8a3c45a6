package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Email string `json:"customerEmail" validate:"required,email"`
	Limit int    `json:"limit" validate:"gte=0"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(contact{Email: "a@x.com"}))
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(contact{Email: "nope", Limit: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'contact.customerEmail' failed 'email'")
	assert.Contains(t, err.Error(), "field 'contact.limit' failed 'gte'")
}
