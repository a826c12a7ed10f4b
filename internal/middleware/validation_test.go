package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("Could we talk about the rent?"))
	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", 10001)))
	assert.Error(t, ValidateMessageContent(string([]byte{0xff, 0xfe})))
}

func TestValidateIDs(t *testing.T) {
	id := uuid.New().String()
	assert.NoError(t, ValidateLeaseID(id))
	assert.NoError(t, ValidateOfferID(id))
	assert.Error(t, ValidateLeaseID("42"))
	assert.Error(t, ValidateOfferID("not-a-uuid"))
}
