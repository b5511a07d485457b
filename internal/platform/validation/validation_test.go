package validation

import (
	"testing"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Code  string   `json:"code" validate:"required,max=5"`
	Type  string   `json:"type" validate:"required,oneof=asset liability"`
	Items []string `json:"items" validate:"min=2"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Code: "1100", Type: "asset", Items: []string{"a", "b"}}))
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(sample{Code: "toolong", Type: "income"})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "code must be at most 5")
	assert.Contains(t, err.Error(), "type must be one of [asset liability]")
	assert.Contains(t, err.Error(), "items must be at least 2")
}
