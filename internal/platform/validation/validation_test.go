package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerRequest struct {
	UUID string `json:"uuid" validate:"required,uuid"`
}

type conceptRequest struct {
	Name     string          `json:"name" validate:"required"`
	DataType string          `json:"dataType" validate:"omitempty,oneof=Coded Numeric Text"`
	Order    int             `json:"order" validate:"gte=0"`
	Answers  []answerRequest `json:"answers" validate:"dive"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(conceptRequest{Name: "Weight", DataType: "Numeric"})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(conceptRequest{DataType: "Blob", Order: -1})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "dataType must be one of [Coded, Numeric, Text]")
	assert.Contains(t, err.Error(), "order must be greater than or equal to 0")
}

func TestStruct_NestedNamespace(t *testing.T) {
	err := Struct(conceptRequest{Name: "Blood group", Answers: []answerRequest{{UUID: "nope"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answers[0].uuid must be a valid uuid")
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("save concept: %w", Errorf("name %q already used", "Weight"))
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("connection refused")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	orig := Errorf("x")
	assert.Same(t, orig, Wrap(orig))

	wrapped := Wrap(errors.New("answer concept missing"))
	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, "answer concept missing", wrapped.Error())
}
