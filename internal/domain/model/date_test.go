package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	date := NewDate(2026, time.March, 14)
	data, err := json.Marshal(date)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-14"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-03-14"`), &parsed))
	assert.Equal(t, date.Time, parsed.Time)

	require.Error(t, json.Unmarshal([]byte(`"not-a-date"`), &parsed))
}

func TestExamDateOmittedWhenNil(t *testing.T) {
	exam := Exam{Name: "Algebra", Ects: 5, Attempt: 1}
	data, err := json.Marshal(exam)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "date")
	assert.NotContains(t, string(data), "grade")
}
