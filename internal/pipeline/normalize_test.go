package pipeline

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/correlation"
	"github.com/miradorstack/opsboard/internal/utils"
)

func TestNormalizeUsesBodyCodeAndDetails(t *testing.T) {
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return &Response{
			Status: http.StatusConflict,
			Body:   []byte(`{"message":"Deployment must be approved","code":"INVALID_STATE","details":{"status":"pending"}}`),
		}, nil
	}}
	corr := correlation.New()
	p := New(transport.Handle, NormalizeErrors(corr, nil))

	_, err := p.Do(context.Background(), NewRequest(http.MethodPost, "/api/deployments/d1/start", nil, nil))
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Deployment must be approved", pe.Message)
	assert.Equal(t, http.StatusConflict, pe.Status)
	assert.Equal(t, "INVALID_STATE", pe.Code)
	assert.Equal(t, map[string]any{"status": "pending"}, pe.Details)
	assert.Equal(t, "/api/deployments/d1/start", pe.Path)
	assert.Equal(t, corr.Get(), pe.CorrelationID)
	assert.False(t, pe.Timestamp.IsZero())
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestNormalizeFallsBackToErrorsAndStatusText(t *testing.T) {
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return &Response{Status: http.StatusBadRequest, Body: []byte(`{"errors":["title is required"]}`)}, nil
	}}
	p := New(transport.Handle, NormalizeErrors(correlation.New(), nil))

	_, err := p.Do(context.Background(), NewRequest(http.MethodPost, "/api/incidents", nil, nil))
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Bad Request", pe.Message)
	assert.Equal(t, CodeUnknown, pe.Code)
	assert.Equal(t, []any{"title is required"}, pe.Details)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestNormalizeUnknownStatusUsesGenericMessage(t *testing.T) {
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return &Response{Status: 599, Body: []byte("not json")}, nil
	}}
	p := New(transport.Handle, NormalizeErrors(correlation.New(), nil))

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Unexpected error", pe.Message)
	assert.Nil(t, pe.Details)
	assert.ErrorIs(t, err, utils.ErrServer)
}

func TestNormalizeTransportFailure(t *testing.T) {
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return nil, context.DeadlineExceeded
	}}
	p := New(transport.Handle, NormalizeErrors(correlation.New(), nil))

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Zero(t, pe.Status)
	assert.Equal(t, CodeUnknown, pe.Code)
	assert.ErrorIs(t, err, utils.ErrNotAvailable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNormalizePassesSuccess(t *testing.T) {
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return status(http.StatusNoContent), nil
	}}
	p := New(transport.Handle, NormalizeErrors(correlation.New(), nil))

	resp, err := p.Do(context.Background(), NewRequest(http.MethodDelete, "/api/incidents/1", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
}

func TestErrorKindMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want error
	}{
		{&Error{Status: http.StatusNotFound, Code: CodeUnknown}, utils.ErrNotFound},
		{&Error{Status: http.StatusUnauthorized, Code: CodeUnknown}, utils.ErrUnauthorized},
		{&Error{Status: http.StatusInternalServerError, Code: CodeUnknown}, utils.ErrServer},
		{&Error{Status: http.StatusTeapot, Code: CodeUnknown}, utils.ErrUnknown},
		{&Error{Status: http.StatusBadRequest, Code: "NOT_FOUND"}, utils.ErrNotFound},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.want, "status %d code %s", tc.err.Status, tc.err.Code)
	}
}
