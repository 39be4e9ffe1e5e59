package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_ScanNilYieldsEmptyMap(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestJSONMap_ScanAcceptsBytesAndStrings(t *testing.T) {
	var fromBytes JSONMap
	require.NoError(t, fromBytes.Scan([]byte(`{"runId":"run-abc"}`)))
	assert.Equal(t, "run-abc", fromBytes["runId"])

	var fromString JSONMap
	require.NoError(t, fromString.Scan(`{"folder":"2024-01-02_ceo_report"}`))
	assert.Equal(t, "2024-01-02_ceo_report", fromString["folder"])
}

func TestJSONMap_ScanRejectsUnknownSourceType(t *testing.T) {
	var m JSONMap
	assert.Error(t, m.Scan(42))
}

func TestJSONMap_ValueRoundTrip(t *testing.T) {
	m := JSONMap{"runId": "run-abc", "folder": "archive/acme"}
	value, err := m.Value()
	require.NoError(t, err)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, m, decoded)
}
