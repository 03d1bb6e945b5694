package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Network string   `json:"network"`
	IDs     []string `json:"ids"`
	Count   int      `json:"count"`
}

func TestWriteJSON_NoFilter(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, sample{Network: "Ethereum", IDs: []string{"0x01"}, Count: 1}, "")
	require.NoError(t, err)

	var got sample
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Ethereum", got.Network)
	assert.Equal(t, []string{"0x01"}, got.IDs)
	assert.Contains(t, buf.String(), "\n  \"network\"", "output should be indented")
}

func TestWriteJSON_Filter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{
			name:   "field",
			filter: ".network",
			want:   []string{`"Ethereum"`},
		},
		{
			name:   "iterate",
			filter: ".ids[]",
			want:   []string{`"0x01"`, `"0x02"`},
		},
		{
			name:   "arithmetic",
			filter: ".count + 1",
			want:   []string{`3`},
		},
		{
			name:   "empty",
			filter: "empty",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeJSON(&buf, sample{Network: "Ethereum", IDs: []string{"0x01", "0x02"}, Count: 2}, tt.filter)
			require.NoError(t, err)

			var lines []string
			for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
				if len(line) > 0 {
					lines = append(lines, string(line))
				}
			}
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestWriteJSON_InvalidFilter(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, sample{}, ".network[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
	assert.Empty(t, buf.String())
}

func TestWriteJSON_FilterRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, sample{Network: "Ethereum"}, ".network | keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jq filter")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "-", summarize(nil))
	assert.Equal(t, "0xaa", summarize([]string{"0xaa"}))
	assert.Equal(t, "0xaa (+2)", summarize([]string{"0xaa", "0xbb", "0xcc"}))
}

func TestValueOr(t *testing.T) {
	empty := ""
	v := "0x10"
	assert.Equal(t, "none", valueOr(nil, "none"))
	assert.Equal(t, "none", valueOr(&empty, "none"))
	assert.Equal(t, "0x10", valueOr(&v, "none"))
}
