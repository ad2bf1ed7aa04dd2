package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `{
  "name": "Friday",
  "players": [
    {"id": "a", "display_name": "Tanaka", "seat_order": 1},
    {"id": "b", "display_name": "Sato", "seat_order": 2},
    {"id": "c", "display_name": "Suzuki", "seat_order": 3},
    {"id": "d", "display_name": "Takahashi", "seat_order": 4}
  ],
  "rounds": [
    {"id": "r1", "seq": 1, "scores": [
      {"player_id": "a", "raw_score": 45000},
      {"player_id": "b", "raw_score": 28000},
      {"player_id": "c", "raw_score": 15000},
      {"player_id": "d", "raw_score": 12000}
    ]}
  ],
  "expenses": []
}`

func TestRun_Stdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("-", "", strings.NewReader(snapshot), &out))

	report := out.String()
	assert.True(t, strings.HasPrefix(report, "[Mahjong settlement] Friday\n"))
	assert.Contains(t, report, "  Tanaka: +45.0pt / +4,500 yen")
	assert.Contains(t, report, "  Takahashi: -28.0pt / -2,800 yen")
	assert.Contains(t, report, "  Takahashi -> Tanaka: 2,800 yen")
}

func TestRun_FileAndNameOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(path, "Saturday", nil, &out))
	assert.True(t, strings.HasPrefix(out.String(), "[Mahjong settlement] Saturday\n"))
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run("-", "", strings.NewReader("{"), &out))

	unknown := strings.Replace(snapshot, `"player_id": "d"`, `"player_id": "zz"`, 1)
	assert.Error(t, run("-", "", strings.NewReader(unknown), &out))
}
