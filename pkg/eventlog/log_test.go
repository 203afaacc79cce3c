package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func TestLogWritesOneJSONLinePerEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	l, err := Open(path, DefaultRotationThreshold)
	require.NoError(t, err, "Open failed")
	defer l.Close()

	require.NoError(t, l.Log("connection", "opened", map[string]interface{}{"peer": "10.0.0.1:5555"}))
	require.NoError(t, l.Log("connection", "closed", map[string]interface{}{"peer": "10.0.0.1:5555"}))

	f, err := os.Open(path)
	require.NoError(t, err, "failed to reopen log")
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry), "line 1 is not valid JSON")
	assert.Equal(t, "opened", entry["event"])
	assert.Equal(t, "connection", entry["type"])
	assert.Contains(t, entry, "timestamp")
}

func TestLogRendersBSONDocumentAsPlainJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	l, err := Open(path, DefaultRotationThreshold)
	require.NoError(t, err, "Open failed")
	defer l.Close()

	doc, err := bson.Marshal(bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err, "failed to build doc")

	require.NoError(t, l.Log("query", "decoded", map[string]interface{}{"query": bsoncore.Document(doc)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read log")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &entry), "logged line is not valid JSON")

	query, ok := entry["query"].(map[string]interface{})
	require.Truef(t, ok, "expected query field to render as an object, got %T", entry["query"])
	assert.Equal(t, float64(1), query["ping"])
}

func TestRotationArchivesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	l, err := Open(path, 1) // rotate after the very first write
	require.NoError(t, err, "Open failed")
	defer l.Close()

	require.NoError(t, l.Log("test", "first", nil))
	require.NoError(t, l.Log("test", "second", nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "failed to list dir")
	var gz int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".gz" {
			gz++
		}
	}
	require.Equal(t, 1, gz, "expected exactly 1 rotated segment after the threshold was exceeded once")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read active log")
	assert.NotEmpty(t, data, "expected the active log to contain the second entry after rotation")
}
