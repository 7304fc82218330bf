package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/label"
)

const sampleCSV = "发货备注,Handle\n" +
	"\"Jane Doe\n123 Main St Apt 4\nAustin, TX 78701\n(512) 555-1234\",jdoe\n" +
	"\"Bob\",bobby\n"

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConvertCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "remarks.csv")
	out := filepath.Join(dir, "labels.csv")
	require.NoError(t, os.WriteFile(in, []byte(sampleCSV), 0o644))

	_, stderr, err := run(t, "", "convert", "--in", in, "--out", out, "--date", "2024-03-05", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 2 rows")
	assert.Contains(t, stderr, "1 with warnings")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, label.Columns(), records[0])

	table := &label.Table{Header: records[0], Rows: records[1:]}
	assert.Equal(t, "R100001", table.Value(0, label.ColReferenceID))
	assert.Equal(t, "2024-03-05", table.Value(0, label.ColShippingDate))
	assert.Equal(t, "Austin", table.Value(0, label.ColRecipientCity))
	assert.Equal(t, "bobby", table.Value(1, label.ColRecipientFirstName))
}

func TestConvertCmd_Stdio(t *testing.T) {
	stdout, _, err := run(t, sampleCSV, "convert", "--in", "-", "--out", "-")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestConvertCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Order,Handle\n1,a\n"), 0o644))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing --in", []string{"convert"}, `required flag(s) "in" not set`},
		{"missing file", []string{"convert", "--in", filepath.Join(dir, "nope.csv")}, "open input"},
		{"bad date", []string{"convert", "--in", bad, "--date", "03/05/2024"}, "invalid --date"},
		{"bad scan", []string{"convert", "--in", bad, "--city-scan", "up"}, "unknown scan direction"},
		{"missing column", []string{"convert", "--in", bad, "--out", filepath.Join(dir, "o.csv")}, "missing required column"},
		{"bad profile", []string{"convert", "--in", bad, "--profile", filepath.Join(dir, "none.yaml")}, "profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCmd(t *testing.T) {
	stdout, _, err := run(t, "", "parse", "--handle", "jdoe", "Jane Doe\n123 Main St\nAustin, TX 78701")
	require.NoError(t, err)

	var got address.ParsedAddress
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "123 Main St", got.AddressLine1)
	assert.Equal(t, "78701", got.ZipCode)
}

func TestParseCmd_Stdin(t *testing.T) {
	stdout, _, err := run(t, "", "parse", "--handle", "h")
	require.NoError(t, err)

	var got address.ParsedAddress
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, address.Default("h"), got)
}

func TestTemplateCmd(t *testing.T) {
	stdout, _, err := run(t, "", "template")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0], 57)
}
