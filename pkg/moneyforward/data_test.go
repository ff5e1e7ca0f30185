package moneyforward

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var csvHeader = []string{
	"計算対象", "日付", "内容", "金額（円）", "保有金融機関", "大項目", "中項目", "メモ", "振替", "ID",
}

func defaultRow() []string {
	return []string{
		"1", "2024/07/15", "物販 髙島屋", "-1000", "モバイルSuica", "未分類", "未分類", "", "0", "transaction_id",
	}
}

// buildCSV renders a quoted CSV export the way MoneyForward does.
func buildCSV(rows ...[]string) string {
	var sb strings.Builder
	all := append([][]string{csvHeader}, rows...)
	for _, row := range all {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(`"` + cell + `"`)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadCSVConvertsHeadersAndTypes(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "2024-07.csv", buildCSV(defaultRow()))

	data := NewData(nullLogger())
	require.NoError(t, data.ReadCSV(file))

	grouped := data.Grouped()
	require.Contains(t, grouped, "モバイルSuica")
	require.Len(t, grouped["モバイルSuica"], 1)

	txn := grouped["モバイルSuica"][0]
	assert.Equal(t, Transaction{
		Include:     1,
		Date:        "2024/07/15",
		Content:     "物販 髙島屋",
		Amount:      -1000,
		Account:     "モバイルSuica",
		Category:    "未分類",
		Subcategory: "未分類",
		Memo:        "",
		Transfer:    0,
		ID:          "transaction_id",
	}, txn)
}

func TestReadAllCSVGroupsByAccount(t *testing.T) {
	dir := t.TempDir()

	row1 := defaultRow()
	row1[4] = "account 1"
	row1[9] = "transaction_id_1"
	writeFile(t, dir, "2024-07.csv", buildCSV(row1))

	row2 := defaultRow()
	row2[4] = "account 2"
	row2[9] = "transaction_id_2"
	writeFile(t, dir, "2024-06.csv", buildCSV(row2))

	data := NewData(nullLogger())
	require.NoError(t, data.ReadAllCSV(dir))

	grouped := data.Grouped()
	require.Len(t, grouped, 2)
	require.Len(t, grouped["account 1"], 1)
	require.Len(t, grouped["account 2"], 1)
	assert.Equal(t, "transaction_id_1", grouped["account 1"][0].ID)
	assert.Equal(t, "transaction_id_2", grouped["account 2"][0].ID)
}

func TestReadCSVDecodesShiftJIS(t *testing.T) {
	dir := t.TempDir()

	encoded, err := io.ReadAll(transform.NewReader(
		strings.NewReader(buildCSV(defaultRow())),
		japanese.ShiftJIS.NewEncoder(),
	))
	require.NoError(t, err)

	path := filepath.Join(dir, "2024-07.csv")
	require.NoError(t, os.WriteFile(path, encoded, 0644))

	data := NewData(nullLogger())
	require.NoError(t, data.ReadCSV(path))

	grouped := data.Grouped()
	require.Contains(t, grouped, "モバイルSuica")
	assert.Equal(t, "物販 髙島屋", grouped["モバイルSuica"][0].Content)
}

func TestReadCSVMalformedAmount(t *testing.T) {
	dir := t.TempDir()

	row := defaultRow()
	row[3] = "not a number"
	file := writeFile(t, dir, "2024-07.csv", buildCSV(row))

	data := NewData(nullLogger())
	err := data.ReadCSV(file)
	require.Error(t, err)

	var malformed *MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "amount", malformed.Field)
	assert.Equal(t, file, malformed.File)
}

func TestReadAllCSVContinuesPastMalformedFiles(t *testing.T) {
	dir := t.TempDir()

	bad := defaultRow()
	bad[3] = "oops"
	writeFile(t, dir, "2024-06.csv", buildCSV(bad))

	good := defaultRow()
	good[4] = "good account"
	writeFile(t, dir, "2024-07.csv", buildCSV(good))

	data := NewData(nullLogger())
	err := data.ReadAllCSV(dir)
	require.Error(t, err)

	// The valid file was still ingested.
	grouped := data.Grouped()
	require.Contains(t, grouped, "good account")
}

func TestAccountsPreserveInsertionOrder(t *testing.T) {
	dir := t.TempDir()

	rowB := defaultRow()
	rowB[4] = "B"
	rowA := defaultRow()
	rowA[4] = "A"
	file := writeFile(t, dir, "2024-07.csv", buildCSV(rowB, rowA))

	data := NewData(nullLogger())
	require.NoError(t, data.ReadCSV(file))

	assert.Equal(t, []string{"B", "A"}, data.Accounts())
}

func TestUnknownHeadersAreIgnored(t *testing.T) {
	dir := t.TempDir()

	header := append([]string{}, csvHeader...)
	header = append(header, "新しい列")
	row := append(defaultRow(), "whatever")

	var sb strings.Builder
	for _, r := range [][]string{header, row} {
		sb.WriteString(`"` + strings.Join(r, `","`) + `"` + "\n")
	}
	file := writeFile(t, dir, "2024-07.csv", sb.String())

	data := NewData(nullLogger())
	require.NoError(t, data.ReadCSV(file))
	require.Len(t, data.Grouped()["モバイルSuica"], 1)
}
