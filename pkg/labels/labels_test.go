package labels

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/shopkit/pkg/filter"
	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestTargetMonth(t *testing.T) {
	tests := []struct {
		name      string
		today     time.Time
		monthsOut int
		override  int
		want      time.Time
	}{
		{"mid month", date(2024, time.January, 15), 1, 0, date(2024, time.February, 1)},
		{"year rollover", date(2024, time.December, 20), 1, 0, date(2025, time.January, 1)},
		{"end of january skips short february", date(2024, time.January, 31), 1, 0, date(2024, time.March, 1)},
		{"zero months out", date(2024, time.May, 5), 0, 0, date(2024, time.May, 1)},
		{"two months out", date(2024, time.May, 5), 2, 0, date(2024, time.July, 1)},
		{"override later this year", date(2024, time.October, 5), 1, 11, date(2024, time.November, 1)},
		{"override current month", date(2024, time.October, 5), 1, 10, date(2024, time.October, 1)},
		{"override already passed", date(2024, time.October, 5), 1, 3, date(2025, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetMonth(tt.today, tt.monthsOut, tt.override)
			assert.Equal(t, tt.want.Year(), got.Year())
			assert.Equal(t, tt.want.Month(), got.Month())
			assert.Equal(t, 1, got.Day())
		})
	}
}

func TestFileNames(t *testing.T) {
	target := date(2024, time.March, 1)
	assert.Equal(t, "birthday_labels_202403", FileStem(target))
	assert.Equal(t, "birthday_labels_skipped_202403.txt", SkippedFileName(target))
}

func writeExport(t *testing.T, dir string, marchCount int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Customer ID,Last Name,First Name,Email,Phone,Address,City,State,Zip,Birthday\n")
	for i := 0; i < marchCount; i++ {
		fmt.Fprintf(&b, "%d,Last%d,First%d,x@example.com,555,%d Main St,Springfield,IL,62701,03/%02d/1980\n", i, i, i, i+1, i%28+1)
	}
	b.WriteString("900,Nozip,Nina,,,1 Elm St,Austin,TX,,3/1/90\n")
	b.WriteString("901,Garbage,Gus,,,1 Elm St,Austin,TX,73301,someday\n")
	b.WriteString("902,Blank,Bea,,,1 Elm St,Austin,TX,73301,\n")
	b.WriteString("903,April,Al,,,1 Elm St,Austin,TX,73301,04/02/1975\n")

	path := filepath.Join(dir, "bulk_customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(dir string) Config {
	cfg := DefaultConfig(filepath.Join(dir, "out"))
	cfg.Target = date(2024, time.March, 1)
	return cfg
}

func TestRun_CSVSource(t *testing.T) {
	dir := t.TempDir()
	input := writeExport(t, dir, 32)

	res, err := Run(context.Background(), testConfig(dir), CSVSource{Path: input})
	require.NoError(t, err)

	assert.Equal(t, time.March, res.Month)
	assert.Equal(t, 2024, res.Year)
	assert.Equal(t, 36, res.Loaded)
	assert.Equal(t, 32, res.Accepted)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 28, res.Padding)
	assert.Equal(t, 20, res.Rows)
	assert.Equal(t, 2, res.Pages)

	assert.Equal(t, filepath.Join(dir, "out", "birthday_labels_202403.pdf"), res.PDFPath)
	pdf, err := os.ReadFile(res.PDFPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))

	skipped, err := os.ReadFile(res.SkippedPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(skipped)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "NO_ZIP              : Nina Nozip, 1 Elm St, Austin, TX, ", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "INVALID_BIRTHDAY    : Gus Garbage"))

	_, err = os.Stat(input)
	assert.True(t, errors.Is(err, os.ErrNotExist), "input should be removed")
	assert.Equal(t, input+".bak", res.BackupPath)
	_, err = os.Stat(res.BackupPath)
	assert.NoError(t, err)
}

func TestRun_KeepInput(t *testing.T) {
	dir := t.TempDir()
	input := writeExport(t, dir, 1)

	cfg := testConfig(dir)
	cfg.KeepInput = true

	res, err := Run(context.Background(), cfg, CSVSource{Path: input})
	require.NoError(t, err)

	_, err = os.Stat(input)
	assert.NoError(t, err)
	_, err = os.Stat(res.BackupPath)
	assert.NoError(t, err)
	assert.Equal(t, 29, res.Padding)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Run(context.Background(), testConfig(dir), CSVSource{Path: filepath.Join(dir, "missing.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(dir, "out", "birthday_labels_202403.pdf"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "no pdf on failure")
}

type fakeFetcher struct {
	customers []record.Customer
	err       error
}

func (f fakeFetcher) FetchAll(context.Context) ([]record.Customer, error) {
	return f.customers, f.err
}

func TestRun_APISource(t *testing.T) {
	dir := t.TempDir()

	addr := record.Customer{Address1: "1 Main St", City: "Springfield", Region: "IL", PostalCode: "62701"}
	ann, bob, cy := addr, addr, addr
	ann.FirstName, ann.LastName, ann.Tags = "Ann", "Lee", []string{"VIP", " march "}
	bob.FirstName, bob.LastName, bob.Tags = "Bob", "Ray", []string{"April"}
	cy.FirstName, cy.LastName = "Cy", "Untagged"

	src := APISource{Fetcher: fakeFetcher{customers: []record.Customer{ann, bob, cy}}}
	assert.Equal(t, filter.ModeTag, src.Mode())

	res, err := Run(context.Background(), testConfig(dir), src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Dropped)
	assert.Empty(t, res.BackupPath)

	skipped, err := os.ReadFile(res.SkippedPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(skipped), "NO_TAGS"))
}

func TestRun_FetchErrorAborts(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	_, err := Run(context.Background(), testConfig(dir), APISource{Fetcher: fakeFetcher{err: boom}})
	assert.ErrorIs(t, err, boom)
}

func TestRun_NoMatchesStillRendersOnePage(t *testing.T) {
	dir := t.TempDir()

	res, err := Run(context.Background(), testConfig(dir), APISource{Fetcher: fakeFetcher{}})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 30, res.Padding)
	assert.Equal(t, 10, res.Rows)
	assert.Equal(t, 1, res.Pages)

	skipped, err := os.ReadFile(res.SkippedPath)
	require.NoError(t, err)
	assert.Empty(t, skipped)
}
