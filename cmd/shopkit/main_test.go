package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/shopkit/internal/testutil"
	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command line with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SHOPKIT_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailed, exitCode(errors.New("boom")))
	assert.Equal(t, exitConfig, exitCode(&config.ConfigError{Field: "shop.domain", Err: config.ErrRequired}))
	assert.Equal(t, exitConfig, exitCode(fmt.Errorf("wrapped: %w", &config.ConfigError{Field: "x", Err: config.ErrRequired})))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "uptime")
	assert.Equal(t, exitConfig, exitCode(err))
}

func mockShop(t *testing.T, n int) *testutil.MockShop {
	t.Helper()
	customers := make([]testutil.MockCustomer, n)
	for i := range customers {
		customers[i] = testutil.NewMockCustomer(fmt.Sprintf("First%d", i), "Lee", "March")
	}
	shop := testutil.NewMockShop(customers)
	t.Cleanup(shop.Close)

	t.Setenv("SHOPKIT_SHOP_BASE_URL", shop.URL()+testutil.CustomersPath)
	t.Setenv("SHOPKIT_API_KEY", "key:secret")
	return shop
}

func TestCustomers_CSVToStdout(t *testing.T) {
	shop := mockShop(t, 5)

	out, err := execute(t, "customers", "--page-size", "2")
	require.NoError(t, err)
	assert.Equal(t, 3, shop.GetRequestCount())

	got, err := record.ReadCSV(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "First0", got[0].FirstName)
	assert.Equal(t, []string{"March"}, got[4].Tags)
}

func TestCustomers_JSONToFile(t *testing.T) {
	mockShop(t, 3)
	path := filepath.Join(t.TempDir(), "customers.json")

	_, err := execute(t, "customers", "--format", "json", "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []record.Customer
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 3)
	assert.Equal(t, "62701", got[0].PostalCode)
}

func TestCustomers_FetchErrorFails(t *testing.T) {
	shop := mockShop(t, 5)
	shop.FailPage = 2
	shop.FailStatus = http.StatusServiceUnavailable

	_, err := execute(t, "customers", "--page-size", "2")
	require.Error(t, err)
	assert.Equal(t, exitFailed, exitCode(err))
	assert.NotContains(t, err.Error(), "secret")
}

func TestCustomers_Validation(t *testing.T) {
	mockShop(t, 1)
	_, err := execute(t, "customers", "--format", "xml")
	assert.Equal(t, exitConfig, exitCode(err))

	t.Setenv("SHOPKIT_SHOP_BASE_URL", "")
	t.Setenv("SHOPKIT_API_KEY", "")
	_, err = execute(t, "customers")
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestLabels_CSV(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	t.Setenv("SHOPKIT_LOG_DIR", logDir)

	input := filepath.Join(dir, "bulk_customers.csv")
	csv := "Customer ID,Last Name,First Name,Email,Phone,Address,City,State,Zip,Birthday\n" +
		"1,Lee,Ann,,,1 Main St,Springfield,IL,62701,03/15/1980\n" +
		"2,Ray,Bob,,,2 Main St,Springfield,IL,62701,03/02/1975\n" +
		"3,Fox,Cy,,,3 Main St,Springfield,IL,,03/09/1990\n" +
		"4,Ng,Di,,,4 Main St,Springfield,IL,62701,04/01/1990\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))

	out, err := execute(t, "labels", "--input", input, "--output-dir", dir, "--month", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "2 labels for March")
	assert.Contains(t, out, "28 blank")

	pdfs, err := filepath.Glob(filepath.Join(dir, "birthday_labels_*.pdf"))
	require.NoError(t, err)
	assert.Len(t, pdfs, 1)

	logs, err := filepath.Glob(filepath.Join(logDir, "birthday_labels_*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	assert.NoFileExists(t, input)
	assert.FileExists(t, input+".bak")
}

func TestLabels_InvalidMonth(t *testing.T) {
	_, err := execute(t, "labels", "--month", "13")
	assert.Equal(t, exitConfig, exitCode(err))

	_, err = execute(t, "labels", "--months-out", "-1")
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestUptime(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	out, err := execute(t, "uptime", "--primary", up.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OK "+up.URL), out)

	out, err = execute(t, "uptime", "--primary", down.URL, up.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "<table")
	assert.Contains(t, out, down.URL)

	_, err = execute(t, "uptime", "--primary", down.URL, "--fail")
	assert.ErrorIs(t, err, errSitesDown)
	assert.Equal(t, exitFailed, exitCode(err))
}
