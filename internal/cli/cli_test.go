package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/engine"
)

var fixedNow = time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)

// isolate points config discovery at empty dirs and returns a fresh db path.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCHEDD_DB_DRIVER", "sqlite")
	t.Setenv("SCHEDD_TIMEZONE", "UTC")
	t.Setenv("SCHEDD_LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "schedd.db")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(WithNow(func() time.Time { return fixedNow }))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeResult(t *testing.T, out string) engine.Result {
	t.Helper()
	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestQueryCreatesAndRetrieves(t *testing.T) {
	db := isolate(t)

	out, err := execute(t, "", "--db", db, "-f", "json", "query", "schedule", "dentist", "tomorrow", "at", "3pm")
	require.NoError(t, err)
	res := decodeResult(t, out)
	require.Len(t, res.Created, 1)
	assert.Equal(t, commands.IntentCreate, res.Intent)
	assert.Equal(t, "2025-10-02", res.Created[0].Date.String())
	assert.Equal(t, 15*60, res.Created[0].Start)

	out, err = execute(t, "", "--db", db, "query", "show", "tomorrow")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "dentist")
	assert.Contains(t, out, "2025-10-02 15:00-16:00")
}

func TestActionReportsConflict(t *testing.T) {
	db := isolate(t)
	body := `{"title":"Standup","date":"2025-10-01","start":"11:00","duration":30}`

	_, err := execute(t, "", "--db", db, "action", "create", "--json", body)
	require.NoError(t, err)

	out, err := execute(t, body, "--db", db, "-f", "json", "action", "create", "--file", "-")
	require.ErrorIs(t, err, ErrRequestFailed)
	res := decodeResult(t, out)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(commands.ErrCodeSchedulingConflict), res.Error.Kind)
	assert.NotEmpty(t, res.Error.Proposals)
}

func TestActionNeedsAName(t *testing.T) {
	db := isolate(t)
	_, err := execute(t, "", "--db", db, "action")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no action given")

	_, err = execute(t, "", "--db", db, "action", "create", "--json", "{broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request")
}

func TestTemplatesList(t *testing.T) {
	db := isolate(t)
	out, err := execute(t, "", "--db", db, "-f", "json", "templates")
	require.NoError(t, err)
	assert.Contains(t, decodeResult(t, out).Templates, "pitch_prep")
}

func TestUnknownFormat(t *testing.T) {
	db := isolate(t)
	_, err := execute(t, "", "--db", db, "-f", "xml", "templates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format")
}

func TestPollOnceDeliversOnce(t *testing.T) {
	db := isolate(t)
	_, err := execute(t, "", "--db", db, "action", "reminder_create",
		"--json", `{"title":"Stretch","trigger_at":"2025-10-01 09:30"}`)
	require.NoError(t, err)

	out, err := execute(t, "", "--db", db, "poll", "--once")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01 09:30  Stretch [inapp]\n", out)

	out, err = execute(t, "", "--db", db, "poll", "--once")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := isolate(t)
	for _, body := range []string{
		`{"title":"Dentist","date":"2025-10-02","start":"15:00","duration":45}`,
		`{"title":"Night shift","date":"2025-10-03","start":"23:00","duration":120}`,
	} {
		_, err := execute(t, "", "--db", src, "action", "create", "--json", body)
		require.NoError(t, err)
	}

	file := filepath.Join(t.TempDir(), "out.ics")
	_, err := execute(t, "", "--db", src, "export", "--from", "2025-10-01", "--to", "2025-10-05", "-o", file)
	require.NoError(t, err)
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "BEGIN:VEVENT"))

	dst := filepath.Join(t.TempDir(), "copy.db")
	out, err := execute(t, "", "--db", dst, "-f", "json", "import", "--from", "2025-10-01", "--to", "2025-10-05", file)
	require.NoError(t, err)
	var sum importSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum), out)
	assert.Equal(t, 2, sum.Events)
	assert.Equal(t, 2, sum.Occurrences)
	assert.Zero(t, sum.Skipped)

	out, err = execute(t, "", "--db", dst, "-f", "json", "action", "count",
		"--json", `{"from":"2025-10-01","to":"2025-10-05"}`)
	require.NoError(t, err)
	res := decodeResult(t, out)
	require.NotNil(t, res.Count)
	assert.Equal(t, 2, *res.Count)

	out, err = execute(t, "", "--db", dst, "-f", "json", "import", "--from", "2025-10-01", "--to", "2025-10-05", file)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &sum), out)
	assert.Zero(t, sum.Created)
	assert.Equal(t, 2, sum.Skipped)
}

func TestDateRangeValidation(t *testing.T) {
	a := &app{now: func() time.Time { return fixedNow }, location: time.UTC}
	rg, err := a.dateRange("", "", 30)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", rg.From.String())
	assert.Equal(t, "2025-10-31", rg.To.String())

	_, err = a.dateRange("2025-10-05", "2025-10-01", 30)
	assert.Error(t, err)
	_, err = a.dateRange("tomorrow", "", 30)
	assert.Error(t, err)
}
