package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/handreceipt/internal/layout"
)

type cli struct {
	t   *testing.T
	dir string
	db  string
}

func newCLI(t *testing.T) *cli {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	return &cli{t: t, dir: dir, db: filepath.Join(dir, "test.sqlite3")}
}

func (c *cli) run(stdin string, args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-db", c.db}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run("", args...)
	require.Zero(c.t, code, "handreceipt %v failed:\n%s%s", args, out, errOut)
	return out
}

func TestUsage(t *testing.T) {
	c := newCLI(t)
	code, out, _ := c.run("")
	require.Equal(t, 1, code)
	require.Contains(t, out, "Usage: handreceipt")

	code, _, errOut := c.run("", "frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unknown command: frobnicate")
}

func TestCustodyWorkflow(t *testing.T) {
	c := newCLI(t)

	out := c.ok("init")
	require.Contains(t, out, "16 rows per page")

	c.ok("add", "-model", "M4A1", "-category", "Weapon", "-serial", "W1")
	c.ok("add", "-model", "M4A1", "-category", "Weapon", "-serial", "W2")
	c.ok("add", "-model", "PRC-152", "-category", "Radio", "-serial", "R1")

	code, out, _ := c.run("W2\nR1\nNOPE\n", "issue", "-to", "SGT Doe", "-from", "S4", "-stdin", "W1")
	require.Zero(t, code)
	require.Contains(t, out, "issued: 3")
	require.Contains(t, out, "NOPE")

	out = c.ok("custodians")
	require.Contains(t, out, "SGT Doe")

	out = c.ok("delete", "-serials", "W1")
	require.Contains(t, out, "deleted: 0")
	require.Contains(t, out, "must be returned")

	out = c.ok("return", "W1")
	require.Contains(t, out, "returned: 1")

	out = c.ok("delete", "-reason", "bent barrel", "W1")
	require.Contains(t, out, "deleted: 1")
	out = c.ok("bin")
	require.Contains(t, out, "bent barrel")

	code, _, _ = c.run("", "purge", "W1")
	require.Equal(t, 1, code, "purge needs -yes")
	out = c.ok("purge", "-yes", "W1")
	require.Contains(t, out, "purged: 1")

	out = c.ok("history", "-serial", "W1")
	require.Contains(t, out, "purged")
	require.Contains(t, out, "issued")
}

func TestGenerateWritesPlanAndProofs(t *testing.T) {
	c := newCLI(t)
	c.ok("init")
	c.ok("add", "-model", "M4A1", "-category", "Weapon", "-serial", "W1")
	c.ok("issue", "-to", "SGT Doe", "-contact", "555-0100", "W1")
	c.ok("calibration", "set", "rows_per_page", "10")

	outDir := filepath.Join(c.dir, "out")
	out := c.ok("generate", "-to", "SGT Doe", "-out", outDir, "-proof")
	require.Contains(t, out, "1 page(s), 1 row(s), 1 unit(s)")

	matches, err := filepath.Glob(filepath.Join(outDir, "DA2062_SGT_Doe_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Contains(t, string(data), `"rows_per_page": 10`)
	require.Contains(t, string(data), "Contact: 555-0100")

	proofs, err := filepath.Glob(filepath.Join(outDir, "DA2062_SGT_Doe_*_p01.png"))
	require.NoError(t, err)
	require.Len(t, proofs, 1)

	out = c.ok("receipts", "-to", "SGT Doe")
	require.Contains(t, out, "DA2062_SGT_Doe_")

	code, _, errOut := c.run("", "generate", "-to", "Nobody", "-out", outDir)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not found")
}

func TestGenerateRecordsNothingWithoutPlanFile(t *testing.T) {
	c := newCLI(t)
	c.ok("init")
	c.ok("add", "-model", "M4A1", "-category", "Weapon", "-serial", "W1")
	c.ok("issue", "-to", "SGT Doe", "W1")

	// A directory in the plan file's place makes writing it fail.
	outDir := filepath.Join(c.dir, "out")
	name := layout.DocumentName("SGT Doe", time.Now().UTC())
	planPath := filepath.Join(outDir, strings.TrimSuffix(name, filepath.Ext(name))+".json")
	require.NoError(t, os.MkdirAll(planPath, 0o755))

	code, _, errOut := c.run("", "generate", "-to", "SGT Doe", "-out", outDir)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "plan file")

	out := c.ok("receipts")
	require.NotContains(t, out, "DA2062_")
}

func TestSerialCommandsRejectLateFlags(t *testing.T) {
	c := newCLI(t)
	c.ok("init")
	c.ok("add", "-model", "M4A1", "-category", "Weapon", "-serial", "W1")

	code, _, errOut := c.run("", "issue", "W1", "-to", "SGT Doe")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "flag -to must come before serials")

	out := c.ok("list", "-status", "issued")
	require.NotContains(t, out, "W1")

	out = c.ok("issue", "-to", "SGT Doe", "W1")
	require.Contains(t, out, "issued: 1")
}

func TestImportExportRoundTrip(t *testing.T) {
	c := newCLI(t)
	c.ok("init")

	in := filepath.Join(c.dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("Model,Category,Serial Number,Box #\nM4A1,Weapon,W1,B1\nM4A1,Weapon,,B1\n"), 0o644))
	out := c.ok("import", in)
	require.Contains(t, out, "created: 1")
	require.Contains(t, out, "skipped: 1")

	xlsx := filepath.Join(c.dir, "out.xlsx")
	c.ok("export", xlsx)
	out = c.ok("import", xlsx)
	require.Contains(t, out, "updated: 1")

	out = c.ok("list", "-status", "on_hand")
	require.Contains(t, out, "W1")
}

func TestCalibrationCommands(t *testing.T) {
	c := newCLI(t)
	c.ok("init")

	out := c.ok("calibration", "set", "x_from", "255.5", "font_name", "Courier")
	require.Contains(t, out, "255.5")

	file := filepath.Join(c.dir, "profile.yaml")
	c.ok("calibration", "export", file)
	c.ok("calibration", "reset")
	out = c.ok("calibration", "show")
	require.Contains(t, out, "Helvetica")

	out = c.ok("calibration", "import", file)
	require.Contains(t, out, "Courier")

	code, _, _ := c.run("", "calibration", "set", "rows_per_page", "0")
	require.Equal(t, 1, code)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
