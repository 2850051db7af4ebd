package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test data constants
const (
	testTemplate       = `<svg><text data-bind="capitalize(team)"/><rect data-attr="width: score * 10"/></svg>`
	testDataJSON       = `{"team": "ajax", "score": 3}`
	testDataYAML       = "team: feyenoord\nscore: 2\n"
	testExpectedOutput = `<svg><text>Ajax</text><rect width="30"/></svg>`
	testUnresolved     = `<svg><text data-bind="teem"/></svg>`
	testInvalid        = `<svg><text data-bind="1 +"/></svg>`
)

// setupTestFiles writes the test templates and data into a temp directory
func setupTestFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"chart.svg":      testTemplate,
		"unresolved.svg": testUnresolved,
		"invalid.svg":    testInvalid,
		"data.json":      testDataJSON,
		"data.yaml":      testDataYAML,
		"list.json":      `[1, 2]`,
		"broken.json":    `{"team":`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), FilePermissions))
	}
	return dir
}

// runCLI runs the CLI and returns the exit code and both outputs
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(context.Background(), args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	t.Run("no command", func(t *testing.T) {
		code, _, stderr := runCLI(t, "")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, CLIName)
	})

	t.Run("unknown command", func(t *testing.T) {
		code, _, _ := runCLI(t, "", "draw")
		assert.Equal(t, ExitCodeUsageError, code)
	})

	t.Run("help", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", "--help")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, "render")
		assert.Contains(t, stdout, "serve")
	})

	t.Run("missing template flag", func(t *testing.T) {
		code, _, _ := runCLI(t, "", "render")
		assert.Equal(t, ExitCodeUsageError, code)
	})

	t.Run("bad log level", func(t *testing.T) {
		code, _, _ := runCLI(t, "", "--log-level", "loud", "funcs")
		assert.Equal(t, ExitCodeUsageError, code)
	})
}

func TestRun_Render(t *testing.T) {
	dir := setupTestFiles(t)
	chart := filepath.Join(dir, "chart.svg")

	t.Run("json data", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", "render", "-t", chart, "-d", filepath.Join(dir, "data.json"))
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, testExpectedOutput, stdout)
	})

	t.Run("yaml data", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", "render", "-t", chart, "-d", filepath.Join(dir, "data.yaml"))
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, `<svg><text>Feyenoord</text><rect width="20"/></svg>`, stdout)
	})

	t.Run("explicit format", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, testDataYAML, "render", "-t", chart, "-d", "-", "--format", "yaml")
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Contains(t, stdout, "Feyenoord")
	})

	t.Run("template from stdin", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, testTemplate, "render", "-t", "-", "-d", filepath.Join(dir, "data.json"))
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, testExpectedOutput, stdout)
	})

	t.Run("output file", func(t *testing.T) {
		out := filepath.Join(dir, "out.svg")
		code, stdout, stderr := runCLI(t, "", "render", "-t", chart, "-d", filepath.Join(dir, "data.json"), "-o", out)
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Empty(t, stdout)

		written, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, testExpectedOutput, string(written))
	})

	t.Run("unresolved name", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", "render", "-t", filepath.Join(dir, "unresolved.svg"), "-d", filepath.Join(dir, "data.json"))
		assert.Equal(t, ExitCodeRenderError, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, ErrMsgRenderFailed)
		assert.Contains(t, stderr, "did you mean team?")
	})

	t.Run("missing template file", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", "render", "-t", filepath.Join(dir, "nope.svg"))
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgReadFileFailed)
	})

	t.Run("broken data", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", "render", "-t", chart, "-d", filepath.Join(dir, "broken.json"))
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgInvalidData)
	})

	t.Run("data is not a mapping", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", "render", "-t", chart, "-d", filepath.Join(dir, "list.json"))
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgDataNotMapping)
	})

	t.Run("stdin twice", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", "render", "-t", "-", "-d", "-")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgStdinTwice)
	})

	t.Run("negative max depth", func(t *testing.T) {
		code, _, _ := runCLI(t, "", "render", "-t", chart, "--max-depth=-1")
		assert.Equal(t, ExitCodeUsageError, code)
	})
}

func TestRun_Validate(t *testing.T) {
	dir := setupTestFiles(t)

	t.Run("text", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", "validate", "-t", filepath.Join(dir, "chart.svg"))
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Contains(t, stdout, "svg: 3 elements, 2 directives")
		assert.Contains(t, stdout, "data-bind")
		assert.Contains(t, stdout, "width: score * 10")
	})

	t.Run("json", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", "validate", "-t", filepath.Join(dir, "chart.svg"), "-F", "json")
		require.Equal(t, ExitCodeSuccess, code, stderr)

		var info struct {
			Root       string `json:"root"`
			Directives []struct {
				Attribute string `json:"attribute"`
				Path      string `json:"path"`
			} `json:"directives"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &info))
		assert.Equal(t, "svg", info.Root)
		require.Len(t, info.Directives, 2)
		assert.Equal(t, "data-attr", info.Directives[1].Attribute)
		assert.Equal(t, "/svg/rect", info.Directives[1].Path)
	})

	t.Run("invalid expression", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", "validate", "-t", filepath.Join(dir, "invalid.svg"))
		assert.Equal(t, ExitCodeRenderError, code)
		assert.Contains(t, stderr, ErrMsgValidateFailed)
	})
}

func TestRun_Funcs(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "funcs")
	require.Equal(t, ExitCodeSuccess, code)
	for _, name := range []string{"percentage", "round", "capitalize", "uppercase", "truncate", "abbreviate_name"} {
		assert.Contains(t, stdout, name+"\n")
	}

	code, stdout, _ = runCLI(t, "", "funcs", "--format", "json")
	require.Equal(t, ExitCodeSuccess, code)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &names))
	assert.Contains(t, names, "truncate")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "version")
	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, "vizbind version")

	code, stdout, _ = runCLI(t, "", "version", "-F", "json")
	require.Equal(t, ExitCodeSuccess, code)
	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info.GoVersion)
}

func TestLoadVersionInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "versions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  version: 1.2.3\ngit:\n  commit: abc123\n"), FilePermissions))

	info := loadVersionInfo([]string{filepath.Join(dir, "missing.yaml"), path})
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, VersionUnknown, info.Branch)

	info = loadVersionInfo(nil)
	assert.Equal(t, VersionUnknown, info.Version)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := setupTestFiles(t)
	config := filepath.Join(dir, "vizbind.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"log-level": "debug", "log-format": "json"}`), FilePermissions))

	code, _, stderr := runCLI(t, "", "--config", config, "render", "-t", filepath.Join(dir, "chart.svg"), "-d", filepath.Join(dir, "data.json"))
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Contains(t, stderr, `"msg":"engine created"`)
}

func TestLoadData(t *testing.T) {
	t.Run("numbers keep integer type", func(t *testing.T) {
		data, err := loadData("-", DataFormatJSON, strings.NewReader(`{"n": 3, "f": 1.5, "list": [{"x": 2}]}`))
		require.NoError(t, err)
		assert.Equal(t, 3, data["n"])
		assert.Equal(t, 1.5, data["f"])
		assert.Equal(t, 2, data["list"].([]any)[0].(map[string]any)["x"])
	})

	t.Run("empty input", func(t *testing.T) {
		data, err := loadData("-", DataFormatAuto, strings.NewReader("  \n"))
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("no path", func(t *testing.T) {
		data, err := loadData("", DataFormatAuto, nil)
		require.NoError(t, err)
		assert.NotNil(t, data)
	})
}
