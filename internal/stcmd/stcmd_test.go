package stcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcdshub/tcparse/internal/twincat"
	"github.com/pcdshub/tcparse/internal/twincat/twincattest"
)

func testOptions() Options {
	return Options{
		Binary:         "adsMotion",
		Delim:          ":",
		MotorPort:      "PLC_ADS",
		AsynPort:       "ASYN_PLC",
		DefaultADSPort: 851,
		Precision:      3,
	}
}

func loadFixture(t *testing.T, overrides map[string]string) *twincat.Project {
	t.Helper()
	p, err := twincat.LoadProject(twincattest.WriteProject(t, overrides))
	require.NoError(t, err)
	return p
}

func TestBuild(t *testing.T) {
	p := loadFixture(t, nil)
	b, err := NewBuilder(testOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.Build(p, &buf))
	out := buf.String()

	assert.Contains(t, out, "#!../../bin/rhel7-x86_64/adsMotion\n")
	assert.Contains(t, out, `epicsEnvSet("IOCNAME",   "tc")`)
	assert.Contains(t, out, `epicsEnvSet("PREFIX",         "TC:")`)
	assert.Contains(t, out, `epicsEnvSet("NUMAXES",        "1")`)
	assert.Contains(t, out, `epicsEnvSet("IPADDR",         "5.21.50.18")`)
	assert.Contains(t, out, `epicsEnvSet("AMSID",          "5.21.50.18.1.1")`)
	assert.Contains(t, out, `epicsEnvSet("AMSPORT",        "851")`)
	assert.Contains(t, out, `epicsEnvSet("MOTOR_NAME", "Axis:1")`)
	assert.Contains(t, out, `epicsEnvSet("AXIS_NO",    "1")`)
	assert.Contains(t, out, `epicsEnvSet("DESC",       "Main.M1 / Axis 1")`)
	assert.Contains(t, out, `epicsEnvSet("EGU",        "mm")`)
	assert.Contains(t, out, `epicsEnvSet("PREC",       "3")`)
}

func TestDataNameAndPrefix(t *testing.T) {
	p := loadFixture(t, nil)
	opts := testOptions()
	opts.Name = "ioc-tst-motion"
	opts.Delim = "-"
	b, err := NewBuilder(opts)
	require.NoError(t, err)

	d, err := b.Data(p)
	require.NoError(t, err)
	assert.Equal(t, "ioc-tst-motion", d.Name)
	assert.Equal(t, "IOC-TST-MOTION", d.Prefix)
	require.Len(t, d.Motors, 1)
	assert.Equal(t, "Axis-1", d.Motors[0].Name)
}

func TestDataWithoutMotorsUsesDefaultPort(t *testing.T) {
	p, err := twincat.NewLoader(twincat.NewRegistry(twincat.WithDriveBlocks("FB_MotionStage"))).
		LoadProject(twincattest.WriteProject(t, nil))
	require.NoError(t, err)

	opts := testOptions()
	opts.DefaultADSPort = 852
	b, err := NewBuilder(opts)
	require.NoError(t, err)
	d, err := b.Data(p)
	require.NoError(t, err)
	assert.Empty(t, d.Motors)
	assert.Equal(t, 852, d.PLCAdsPort)
}

func TestCustomTemplate(t *testing.T) {
	p := loadFixture(t, nil)
	path := filepath.Join(t.TempDir(), "motors.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{ range .Motors }}{{ .AxisNo }} {{ .Name }} {{ .EGU }}
{{ end }}`), 0o644))

	opts := testOptions()
	opts.Template = path
	b, err := NewBuilder(opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.Build(p, &buf))
	assert.Equal(t, "1 Axis:1 mm\n", buf.String())
}

func TestTemplateErrors(t *testing.T) {
	dir := t.TempDir()

	opts := testOptions()
	opts.Template = filepath.Join(dir, "missing.tmpl")
	_, err := NewBuilder(opts)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte(`{{ range .Motors }`), 0o644))
	opts.Template = bad
	_, err = NewBuilder(opts)
	assert.ErrorContains(t, err, "bad.tmpl")

	unknown := filepath.Join(dir, "unknown.tmpl")
	require.NoError(t, os.WriteFile(unknown, []byte(`{{ .Nope }}`), 0o644))
	opts.Template = unknown
	b, err := NewBuilder(opts)
	require.NoError(t, err)
	assert.Error(t, b.Build(loadFixture(t, nil), &bytes.Buffer{}))
}

func TestMotorResolutionErrorsPropagate(t *testing.T) {
	p := loadFixture(t, map[string]string{
		twincattest.PLCFile: replaceOnce(twincattest.PLCXti, "Axes^Axis 1", "Axes^Axis 9"),
	})
	b, err := NewBuilder(testOptions())
	require.NoError(t, err)
	assert.ErrorIs(t, b.Build(p, &bytes.Buffer{}), twincat.ErrMissingReference)
}

func replaceOnce(s, old, repl string) string {
	return strings.Replace(s, old, repl, 1)
}
