package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fwbuilder/internal/templates"
)

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{ConfigurationH, ConfigurationAdvH}, Templates())

	doc, err := Document(ConfigurationH)
	require.NoError(t, err)
	assert.Contains(t, doc.Tags(), "#{BAUDRATE}")

	_, err = Document("Missing.h")
	require.Error(t, err)
}

func TestDefaultOptions(t *testing.T) {
	set, err := DefaultOptions()
	require.NoError(t, err)

	baud, ok := set.Get("BAUDRATE")
	require.True(t, ok)
	assert.Equal(t, int64(250000), baud.Value.Int())
	assert.Equal(t, "machine", baud.Category)
}

// Every embedded binding resolves against the defaults, and every template tag
// but the forward-compatibility placeholder is bound.
func TestCatalogIsConsistent(t *testing.T) {
	set, err := DefaultOptions()
	require.NoError(t, err)
	specs, err := Bindings()
	require.NoError(t, err)

	b, err := templates.Bind(set, specs)
	require.NoError(t, err)

	var unbound []string
	for _, name := range Templates() {
		doc, err := Document(name)
		require.NoError(t, err)
		report := templates.RenderWithReport(doc, b)
		assert.Equal(t, doc.Len(), len(report.Lines))
		unbound = append(unbound, report.Unbound...)
	}
	assert.Equal(t, []string{"#{HOST_ACTION_COMMANDS}"}, unbound)
}

func TestDefaultRender(t *testing.T) {
	set, err := DefaultOptions()
	require.NoError(t, err)
	specs, err := Bindings()
	require.NoError(t, err)
	b, err := templates.Bind(set, specs)
	require.NoError(t, err)
	doc, err := Document(ConfigurationH)
	require.NoError(t, err)

	out := strings.Join(templates.Render(doc, b), "\n")

	assert.Contains(t, out, "#define MOTHERBOARD BOARD_RAMPS_14_EFB\n")
	assert.Contains(t, out, "#define TEMP_SENSOR_0 1\n")
	assert.Contains(t, out, "#define DEFAULT_AXIS_STEPS_PER_UNIT { 80, 80, 400, 93 }\n")
	assert.Contains(t, out, "//#define NOZZLE_TO_PROBE_OFFSET\n")
	assert.Contains(t, out, "#define DEFAULT_Kp 22.20\n")
	assert.Contains(t, out, `#define PREHEAT_1_LABEL "PLA"`)
	assert.Contains(t, out, "//#define CUSTOM_MACHINE_NAME\n")
	assert.NotContains(t, out, "#{")
}
