package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSVSink_WriteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.tsv")
	fields, err := ParseFields([]string{"lineage", "current_energy", "x", "cause"})
	require.NoError(t, err)

	sink, err := NewTSVSink(path, fields)
	require.NoError(t, err)

	s := sampleSnapshot()
	s.Cause = "Detected"
	require.NoError(t, sink.Write(s))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "#lineage\t#current_energy\t#x\t#cause\n" +
		"c000001\t5e+19\t42.5\tDetected\n"
	assert.Equal(t, want, string(data))
}

func TestTSVSink_DefaultFieldsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	fields, err := ParseFields(nil)
	require.NoError(t, err)

	sink, err := NewTSVSink(path, fields)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"#serial\t#particle_id\t#source_energy\t#current_energy\t#x\t#redshift\t#trajectory_length\n",
		string(data))
}

func TestTSVSink_WriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	sink, err := NewTSVSink(path, DefaultFields())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Error(t, sink.Write(sampleSnapshot()))
	assert.NoError(t, sink.Close())
}

func TestParseFields_Unknown(t *testing.T) {
	_, err := ParseFields([]string{"lineage", "momentum"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output field "momentum"`)
}

func TestFieldSet_Columns_SchemaOrder(t *testing.T) {
	fields, err := ParseFields([]string{"cause", "serial", "x"})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldSerial, FieldX, FieldCause}, fields.Columns())
}
