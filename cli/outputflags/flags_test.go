package outputflags

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

func (r report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %d rows\n", r.Name, r.Rows)
	return err
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	f := Flags{Format: "text", outputFile: path}
	require.NoError(t, f.Init())
	require.NoError(t, f.Write(report{"a", 3}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: 3 rows\n", string(b))

	f.Format = "json"
	require.NoError(t, f.Write(report{"a", 3}))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","rows":3}`, string(b))

	f.Format = "zng"
	assert.Error(t, f.Init())
}
