package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

const testDesign = "testdata/design"

// executeCLI runs the root command with args. A config path inside a
// temporary directory keeps any hdlelab.yaml in the working directory out
// of the test.
func executeCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "hdlelab.yaml")}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "build.db")
}
