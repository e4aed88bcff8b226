package ig

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, topModule()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "module_dump", buf.Bytes())
}

func TestDumpPendingModule(t *testing.T) {
	m := &Module{Signature: "WORK.E(A)"}
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, m))
	require.Equal(t, "module WORK.E(A) [pending]\n", buf.String())
}
