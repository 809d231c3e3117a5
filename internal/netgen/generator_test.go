package netgen_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/dataset"
	"github.com/phenonet/phenonet/internal/netgen"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "generate.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func inputTables(t *testing.T) ([]*dataset.Table, *dataset.Table) {
	t.Helper()
	omics, err := dataset.NewTable(
		[]string{"s1", "s2"},
		[]string{"gene.a", "gene.b"},
		[][]float64{{1, 2}, {3, 4}},
	)
	require.NoError(t, err)
	pheno, err := dataset.NewTable(
		[]string{"s1", "s2"},
		[]string{dataset.PhenotypeColumn},
		[][]float64{{0}, {1}},
	)
	require.NoError(t, err)
	return []*dataset.Table{omics}, pheno
}

func TestScriptGeneratorParsesAdjacencyOutput(t *testing.T) {
	t.Parallel()

	// The script ignores its stdin payload and emits a fixed network.
	script := writeScript(t, `cat > /dev/null
printf ',gene.a,gene.b\ngene.a,0,0.7\ngene.b,0.7,0\n'`)

	omics, pheno := inputTables(t)
	gen := netgen.NewScriptGenerator(script)

	adj, err := gen.Generate(context.Background(), omics, pheno)
	require.NoError(t, err)
	assert.Equal(t, []string{"gene.a", "gene.b"}, adj.Nodes())
	assert.Equal(t, 0.7, adj.Weight(0, 1))
}

func TestScriptGeneratorSurfacesStderr(t *testing.T) {
	t.Parallel()

	script := writeScript(t, `cat > /dev/null
echo "convergence failure in sparse CCA" >&2
exit 3`)

	omics, pheno := inputTables(t)
	gen := netgen.NewScriptGenerator(script)

	_, err := gen.Generate(context.Background(), omics, pheno)
	var procErr *netgen.ExternalProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 3, procErr.ExitCode)
	assert.Contains(t, procErr.Stderr, "convergence failure")
	assert.Contains(t, err.Error(), "convergence failure")
}

func TestScriptGeneratorRejectsMalformedOutput(t *testing.T) {
	t.Parallel()

	script := writeScript(t, `cat > /dev/null
echo "this is not a csv table"`)

	omics, pheno := inputTables(t)
	gen := netgen.NewScriptGenerator(script)

	_, err := gen.Generate(context.Background(), omics, pheno)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing collaborator output")
}

func TestScriptGeneratorMissingCommand(t *testing.T) {
	t.Parallel()

	omics, pheno := inputTables(t)
	gen := netgen.NewScriptGenerator(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := gen.Generate(context.Background(), omics, pheno)
	var procErr *netgen.ExternalProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, -1, procErr.ExitCode)
}
