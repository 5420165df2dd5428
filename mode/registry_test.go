package mode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func writeFullModeSet(t *testing.T, dir string) {
	t.Helper()
	writeModeFile(t, dir, "single.yaml", `
mode: SINGLE
root: root
nodes:
  root:
    name: assistant
    instruction: Be helpful.
`)
	writeModeFile(t, dir, "master-sub.yaml", `
mode: MASTER_SUB
fallbackMode: SINGLE
root: master
nodes:
  master:
    kind: LLM
    name: master
    instruction: Delegate work.
    subAgents: [worker]
  worker:
    kind: LLM
    name: worker
`)
	writeModeFile(t, dir, "workflow.json", `{
  "mode": "MULTI_WORKFLOW",
  "fallbackMode": "MASTER_SUB",
  "root": "pipeline",
  "nodes": {
    "pipeline": {"kind": "SEQUENTIAL", "name": "pipeline", "subAgents": ["fanout"]},
    "fanout": {"kind": "PARALLEL", "name": "fanout", "subAgents": ["a", "b"]},
    "a": {"kind": "LLM", "name": "a"},
    "b": {"kind": "LLM", "name": "b"}
  }
}`)
}

func TestRegistry_Reload_FullCoverage(t *testing.T) {
	dir := t.TempDir()
	writeFullModeSet(t, dir)

	reg := NewRegistry(dir, nil)
	require.NoError(t, reg.Reload())

	single, err := reg.Get(ModeSingle)
	require.NoError(t, err)
	// omitted kind defaults to LLM
	assert.Equal(t, KindLLM, single.Nodes["root"].Kind)

	workflow, err := reg.Get(ModeMultiWorkflow)
	require.NoError(t, err)
	assert.Equal(t, ModeMasterSub, workflow.FallbackMode)
	assert.Equal(t, KindParallel, workflow.Nodes["fanout"].Kind)
}

func TestRegistry_Reload_MissingModeFails(t *testing.T) {
	dir := t.TempDir()
	writeFullModeSet(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "workflow.json")))

	reg := NewRegistry(dir, nil)
	err := reg.Reload()

	assert.ErrorContains(t, err, "missing mode definitions")
	assert.ErrorContains(t, err, "MULTI_WORKFLOW")
}

func TestRegistry_Reload_KeepsPreviousSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFullModeSet(t, dir)

	reg := NewRegistry(dir, nil)
	require.NoError(t, reg.Reload())

	writeModeFile(t, dir, "single.yaml", `
mode: SINGLE
fallbackMode: SINGLE
root: root
nodes:
  root:
    name: assistant
`)
	assert.Error(t, reg.Reload())

	def, err := reg.Get(ModeSingle)
	require.NoError(t, err)
	assert.Empty(t, def.FallbackMode)
}

func TestRegistry_Reload_MissingDirectoryFails(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, reg.Reload())
}

func TestNewStaticRegistry_RequiresCoverage(t *testing.T) {
	_, err := NewStaticRegistry(validDefinition())
	assert.ErrorContains(t, err, "missing mode definitions")
}

func TestRegistry_Get_Unknown(t *testing.T) {
	reg := NewRegistry(t.TempDir(), nil)
	_, err := reg.Get(ModeSingle)
	assert.ErrorContains(t, err, "missing mode definition")
}
