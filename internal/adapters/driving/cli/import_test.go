package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

func TestImportCmd_MultiDocumentYAML(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()

	path := writeFile(t, "bundle.yaml", `
resourceType: Patient
id: P1
birthDate: 1980-01-01
name:
  - family: Smith
---
resourceType: Observation
id: O1
status: final
subject:
  reference: Patient/P1
valueQuantity:
  value: 7.5
---
resourceType: Patient
id: P1
name:
  - family: Jones
`)

	out, err := run(t, "import", path, "--rate", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 resources (2 created, 1 updated, 0 failed)")

	doc, err := env.store.Get(t.Context(), domain.ResourceKey{Type: "Observation", ID: "O1"})
	require.NoError(t, err)
	assert.Equal(t, domain.CompartmentIndices{"Patient": {"P1"}}, doc.CompartmentIndices)
	assert.Equal(t, "7.5", doc.SortIndex()["value-quantity"].High.Value)
}

func TestImportCmd_JSONFile(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := run(t, "import", writeFile(t, "p.json", `{"resourceType":"Patient","id":"P1"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 resources (1 created, 0 updated, 0 failed)")
}

func TestImportCmd_ReportsFailures(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()
	require.NoError(t, env.config.Set("policy.types.Observation.update_create", false))

	path := writeFile(t, "bundle.yaml", `
resourceType: Patient
id: P1
---
resourceType: Observation
id: O1
`)

	out, err := run(t, "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 resources failed")
	assert.Contains(t, out, "Observation/O1")
	assert.Equal(t, 1, env.store.Len())
}

func TestImportCmd_RejectsNegativeRate(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := run(t, "import", writeFile(t, "p.json", `{"resourceType":"Patient"}`), "--rate", "-1")
	assert.Error(t, err)
}

func TestDecodeResources(t *testing.T) {
	resources, err := decodeResources([]byte("resourceType: Patient\nid: A\n---\n---\nresourceType: Patient\nid: B\n"))
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "A", resources[0].ID)
	assert.Equal(t, "B", resources[1].ID)

	_, err = decodeResources([]byte(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = decodeResources([]byte("id: A\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = decodeResources([]byte("resourceType: [\n"))
	assert.Error(t, err)
}
