package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
modules:
  - name: System
    events:
      - name: ExtrinsicSuccess
        args: [u32]
      - name: NewAccount
        args: [T::AccountId]
  - name: OracleModule
    index: 7
    events:
      - name: OracleCreated
        index: 2
        args: [OracleId, T::AccountId]
`

func TestParseAndLookup(t *testing.T) {
	idx, err := Parse([]byte(schemaYAML))
	require.NoError(t, err)

	assert.True(t, idx.Topics())
	assert.Equal(t, []string{"System", "OracleModule"}, idx.Modules())

	meta, err := idx.Lookup(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "System", meta.Module)
	assert.Equal(t, "NewAccount", meta.Name)
	assert.Equal(t, "AccountId", meta.ArgTypes[0].Name)

	meta, err = idx.Lookup(7, 2)
	require.NoError(t, err)
	assert.Equal(t, "OracleCreated", meta.Name)
	assert.Equal(t, []string{"OracleId", "T::AccountId"}, meta.Args)

	_, err = idx.Lookup(7, 0)
	assert.True(t, errors.Is(err, ErrUnknownVariant))

	byName, ok := idx.Event("OracleModule", "OracleCreated")
	require.True(t, ok)
	assert.Equal(t, uint8(7), byName.ModuleIndex)

	_, ok = idx.Event("oraclemodule", "OracleCreated")
	assert.False(t, ok, "lookups are case-sensitive")
}

func TestParseJSONWithoutTopics(t *testing.T) {
	idx, err := Parse([]byte(`{"topics": false, "modules": [{"name": "Balances", "events": [{"name": "Transfer", "args": ["AccountId", "AccountId", "Balance"]}]}]}`))
	require.NoError(t, err)
	assert.False(t, idx.Topics())

	meta, err := idx.Lookup(0, 0)
	require.NoError(t, err)
	assert.Len(t, meta.ArgTypes, 3)
}

func TestNewRejectsInvalidDocuments(t *testing.T) {
	seven := uint8(7)
	tests := []struct {
		name string
		doc  Document
	}{
		{
			name: "duplicate module",
			doc:  Document{Modules: []ModuleDocument{{Name: "A"}, {Name: "A"}}},
		},
		{
			name: "duplicate module index",
			doc:  Document{Modules: []ModuleDocument{{Name: "A", Index: &seven}, {Name: "B", Index: &seven}}},
		},
		{
			name: "duplicate event",
			doc: Document{Modules: []ModuleDocument{{Name: "A", Events: []EventDocument{
				{Name: "E"}, {Name: "E"},
			}}}},
		},
		{
			name: "bad type",
			doc: Document{Modules: []ModuleDocument{{Name: "A", Events: []EventDocument{
				{Name: "E", Args: []string{"Vec<u8"}},
			}}}},
		},
		{
			name: "missing name",
			doc:  Document{Modules: []ModuleDocument{{}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schemaYAML), 0o644))

	idx, err := Load(path)
	require.NoError(t, err)
	_, ok := idx.Event("System", "ExtrinsicSuccess")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadExampleSchema(t *testing.T) {
	idx, err := Load(filepath.Join("..", "..", "configs", "schema.example.yaml"))
	require.NoError(t, err)

	meta, ok := idx.Event("OracleModule", "OracleCreated")
	require.True(t, ok)
	assert.Equal(t, uint8(9), meta.ModuleIndex)
	assert.Equal(t, uint8(0), meta.EventIndex)
	assert.Equal(t, []string{"OracleId", "T::AccountId"}, meta.Args)
	assert.Equal(t, []string{"System", "Balances", "OracleModule"}, idx.Modules())
}

func TestParseKeepsOpaqueGenericArgs(t *testing.T) {
	idx, err := Parse([]byte(`
modules:
  - name: Assets
    events:
      - name: MetadataSet
        args: [AssetId, "BoundedVec<u8, T::StringLimit>"]
      - name: Executed
        args: ["Result<(), DispatchError>"]
  - name: OracleModule
    events:
      - name: OracleCreated
        args: [OracleId, T::AccountId]
`))
	require.NoError(t, err)

	meta, ok := idx.Event("Assets", "MetadataSet")
	require.True(t, ok)
	assert.Equal(t, ExprVec, meta.ArgTypes[1].Kind)
	assert.Equal(t, "Vec<u8>", meta.ArgTypes[1].String())

	meta, ok = idx.Event("Assets", "Executed")
	require.True(t, ok)
	assert.Equal(t, TypeExpr{Kind: ExprNamed, Name: "Result<(), DispatchError>"}, meta.ArgTypes[0])

	_, ok = idx.Event("OracleModule", "OracleCreated")
	assert.True(t, ok)
}
