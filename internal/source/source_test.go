package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot_TaggedArray(t *testing.T) {
	data := []byte(`[
		{"_claimType": "ramq", "id": "r1", "status": "draft"},
		{"_claimType": "federal", "id": "f1", "status": "paid"}
	]`)

	rows, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.ClaimTypeRAMQ, rows[0].Type)
	assert.Equal(t, "r1", rows[0].Row["id"])
	_, tagged := rows[0].Row[TagKey]
	assert.False(t, tagged, "tag should be stripped from the row")
	assert.Equal(t, model.ClaimTypeFederal, rows[1].Type)
}

func TestDecodeSnapshot_GroupedObject(t *testing.T) {
	data := []byte(`{"claims": {
		"federal": [{"id": "f1"}],
		"zeta": [{"id": "z1"}],
		"ramq": [{"id": "r1"}, {"id": "r2"}],
		"alpha": [{"id": "a1"}]
	}}`)

	rows, err := DecodeSnapshot(data)
	require.NoError(t, err)

	var ids []string
	var types []model.ClaimType
	for _, r := range rows {
		ids = append(ids, r.Row["id"].(string))
		types = append(types, r.Type)
	}
	assert.Equal(t, []string{"r1", "r2", "f1", "a1", "z1"}, ids)
	assert.Equal(t, model.ClaimType("alpha"), types[3])
	assert.Equal(t, model.ClaimType("zeta"), types[4])
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	cases := map[string]string{
		"scalar":        `42`,
		"empty":         ``,
		"no claims key": `{"rows": []}`,
		"broken":        `[{"id": }]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeSnapshot_NestedLines(t *testing.T) {
	data := []byte(`[{"_claimType": "ramq", "id": "r1", "act_codes": [{"code": "A1", "fee": 10.5}]}]`)

	rows, err := DecodeSnapshot(data)
	require.NoError(t, err)

	lines, ok := rows[0].Row["act_codes"].([]any)
	require.True(t, ok)
	line, ok := lines[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A1", line["code"])
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"_claimType": "diplomatic", "id": "d1"}]`), 0o600))

	src := NewFileSource(path)
	assert.Equal(t, path, src.Name())
	assert.Equal(t, "file", src.Key())

	rows, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.ClaimTypeDiplomatic, rows[0].Type)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	assert.Error(t, err)
}

func TestOpener_Open(t *testing.T) {
	opener := NewOpener(model.SourcesConfig{
		Minio: model.MinioConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"},
	})
	ctx := context.Background()

	src, err := opener.Open(ctx, "testdata/snapshot.json")
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	src, err = opener.Open(ctx, "file:///tmp/snapshot.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/snapshot.json", src.Name())

	src, err = opener.Open(ctx, "minio://claims/2026/10/snapshot.json")
	require.NoError(t, err)
	assert.Equal(t, "minio://claims/2026/10/snapshot.json", src.Name())
	assert.Equal(t, "minio:localhost:9000", src.Key())

	require.NoError(t, opener.Close())
}

func TestOpener_Unsupported(t *testing.T) {
	opener := NewOpener(model.SourcesConfig{})
	ctx := context.Background()

	for _, uri := range []string{"", "ftp://host/file", "minio://bucket-only", "postgres://", "file://"} {
		_, err := opener.Open(ctx, uri)
		assert.ErrorIs(t, err, ErrUnsupportedURI, "uri %q", uri)
	}
}

func TestOpener_UnconfiguredBackends(t *testing.T) {
	opener := NewOpener(model.SourcesConfig{})
	ctx := context.Background()

	_, err := opener.Open(ctx, "postgres://user-1")
	assert.Error(t, err)

	_, err = opener.Open(ctx, "minio://bucket/object.json")
	assert.Error(t, err)
}
