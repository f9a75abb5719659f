package s3store

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbxmcp/internal/domain"
)

func testStore(t *testing.T, keyPrefix string) *Store {
	t.Helper()
	store, err := New(Config{
		Client:    s3.New(s3.Options{Region: "us-east-1"}),
		Bucket:    "test-bucket",
		KeyPrefix: keyPrefix,
	})
	require.NoError(t, err)
	return store
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Bucket: "b"})
	require.Error(t, err)

	_, err = New(Config{Client: s3.New(s3.Options{})})
	require.Error(t, err)
}

func TestKeyMapping(t *testing.T) {
	store := testStore(t, "")

	assert.Equal(t, "docs/report.pdf", store.keyFor("/docs/report.pdf"))
	assert.Equal(t, "docs/report.pdf", store.keyFor("docs/report.pdf"))
	assert.Equal(t, "", store.keyFor("/"))
	assert.Equal(t, "/docs/report.pdf", store.pathFor("docs/report.pdf"))

	assert.Equal(t, "docs/", store.dirPrefix("/docs"))
	assert.Equal(t, "docs/", store.dirPrefix("/docs/"))
	assert.Equal(t, "", store.dirPrefix(""))
	assert.Equal(t, "", store.dirPrefix("/"))
}

func TestKeyMappingWithPrefix(t *testing.T) {
	store := testStore(t, "tenants/a/")

	assert.Equal(t, "tenants/a/docs/x.txt", store.keyFor("/docs/x.txt"))
	assert.Equal(t, "/docs/x.txt", store.pathFor("tenants/a/docs/x.txt"))
	assert.Equal(t, "tenants/a/docs/", store.dirPrefix("/docs"))
	assert.Equal(t, "tenants/a/", store.dirPrefix("/"))
}

func TestCursorRoundTrip(t *testing.T) {
	original := listCursor{
		Token:     "next-token-123",
		Prefix:    "docs/",
		Delimiter: "/",
		MaxKeys:   500,
	}

	decoded, err := decodeCursor(encodeCursor(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := decodeCursor("not-base64!!!")
	require.Error(t, err)

	_, err = decodeCursor("bm90IGpzb24=")
	require.Error(t, err)
}

func TestObjectEntry(t *testing.T) {
	store := testStore(t, "")
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entry := store.objectEntry("docs/a.txt", aws.Int64(42), &modified, aws.String(`"etag123"`))

	assert.Equal(t, "a.txt", entry.Name)
	assert.Equal(t, "/docs/a.txt", entry.PathDisplay)
	assert.Equal(t, domain.EntryFile, entry.Type)
	assert.Equal(t, int64(42), entry.Size)
	assert.Equal(t, modified, entry.ServerModified)
	assert.Equal(t, "etag123", entry.Rev)
	assert.True(t, entry.IsDownloadable)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, hasExtension("report.pdf", []string{"pdf", "docx"}))
	assert.False(t, hasExtension("report.pdf", []string{"txt"}))
	assert.False(t, hasExtension("noext", []string{"pdf"}))
}

func TestCopySourceEscapesPercent(t *testing.T) {
	assert.Equal(t, "bucket/docs/file.txt", copySource("bucket", "docs/file.txt"))
	assert.Equal(t, "bucket/docs/100%2525.txt", copySource("bucket", "docs/100%25.txt"))
}
