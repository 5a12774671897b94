package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var fixedID = uuid.Must(uuid.FromString("6ba7b810-9dad-41d1-80b4-00c04fd430c8"))

func fixedIDs() (uuid.UUID, error) { return fixedID, nil }

var data = []byte{0xca, 0xfe, 0xba, 0xbe}

func TestDigest(t *testing.T) {
	require.Equal(t, 64, len(Digest(data)))
	require.Equal(t, Digest(data), Digest(append([]byte{}, data...)))
	require.NotEqual(t, Digest(data), Digest(nil))
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"Hello", "com/example/Hello", "a/b$c"} {
		require.Nil(t, ValidateName(name), name)
	}
	for _, name := range []string{"", "/abs", "a/../b", "../a", "a//b", "a/", `a\b`, "./a"} {
		require.NotNil(t, ValidateName(name), name)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	s := NewFileStore(dir, WithIDGenerator(fixedIDs), WithLogger(zerolog.New(&logs)))
	r, err := s.Put(context.Background(), "com/example/Hello", data)
	require.Nil(t, err)
	require.Equal(t, fixedID, r.ID)
	require.Equal(t, "com/example/Hello", r.Name)
	require.Equal(t, Digest(data), r.Digest)
	require.Equal(t, 4, r.Size)
	require.Equal(t, filepath.Join(dir, "com", "example", "Hello.class"), r.Location)

	written, err := os.ReadFile(r.Location)
	require.Nil(t, err)
	require.Equal(t, data, written)
	require.Contains(t, logs.String(), `"message":"class stored"`)

	_, err = s.Put(context.Background(), "../escape", data)
	require.NotNil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, "Hello", data)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestReceiptIDs(t *testing.T) {
	s := NewFileStore(t.TempDir())
	a, err := s.Put(context.Background(), "A", data)
	require.Nil(t, err)
	b, err := s.Put(context.Background(), "A", data)
	require.Nil(t, err)
	require.NotEqual(t, uuid.Nil, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, byte(4), a.ID.Version())

	failing := NewFileStore(t.TempDir(), WithIDGenerator(func() (uuid.UUID, error) {
		return uuid.Nil, errors.New("no entropy")
	}))
	_, err = failing.Put(context.Background(), "A", data)
	require.ErrorContains(t, err, "no entropy")
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := &fakeS3{}
	s := NewS3Store(client, "artifacts", "classes/v1", WithIDGenerator(fixedIDs))
	r, err := s.Put(context.Background(), "com/example/Hello", data)
	require.Nil(t, err)
	require.Equal(t, "s3://artifacts/classes/v1/com/example/Hello.class", r.Location)
	require.Equal(t, "artifacts", aws.ToString(client.input.Bucket))
	require.Equal(t, "classes/v1/com/example/Hello.class", aws.ToString(client.input.Key))
	require.Equal(t, ContentType, aws.ToString(client.input.ContentType))
	require.Equal(t, fixedID.String(), client.input.Metadata["jasm-id"])
	require.Equal(t, r.Digest, client.input.Metadata["jasm-sha256"])
	require.Equal(t, data, client.body)

	require.Equal(t, "Hello.class", NewS3Store(client, "b", "").Key("Hello"))

	_, err = NewS3Store(client, "", "").Put(context.Background(), "Hello", data)
	require.ErrorContains(t, err, "bucket is not set")

	client.err = errors.New("access denied")
	_, err = s.Put(context.Background(), "Hello", data)
	require.ErrorContains(t, err, "access denied")
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	tag   string
	err   error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: arguments})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func TestPGStore(t *testing.T) {
	db := &fakeDB{tag: "INSERT 0 1"}
	s := NewPGStore(db, WithIDGenerator(fixedIDs))
	require.Nil(t, s.EnsureSchema(context.Background()))
	require.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS classes")

	r, err := s.Put(context.Background(), "Hello", data)
	require.Nil(t, err)
	require.Equal(t, "postgres:classes/"+fixedID.String(), r.Location)
	require.Len(t, db.calls, 2)
	require.Equal(t, insertClass, db.calls[1].sql)
	require.Equal(t, []any{fixedID.String(), "Hello", r.Digest, 4, data}, db.calls[1].args)

	db.tag = "INSERT 0 0"
	_, err = s.Put(context.Background(), "Hello", data)
	require.ErrorContains(t, err, "affected 0 rows")

	db.err = errors.New("connection refused")
	_, err = s.Put(context.Background(), "Hello", data)
	require.ErrorContains(t, err, "connection refused")
	require.ErrorContains(t, s.EnsureSchema(context.Background()), "creating schema")
}
