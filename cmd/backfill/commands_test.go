package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/backfill"
	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/store"
)

func setupApp(t *testing.T, keys ...string) (opener, *store.Store) {
	t.Helper()

	db, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	signer, err := objectstore.NewSigner(bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)
	objects, err := objectstore.NewFS(t.TempDir(), "http://localhost:8080", signer, nil)
	require.NoError(t, err)
	for _, key := range keys {
		require.NoError(t, objects.Put(context.Background(), key, []byte("%PDF-1.4"), objectstore.PutOptions{}))
	}

	a := &app{
		runner: backfill.NewRunner(db, objects, "books/", nil),
		close:  func() error { return nil },
	}
	return func() (*app, error) { return a, nil }, db
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCmd_DryRun(t *testing.T) {
	open, db := setupApp(t, "books/Emma.pdf")

	out, err := execute(t, newRunCmd(open), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma.pdf")
	assert.Contains(t, out, "1 records would be considered")

	n, err := db.CountBooks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunCmd_WithSnapshot(t *testing.T) {
	open, db := setupApp(t, "books/Emma.pdf", "books/Persuasion.pdf")
	require.NoError(t, db.PutBook(context.Background(), &domain.Book{Filename: "Emma.pdf", Title: "Emma"}))
	path := filepath.Join(t.TempDir(), "before.parquet")

	out, err := execute(t, newRunCmd(open), "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "listed 2, created 1, skipped 1, failed 0")

	restoreOpen, restored := setupApp(t)
	out, err = execute(t, newRestoreCmd(restoreOpen), path)
	require.NoError(t, err)
	assert.Contains(t, out, "restored 1 records")

	got, err := restored.GetBookByFilename(context.Background(), "Emma.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Title)
}

func TestVerifyCmd(t *testing.T) {
	open, db := setupApp(t, "books/Emma.pdf")

	out, err := execute(t, newVerifyCmd(open))
	require.Error(t, err)
	assert.Contains(t, out, "missing\tEmma.pdf")

	_, err = execute(t, newRunCmd(open))
	require.NoError(t, err)
	n, err := db.CountBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err = execute(t, newVerifyCmd(open))
	require.NoError(t, err)
	assert.Contains(t, out, "in sync")
}

func TestSnapshotCmd_RequiresPath(t *testing.T) {
	open, _ := setupApp(t)

	_, err := execute(t, newSnapshotCmd(open))
	require.Error(t, err)
}
