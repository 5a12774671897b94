package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/risor-io/jasm/classfile"
	"github.com/risor-io/jasm/store"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldNoColor := color.NoColor
	defer func() { color.NoColor = oldNoColor }()
	var out bytes.Buffer
	root := newRootCmd(newConfig())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestHelloCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "hello", "--out", dir, "--log-level", "error")
	require.Nil(t, err)
	path := filepath.Join(dir, "HelloWorld.class")
	require.Contains(t, out, "wrote "+path+" (284 bytes")

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	require.Equal(t, store.Digest(data), store.Digest(mustHello(t)))
}

func TestHelloCommandOptions(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "hello", "--out", dir, "--name", "demo/Greeter", "--message", "hi", "--computed-limits")
	require.Nil(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "demo", "Greeter.class"))
	require.Nil(t, err)
	f, err := classfile.Parse(data)
	require.Nil(t, err)
	require.Equal(t, "demo/Greeter", f.This)
	require.Equal(t, uint16(2), f.Methods[0].Code.MaxStack)
	require.Equal(t, uint16(1), f.Methods[0].Code.MaxLocals)
}

func TestDisCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "HelloWorld.class")
	require.Nil(t, os.WriteFile(path, mustHello(t), 0o644))
	out, err := execute(t, "dis", path)
	require.Nil(t, err)
	require.Contains(t, out, "class HelloWorld extends java/lang/Object")
	require.Contains(t, out, "getstatic")
	require.Contains(t, out, `"Hello World"`)

	require.Nil(t, os.WriteFile(path, []byte("not a class"), 0o644))
	_, err = execute(t, "dis", path)
	require.ErrorContains(t, err, "bad magic")

	_, err = execute(t, "dis")
	require.NotNil(t, err)
}

func TestPublishFileStore(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.class")
	require.Nil(t, os.WriteFile(src, mustHello(t), 0o644))
	dest := filepath.Join(dir, "published")

	out, err := execute(t, "publish", src, "--store", "file", "--dir", dest, "--output", "json")
	require.Nil(t, err)
	var receipt store.Receipt
	require.Nil(t, json.Unmarshal([]byte(out), &receipt))
	require.Equal(t, "HelloWorld", receipt.Name)
	require.Equal(t, 284, receipt.Size)
	require.Equal(t, filepath.Join(dest, "HelloWorld.class"), receipt.Location)

	out, err = execute(t, "publish", src, "--dir", dest, "--name", "copy/Hello")
	require.Nil(t, err)
	require.Contains(t, out, "published copy/Hello as "+filepath.Join(dest, "copy", "Hello.class"))
}

func TestPublishErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.class")
	require.Nil(t, os.WriteFile(src, mustHello(t), 0o644))

	_, err := execute(t, "publish", src, "--store", "ftp")
	require.ErrorContains(t, err, `unknown store "ftp"`)

	_, err = execute(t, "publish", src, "--store", "postgres")
	require.ErrorContains(t, err, "store.postgres.url is not set")

	_, err = execute(t, "publish", src, "--dir", dir, "--output", "xml")
	require.ErrorContains(t, err, `unknown output format "xml"`)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "jasm.yaml")
	require.Nil(t, os.WriteFile(cfg, []byte("major: 55\nmax_stack: 3\nmax_locals: 4\n"), 0o644))
	_, err := execute(t, "hello", "--config", cfg, "--out", dir)
	require.Nil(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "HelloWorld.class"))
	require.Nil(t, err)
	f, err := classfile.Parse(data)
	require.Nil(t, err)
	require.Equal(t, uint16(55), f.MajorVersion)
	require.Equal(t, uint16(3), f.Methods[0].Code.MaxStack)
	require.Equal(t, uint16(4), f.Methods[0].Code.MaxLocals)
}

func TestConfigOutOfRange(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "jasm.yaml")
	require.Nil(t, os.WriteFile(cfg, []byte("major: 65588\n"), 0o644))
	_, err := execute(t, "hello", "--config", cfg, "--out", dir)
	require.ErrorContains(t, err, "major is 65588, must be between 0 and 65535")
	_, err = os.Stat(filepath.Join(dir, "HelloWorld.class"))
	require.True(t, os.IsNotExist(err))

	t.Setenv("JASM_MAX_STACK", "70000")
	_, err = execute(t, "hello", "--out", dir)
	require.ErrorContains(t, err, "max_stack is 70000")

	t.Setenv("JASM_MAX_STACK", "-1")
	_, err = execute(t, "hello", "--out", dir)
	require.ErrorContains(t, err, "max_stack is -1")
}

func mustHello(t *testing.T) []byte {
	t.Helper()
	data, err := assembleHello("HelloWorld", "Hello World")
	require.Nil(t, err)
	return data
}
