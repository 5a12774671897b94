// Package host hands assembled classes to a JVM. The assembler never
// interprets what the host does with a class: load and invocation failures
// are wrapped and returned as they are.
package host

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/risor-io/jasm/store"
	"github.com/rs/zerolog"
)

// Loader defines a class from its bytes.
type Loader interface {
	Load(ctx context.Context, name string, data []byte) (Invoker, error)
}

// Invoker runs the entry point of a loaded class.
type Invoker interface {
	Invoke(ctx context.Context, args ...string) ([]byte, error)
}

// JavaLoader loads classes by writing them to a temporary class path and
// running them with the java launcher.
type JavaLoader struct {
	// Java is the launcher command. Defaults to "java" from PATH.
	Java   string
	Logger zerolog.Logger
}

// NewJavaLoader returns a loader using the java launcher found in PATH.
func NewJavaLoader(logger zerolog.Logger) *JavaLoader {
	return &JavaLoader{Java: "java", Logger: logger}
}

// Available reports whether the launcher can be found.
func (l *JavaLoader) Available() bool {
	_, err := exec.LookPath(l.java())
	return err == nil
}

func (l *JavaLoader) java() string {
	if l.Java == "" {
		return "java"
	}
	return l.Java
}

// Load writes the class below a new temporary directory. Call Close on the
// returned invoker to remove it.
func (l *JavaLoader) Load(ctx context.Context, name string, data []byte) (Invoker, error) {
	dir, err := os.MkdirTemp("", "jasm-")
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	receipt, err := store.NewFileStore(dir, store.WithLogger(l.Logger)).Put(ctx, name, data)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("host: %w", err)
	}
	l.Logger.Debug().Str("class", name).Str("path", receipt.Location).Msg("class loaded")
	return &JavaClass{java: l.java(), dir: dir, name: strings.ReplaceAll(name, "/", "."), logger: l.Logger}, nil
}

// JavaClass is a class written to a class path directory.
type JavaClass struct {
	java   string
	dir    string
	name   string
	logger zerolog.Logger
}

// Dir returns the class path directory.
func (c *JavaClass) Dir() string {
	return c.dir
}

// Invoke runs "java -cp dir name args..." and returns its combined output.
func (c *JavaClass) Invoke(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"-cp", c.dir, c.name}, args...)
	cmd := exec.CommandContext(ctx, c.java, cmdArgs...)
	out, err := cmd.CombinedOutput()
	c.logger.Debug().Str("class", c.name).Strs("args", args).Err(err).Msg("class invoked")
	if err != nil {
		return out, fmt.Errorf("host: %s %s: %s: %w", c.java, c.name, strings.TrimSpace(string(out)), err)
	}
	return out, nil
}

// Close removes the class path directory.
func (c *JavaClass) Close() error {
	return os.RemoveAll(c.dir)
}
