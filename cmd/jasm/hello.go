package main

import (
	"context"
	"fmt"

	"github.com/risor-io/jasm"
	"github.com/risor-io/jasm/host"
	"github.com/risor-io/jasm/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHelloCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Assemble a class whose main method prints a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(v)
			name, _ := cmd.Flags().GetString("name")
			message, _ := cmd.Flags().GetString("message")
			dir, _ := cmd.Flags().GetString("out")
			run, _ := cmd.Flags().GetBool("run")

			opts, err := assemblerOptions(v, logger)
			if err != nil {
				return err
			}
			data, err := assembleHello(name, message, opts...)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			receipt, err := store.NewFileStore(dir, store.WithLogger(logger)).Put(ctx, name, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, sha256 %s)\n",
				receipt.Location, receipt.Size, receipt.Digest)
			if run {
				return runClass(ctx, cmd, logger, name, data)
			}
			return nil
		},
	}
	cmd.Flags().String("name", "HelloWorld", "internal name of the class")
	cmd.Flags().String("message", "Hello World", "message printed by main")
	cmd.Flags().StringP("out", "o", ".", "output directory")
	cmd.Flags().Bool("run", false, "run the class with java after writing it")
	return cmd
}

// assembleHello builds a class with a static main method that prints message.
func assembleHello(name, message string, opts ...jasm.Option) ([]byte, error) {
	a := jasm.New(opts...)
	cb := a.BeginClass(name, jasm.DefaultClassFlags)
	mb := cb.BeginMethod(jasm.DefaultMethodFlags, "main", "([Ljava/lang/String;)V")
	mb.Parameter("args").
		GetStatic("java/lang/System", "out", "Ljava/io/PrintStream;").
		LoadString(message).
		InvokeVirtual("java/io/PrintStream", "println", "(Ljava/lang/String;)V").
		Return()
	if err := mb.End(); err != nil {
		return nil, err
	}
	if _, err := cb.End(); err != nil {
		return nil, err
	}
	return a.Write()
}

func runClass(ctx context.Context, cmd *cobra.Command, logger zerolog.Logger, name string, data []byte) error {
	loader := host.NewJavaLoader(logger)
	if !loader.Available() {
		return fmt.Errorf("java not found in PATH")
	}
	inv, err := loader.Load(ctx, name, data)
	if err != nil {
		return err
	}
	defer inv.(*host.JavaClass).Close()
	out, err := inv.Invoke(ctx)
	cmd.OutOrStdout().Write(out)
	return err
}
