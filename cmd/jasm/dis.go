package main

import (
	"fmt"
	"os"

	"github.com/risor-io/jasm/classfile"
	"github.com/risor-io/jasm/dis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDisCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "dis FILE",
		Short: "Disassemble a class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readClassFile(args[0])
			if err != nil {
				return err
			}
			logger := newLogger(v)
			logger.Debug().Str("file", args[0]).Str("class", f.This).Msg("disassembling")
			return dis.Print(f, cmd.OutOrStdout())
		},
	}
}

func readClassFile(path string) (*classfile.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
