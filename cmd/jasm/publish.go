package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hokaccha/go-prettyjson"
	"github.com/jackc/pgx/v5"
	"github.com/risor-io/jasm/classfile"
	"github.com/risor-io/jasm/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var storeKinds = []string{"file", "s3", "postgres"}

func newPublishCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish FILE",
		Short: "Publish a class file to a directory, S3 or PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(v)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := classfile.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			name := v.GetString("store.name")
			if name == "" {
				name = f.This
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, closeStore, err := openStore(ctx, v, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			receipt, err := s.Put(ctx, name, data)
			if err != nil {
				return err
			}
			return printReceipt(cmd, v.GetString("output"), receipt)
		},
	}
	cmd.Flags().String("store", "file", "store kind: file, s3 or postgres")
	cmd.Flags().String("name", "", "class name to publish under (default: the class's own name)")
	cmd.Flags().String("dir", "classes", "directory of the file store")
	cmd.Flags().String("bucket", "", "S3 bucket")
	cmd.Flags().String("prefix", "", "S3 key prefix")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().StringP("output", "o", "text", "output format: text or json")
	cmd.RegisterFlagCompletionFunc("store", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return storeKinds, cobra.ShellCompDirectiveNoFileComp
	})
	v.BindPFlag("store.kind", cmd.Flags().Lookup("store"))
	v.BindPFlag("store.name", cmd.Flags().Lookup("name"))
	v.BindPFlag("store.dir", cmd.Flags().Lookup("dir"))
	v.BindPFlag("store.s3.bucket", cmd.Flags().Lookup("bucket"))
	v.BindPFlag("store.s3.prefix", cmd.Flags().Lookup("prefix"))
	v.BindPFlag("store.postgres.url", cmd.Flags().Lookup("database-url"))
	v.BindPFlag("output", cmd.Flags().Lookup("output"))
	return cmd
}

// openStore builds the configured store and a function releasing its
// resources.
func openStore(ctx context.Context, v *viper.Viper, logger zerolog.Logger) (store.Store, func(), error) {
	opts := []store.Option{store.WithLogger(logger)}
	noop := func() {}
	switch kind := v.GetString("store.kind"); kind {
	case "file":
		return store.NewFileStore(v.GetString("store.dir"), opts...), noop, nil
	case "s3":
		client, err := newS3Client(ctx, v)
		if err != nil {
			return nil, nil, err
		}
		return store.NewS3Store(client, v.GetString("store.s3.bucket"), v.GetString("store.s3.prefix"), opts...), noop, nil
	case "postgres":
		url := v.GetString("store.postgres.url")
		if url == "" {
			return nil, nil, fmt.Errorf("store.postgres.url is not set")
		}
		conn, err := pgx.Connect(ctx, url)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		closeConn := func() { conn.Close(context.Background()) }
		s := store.NewPGStore(conn, opts...)
		if err := s.EnsureSchema(ctx); err != nil {
			closeConn()
			return nil, nil, err
		}
		return s, closeConn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (expected one of %v)", kind, storeKinds)
	}
}

func newS3Client(ctx context.Context, v *viper.Viper) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(v.GetString("store.s3.region")),
	}
	if key := v.GetString("store.s3.access_key_id"); key != "" {
		provider := credentials.NewStaticCredentialsProvider(key, v.GetString("store.s3.secret_access_key"), "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(provider))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = v.GetBool("store.s3.path_style")
		if n := v.GetInt("store.s3.max_attempts"); n > 0 {
			o.RetryMaxAttempts = n
		}
	}), nil
}

func printReceipt(cmd *cobra.Command, format string, r store.Receipt) error {
	switch format {
	case "json":
		out, err := prettyjson.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	case "text", "":
		fmt.Fprintf(cmd.OutOrStdout(), "published %s as %s\n  id:     %s\n  sha256: %s\n  size:   %d\n",
			r.Name, r.Location, r.ID, r.Digest, r.Size)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}
