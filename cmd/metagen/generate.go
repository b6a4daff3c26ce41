package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhump/metatype/codegen"
	"github.com/jhump/metatype/config"
)

func newGenerateCommand(opts *globalOptions) *cobra.Command {
	var (
		pkgPath   string
		pkgName   string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go code that registers the declarations",
		Long: `Generate a Go file whose init function registers the declarations in the
given files with metatype.DefaultRegistry, along with their override
extractors. The file is named after the package, as <package>.annos.go.

Without --output-dir the file is written to the directory of the package,
which must already exist. With --output-dir, the file is written to
<output-dir>/<package-path>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pkgPath == "" {
				return errors.New("--package-path is required")
			}
			if len(opts.configs) == 0 {
				return errors.New("no declaration files given; use --config")
			}
			files := make([]*config.File, len(opts.configs))
			for i, path := range opts.configs {
				f, err := config.Load(path)
				if err != nil {
					return err
				}
				files[i] = f
			}

			var written string
			factory := codegen.DefaultOutputFactory(outputDir)
			cfg := codegen.Config{
				Package:     pkgName,
				PackagePath: pkgPath,
				Files:       files,
				OutputFactory: func(path string) (io.WriteCloser, error) {
					written = path
					return factory(path)
				},
			}
			if err := cfg.Execute(); err != nil {
				return err
			}
			opts.log.Info("generated registration code", "file", written, "inputs", len(files))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", written)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&pkgPath, "package-path", "", "import path of the generated package")
	flags.StringVar(&pkgName, "package", "", "name of the generated package (default: last element of --package-path)")
	flags.StringVar(&outputDir, "output-dir", "", "root directory for generated files")
	return cmd
}
