package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bamsammich/fdeploy/internal/config"
)

//go:embed starter.yml
var starterSettings []byte

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Write a starter settings file",
	Long: `Write a commented starter settings file to the current folder.

With no name the file is fdeploy.yml; "fdeploy init staging" writes
fdeploy-staging.yml. Existing files are left alone unless --force is given.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force") //nolint:errcheck // flag name is hardcoded
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		path, err := writeStarter(afero.NewOsFs(), config.SettingsPath(name), force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing settings file")
}

func writeStarter(fs afero.Fs, path string, force bool) (string, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := fs.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(starterSettings); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}
