package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloud-ru/mcp-fintools-go/internal/storage"
)

func addStorageCommands(rootCmd *cobra.Command, app *App) {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Back up, restore and migrate stored data",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			_, err := app.Storage()
			return err
		},
	}
	storageCmd.AddCommand(
		newStorageExportCmd(app),
		newStorageImportCmd(app),
		newStorageMigrateCmd(app),
	)
	rootCmd.AddCommand(storageCmd)
}

func newStorageExportCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored data as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.store.Export(cmd.Context())
			if err != nil {
				return err
			}
			if file == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(file, data, 0o600)
		},
	}
	cmd.Flags().StringVarP(&file, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func newStorageImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON backup, overwriting matching keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n, err := app.store.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			NewOutput(cmd).Printf("Imported %d keys into %s storage\n", n, app.store.Mode())
			return nil
		},
	}
}

func newStorageMigrateCmd(app *App) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy all data from the current storage mode to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			from := app.store.Mode()
			n, err := app.store.Migrate(cmd.Context(), from, storage.Mode(to))
			if err != nil {
				return err
			}
			app.Logger.Info().Str("from", string(from)).Str("to", to).Int("keys", n).Msg("storage migrated")
			NewOutput(cmd).Printf("Copied %d keys from %s to %s; set STORAGE_MODE=%s to switch\n", n, from, to, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", string(storage.ModeSQLite), "target mode: local or sqlite")
	return cmd
}
