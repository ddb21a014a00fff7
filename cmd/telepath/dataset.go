package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"telepath/internal/store"
	"telepath/internal/types"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the subject catalogue",
	Long: `Inspect or extend the catalogue of subjects the engine can guess.
Without a configured database the embedded seed dataset is used read-only;
importing creates or updates the SQLite catalogue at dataset.database_path.`,
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every subject in the active catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		subjects, err := store.LoadCatalogue(cfg.Dataset.DatabasePath)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tFICTIONAL\tATTRIBUTES")
		for _, s := range subjects {
			fmt.Fprintf(w, "%s\t%s\t%v\t%d\n", s.Name, s.Category, s.Fictional, len(s.Attributes))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d subjects\n", len(subjects))
		return nil
	},
}

var datasetVersion string

var datasetImportCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Import subjects from a JSON file into the SQLite catalogue",
	Long: `Imports subjects into the catalogue database. The file holds a JSON
array of subjects:

  [{"name": "...", "category": "...", "fictional": true,
    "facts": ["..."], "attributes": {"gender": "male"}}]

Existing subjects with the same name are updated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Dataset.DatabasePath == "" {
			return fmt.Errorf("dataset.database_path is not configured (or set TELEPATH_DB)")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		var subjects []types.Subject
		if err := json.Unmarshal(data, &subjects); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}
		if len(subjects) == 0 {
			return fmt.Errorf("%s contains no subjects", args[0])
		}

		db, err := store.NewSubjectStore(cfg.Dataset.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Import(subjects, datasetVersion); err != nil {
			return err
		}
		count, err := db.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d subjects (%d total in catalogue)\n", len(subjects), count)
		return nil
	},
}

var datasetSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the embedded seed dataset into the SQLite catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Dataset.DatabasePath == "" {
			return fmt.Errorf("dataset.database_path is not configured (or set TELEPATH_DB)")
		}

		subjects, version, err := store.LoadSeed()
		if err != nil {
			return err
		}
		db, err := store.NewSubjectStore(cfg.Dataset.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Import(subjects, version); err != nil {
			return err
		}
		fmt.Printf("Seeded %d subjects (dataset version %s)\n", len(subjects), version)
		return nil
	},
}

func init() {
	datasetImportCmd.Flags().StringVar(&datasetVersion, "version", "custom", "dataset version label recorded with the import")
	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetSeedCmd)
}
