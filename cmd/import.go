package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jortega/karaokejam/internal/application/config"
	"github.com/jortega/karaokejam/internal/infra/adapters/sqlite"
	"github.com/jortega/karaokejam/internal/usecase"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import songs from a CSV file into the catalog",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.New()
		if err != nil {
			log.Fatalf("could not load config: %v", err)
		}

		db, err := sqlite.NewSQLite(cmd.Context(), cfg.Catalog.Path)
		if err != nil {
			log.Fatalf("could not open catalog: %v", err)
		}
		defer db.Close()

		f, err := os.Open(importFile)
		if err != nil {
			log.Fatalf("could not open csv: %v", err)
		}
		defer f.Close()

		catalogUsecase := usecase.NewCatalogUsecase(sqlite.NewCatalogRepo(db))

		count, err := catalogUsecase.ImportCSV(cmd.Context(), f)
		if err != nil {
			log.Fatalf("import failed after %d songs: %v", count, err)
		}

		log.Printf("import complete: %d songs processed", count)
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "songs.csv", "path to the CSV file")
	rootCmd.AddCommand(importCmd)
}
