package main

import (
	"github.com/MrEthical07/goQuiz/internal/importer"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a question bank from .xlsx or .csv",
	Long: `Import quizzes from a spreadsheet. Columns, in order:

  category, type, context, answer, options, correct, max_score

type is "subjective" or "multiple". For multiple-choice rows, options are
separated by "|" and correct lists 1-based option positions separated by
",". Missing categories are created. Invalid rows are reported and skipped.

Examples:
  quizctl import --file bank.xlsx --sheet Questions
  quizctl import --file bank.csv`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringP("file", "f", "", "path to the .xlsx or .csv file")
	importCmd.Flags().String("sheet", "", "workbook sheet (default: first sheet)")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	sheet, _ := cmd.Flags().GetString("sheet")

	d, err := openEngine(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.close()

	res, err := importer.New(d.engine, d.store).ImportFile(cmd.Context(), file, sheet)
	if err != nil {
		return err
	}

	for _, rowErr := range res.Errors {
		cmd.PrintErrln(rowErr.Error())
	}
	cmd.Printf("rows=%d imported=%d rejected=%d categories_created=%d\n",
		res.Rows, res.Imported, len(res.Errors), res.CategoriesCreated)
	return nil
}
