package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/quiz"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a category of generated arithmetic questions",
	Long: `Create a category filled with generated addition questions, useful
for trying the API locally.

Examples:
  quizctl seed
  quizctl seed --category Warmup --count 25`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("category", "Arithmetic", "category name")
	seedCmd.Flags().Int("count", 20, "number of questions")

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("category")
	count, _ := cmd.Flags().GetInt("count")
	if count <= 0 {
		return errors.New("--count must be > 0")
	}

	ctx := cmd.Context()
	d, err := openEngine(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.close()

	c, err := d.store.FindCategoryByName(ctx, name)
	if errors.Is(err, goQuiz.ErrCategoryNotFound) {
		c, err = d.engine.CreateCategory(ctx, name, "Generated addition questions")
	}
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		a, b := rand.IntN(50), rand.IntN(50)
		_, err := d.engine.CreateQuiz(ctx, goQuiz.CreateQuizInput{
			CategoryID: c.ID,
			Type:       quiz.TypeSubjective,
			Context:    fmt.Sprintf("What is %d + %d?", a, b),
			Answer:     fmt.Sprint(a + b),
		})
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	total, err := d.store.CountQuizzes(ctx, c.ID)
	if err != nil {
		return err
	}
	cmd.Printf("category %q (%s) now has %d questions\n", c.Name, c.ID, total)
	return nil
}
