package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/infra/file"

	"github.com/spf13/cobra"
)

// NewConvertCmd groups the offline file conversions.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert question and credential files",
	}
	cmd.AddCommand(newConvertQuestionsCmd(), newConvertCredentialsCmd())
	return cmd
}

func newConvertQuestionsCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Convert Question.csv into a JSON question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return convertQuestions(cmd.Context(), in, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&in, "in", "Question.csv", "input CSV")
	cmd.Flags().StringVar(&out, "out", "questions.json", "output JSON (- for stdout)")
	return cmd
}

func convertQuestions(ctx context.Context, in, out string, stdout io.Writer) error {
	loader, err := file.NewQuestionLoader(in)
	if err != nil {
		return err
	}
	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		return err
	}

	if out == "-" {
		return file.WriteJSON(stdout, questions)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := file.WriteJSON(f, questions); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "converted %d questions to %s\n", len(questions), out)
	return nil
}

func newConvertCredentialsCmd() *cobra.Command {
	var in, out, sheetID string
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Turn a service account credentials.json into GOOGLE_* .env entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return convertCredentials(in, out, sheetID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&in, "in", "credentials.json", "service account JSON")
	cmd.Flags().StringVar(&out, "out", ".env", "output .env file (- for stdout)")
	cmd.Flags().StringVar(&sheetID, "sheet-id", os.Getenv("GOOGLE_SHEET_ID"), "spreadsheet id to include as GOOGLE_SHEET_ID")
	return cmd
}

func convertCredentials(in, out, sheetID string, stdout io.Writer) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	env, err := config.GoogleCredentialsToEnv(data, sheetID)
	if err != nil {
		return err
	}
	if out == "-" {
		_, err := fmt.Fprintln(stdout, env)
		return err
	}
	if err := os.WriteFile(out, []byte(env+"\n"), 0o600); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", out)
	return nil
}
