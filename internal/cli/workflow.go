package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cv-optimizer/internal/client"
	"cv-optimizer/internal/interview"
	"cv-optimizer/internal/sessions"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload [resume.pdf]",
		Short: "Upload a PDF resume to the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return upload(cmd, appFromContext(cmd.Context()), args[0])
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [job-description.txt]",
		Short: "Compare the uploaded resume with a job description",
		Long: `Analyze the uploaded resume against a job description read from a
file, or from stdin when the argument is "-".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analyze(cmd, appFromContext(cmd.Context()), args[0])
		},
	}
}

func newQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the interview questions and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFromContext(cmd.Context())
			return app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
				list, err := app.API.Questions(ctx, id)
				if err != nil {
					return err
				}
				printQuestions(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
}

func newAnswerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "answer [question-id] [text]",
		Short: "Answer one interview question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFromContext(cmd.Context())
			return app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
				res, err := app.API.Answer(ctx, id, args[0], args[1])
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), res.Progress)
				return nil
			})
		},
	}
}

func newSkipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip [question-id]",
		Short: "Skip one interview question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFromContext(cmd.Context())
			return app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
				res, err := app.API.Skip(ctx, id, args[0])
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), res.Progress)
				return nil
			})
		},
	}
}

func newInterviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interview",
		Short: "Answer the pending questions interactively",
		Long:  "Prompts for every pending question. An empty line skips the question.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInterview(cmd, appFromContext(cmd.Context()), bufio.NewReader(cmd.InOrStdin()))
		},
	}
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the optimized resume and show the comparison",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd, appFromContext(cmd.Context()))
		},
	}
}

func newDownloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "download [pdf|docx]",
		Short:     "Download the optimized resume",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"pdf", "docx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := strings.ToLower(args[0])
			if output == "" {
				output = "optimized_cv." + kind
			}
			return download(cmd, appFromContext(cmd.Context()), kind, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: optimized_cv.<kind>)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "run [resume.pdf] [job-description.txt]",
		Short: "Run the whole workflow: upload, analyze, interview, generate, download",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFromContext(cmd.Context())
			if err := upload(cmd, app, args[0]); err != nil {
				return err
			}
			if err := analyze(cmd, app, args[1]); err != nil {
				return err
			}
			if err := runInterview(cmd, app, bufio.NewReader(cmd.InOrStdin())); err != nil {
				return err
			}
			if err := generate(cmd, app); err != nil {
				return err
			}
			for _, kind := range []string{"pdf", "docx"} {
				if err := download(cmd, app, kind, filepath.Join(outDir, "optimized_cv."+kind)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the downloaded files")
	return cmd
}

func upload(cmd *cobra.Command, app *App, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}
	name := filepath.Base(path)
	return app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
		res, err := app.API.Upload(ctx, id, name, bytes.NewReader(data))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "uploaded %s to session %s\n", name, res.SessionID)
		if res.Resume != nil && res.Resume.Contact.Name != "" {
			fmt.Fprintf(out, "  name: %s\n", res.Resume.Contact.Name)
		}
		return nil
	})
}

func analyze(cmd *cobra.Command, app *App, path string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read job description: %w", err)
	}

	err = app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
		res, err := app.API.Analyze(ctx, id, string(data))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.GapAnalysis != nil {
			fmt.Fprintf(out, "match score: %d\n", res.GapAnalysis.MatchScore)
			for _, g := range res.GapAnalysis.All() {
				fmt.Fprintf(out, "  [%s/%s] %s\n", g.Category, g.Importance, g.Description)
			}
		}
		fmt.Fprintf(out, "%d questions to answer\n", len(res.Questions))
		return nil
	})
	return explainReplaced(err)
}

// runInterview prompts for each pending question in order.
func runInterview(cmd *cobra.Command, app *App, in *bufio.Reader) error {
	out := cmd.OutOrStdout()
	err := app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
		list, err := app.API.Questions(ctx, id)
		if err != nil {
			return err
		}
		for i, q := range list.Questions {
			if q.Terminal() {
				continue
			}
			fmt.Fprintf(out, "\n(%d/%d) %s\n> ", i+1, list.Total, q.Prompt)
			line, readErr := in.ReadString('\n')
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				return fmt.Errorf("read answer: %w", readErr)
			}
			answer := strings.TrimSpace(line)

			var res interview.Result
			if answer == "" {
				res, err = app.API.Skip(ctx, id, q.ID)
			} else {
				res, err = app.API.Answer(ctx, id, q.ID, answer)
			}
			if err != nil {
				return err
			}
			if res.Complete {
				break
			}
			if errors.Is(readErr, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
		}
		fmt.Fprintln(out)
		return nil
	})
	return explainReplaced(err)
}

func generate(cmd *cobra.Command, app *App) error {
	fmt.Fprintln(cmd.OutOrStdout(), "generating, this can take up to two minutes...")
	err := app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
		res, err := app.API.Generate(ctx, id)
		if err != nil {
			return err
		}
		if res.Comparison != nil {
			printComparison(cmd.OutOrStdout(), *res.Comparison)
		}
		return nil
	})
	return explainReplaced(err)
}

func download(cmd *cobra.Command, app *App, kind, output string) error {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	var buf bytes.Buffer
	err := app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
		buf.Reset()
		_, err := app.API.Download(ctx, id, kind, &buf)
		return err
	})
	if err != nil {
		return explainReplaced(err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)\n", output, buf.Len())
	return nil
}

func explainReplaced(err error) error {
	if errors.Is(err, client.ErrSessionReplaced) {
		return fmt.Errorf("the previous session expired and a new one was started; run `cvopt upload` again: %w", err)
	}
	return err
}

func printQuestions(w io.Writer, list interview.QuestionList) {
	for i, q := range list.Questions {
		fmt.Fprintf(w, "%2d. [%s] %s (%s)\n", i+1, q.Status, q.Prompt, q.ID)
		if q.Status == sessions.QuestionAnswered && q.AnswerText != "" {
			fmt.Fprintf(w, "    -> %s\n", q.AnswerText)
		}
	}
	printProgress(w, interview.Progress{
		Answered:  list.CurrentIndex,
		NextIndex: list.CurrentIndex,
		Total:     list.Total,
		Complete:  list.Complete,
	})
}

func printProgress(w io.Writer, p interview.Progress) {
	if p.Complete {
		fmt.Fprintf(w, "interview complete (%d/%d)\n", p.Answered, p.Total)
		return
	}
	fmt.Fprintf(w, "%d/%d questions done\n", p.Answered, p.Total)
}

func printComparison(w io.Writer, c sessions.Comparison) {
	fmt.Fprintf(w, "score: %d -> %d\n", c.OriginalScore, c.OptimizedScore)
	fmt.Fprintf(w, "gaps addressed: %d, remaining: %d\n", len(c.GapsAddressed), len(c.GapsRemaining))
	for _, imp := range c.Improvements {
		fmt.Fprintf(w, "  + %s\n", imp)
	}
}
