package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-miniapp/internal/client"
	"quiz-miniapp/internal/config"
	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/logging"
	"quiz-miniapp/internal/report"
	"quiz-miniapp/internal/session"
	"quiz-miniapp/internal/telegram"
)

var errNoQuestion = errors.New("no question on screen")

type playOptions struct {
	quizID int64
	userID int64
	apiURL string
}

// NewPlayCmd plays a quiz in the terminal against a running API.
func NewPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, opts, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&opts.quizID, "quiz", 0, "quiz id (prompted when omitted)")
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "user id (defaults to the dev user)")
	cmd.Flags().StringVar(&opts.apiURL, "api", "", "quiz API base URL")
	return cmd
}

func runPlay(ctx context.Context, configPath string, opts playOptions, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)
	defer logger.Sync()

	userID := opts.userID
	if userID == 0 {
		userID = cfg.DevUserID()
	}
	apiURL := opts.apiURL
	if apiURL == "" {
		apiURL = cfg.Client.APIURL
	}
	var clientOpts []client.Option
	if cfg.Telegram.BotToken != "" {
		clientOpts = append(clientOpts, client.WithInitData(signInitData(cfg.Telegram.BotToken, userID, time.Now())))
	}
	api := client.NewHTTPClient(apiURL, &http.Client{Timeout: 10 * time.Second}, clientOpts...)
	if apiURL == "" {
		apiURL = client.DefaultBaseURL
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)

	quizID := opts.quizID
	if quizID == 0 {
		quizzes, err := api.ListQuizzes(ctx, userID)
		if err != nil {
			return client.DescribeError(err, apiURL)
		}
		quizID, err = pickQuiz(out, lines, quizzes)
		if err != nil {
			return err
		}
	}

	ctrl := session.NewController(cfg.QuestionTime())
	quiz, err := api.GetQuiz(ctx, quizID)
	if err != nil {
		ctrl.Fail(err)
		return client.DescribeError(ctrl.Err(), apiURL)
	}
	if err := ctrl.Load(quiz); err != nil {
		return err
	}

	runner := session.NewRunner(ctrl,
		session.WithSubmitter(api, userID),
		session.WithLogger(logger.With(zap.Int64("quiz_id", quizID))))

	go func() {
		_ = runner.Run(ctx)
	}()

	fmt.Fprintf(out, "\n%s\n", quiz.Title)
	var (
		snap     session.Snapshot
		prev     session.Snapshot
		shown    = ^uint64(0)
		input    <-chan string
		updates  = runner.Updates()
		finished bool
	)
	for !finished {
		select {
		case s, ok := <-updates:
			if !ok {
				finished = true
				continue
			}
			prev, snap = snap, s
			renderUpdate(out, prev, snap, shown)
			shown = snap.Turn
			if snap.Phase == session.InProgress {
				input = lines
			}
		case line, ok := <-input:
			if !ok {
				fmt.Fprintln(out, "input closed, abandoning the quiz")
				cancel()
				input = nil
				continue
			}
			ev, err := parseCommand(line, snap)
			if err != nil {
				fmt.Fprintf(out, "  ! %v\n", err)
				continue
			}
			if err := runner.Send(ctx, ev); err != nil {
				continue
			}
			// Wait for the state the event produced before reading more input.
			input = nil
		}
	}

	if snap.Phase != session.Finished || snap.Result == nil {
		return errors.New("quiz abandoned before the end")
	}
	runner.Wait()
	fmt.Fprintln(out)
	return report.Render(out, report.Build(quiz.Questions, *snap.Result))
}

// readLines feeds lines of in to the returned channel until in ends or ctx
// is done. A read already blocked on in stays blocked until in yields.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func signInitData(botToken string, userID int64, now time.Time) string {
	user, _ := json.Marshal(telegram.User{ID: userID, FirstName: "Player"})
	values := url.Values{}
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
	return telegram.Sign(botToken, values)
}

func pickQuiz(out io.Writer, lines <-chan string, quizzes []domain.QuizSummary) (int64, error) {
	if len(quizzes) == 0 {
		return 0, errors.New("no quizzes available")
	}
	fmt.Fprintln(out, "Available quizzes:")
	for i, q := range quizzes {
		status := "new"
		if q.UserScore > 0 {
			status = fmt.Sprintf("best %.0f%%", q.UserScore)
			if !q.IsRepassable {
				status += ", completed"
			}
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n     %s\n", i+1, q.Title, status, q.Description)
	}
	for {
		fmt.Fprint(out, "Pick a quiz: ")
		line, ok := <-lines
		if !ok {
			return 0, errors.New("no quiz selected")
		}
		n, err := choice(line, len(quizzes))
		if err != nil {
			fmt.Fprintf(out, "  ! %v\n", err)
			continue
		}
		return quizzes[n].ID, nil
	}
}

// parseCommand turns a line of input into an event for the question in snap.
// An empty line or "n" moves on; numbers are 1-based.
func parseCommand(line string, snap session.Snapshot) (session.Event, error) {
	if snap.Phase != session.InProgress || snap.Question == nil {
		return nil, errNoQuestion
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] == "n" || fields[0] == "next" {
		return session.Next{Turn: snap.Turn}, nil
	}

	switch q := snap.Question.(type) {
	case domain.MultipleChoice:
		n, err := choice(fields[0], len(q.Options))
		if err != nil {
			return nil, err
		}
		if q.MultiSelect {
			return session.Toggle{Index: n}, nil
		}
		return session.Select{Index: n}, nil
	case domain.FillBlank:
		if fields[0] == "c" || fields[0] == "clear" {
			if len(fields) != 2 {
				return nil, errors.New("usage: c <blank>")
			}
			b, err := choice(fields[1], q.BlankCount())
			if err != nil {
				return nil, err
			}
			return session.Clear{Blank: b}, nil
		}
		if len(fields) < 2 {
			return nil, errors.New("usage: <blank> <option>")
		}
		b, err := choice(fields[0], q.BlankCount())
		if err != nil {
			return nil, err
		}
		text := strings.Join(fields[1:], " ")
		if n, err := choice(text, len(q.Options)); err == nil {
			text = q.Options[n]
		}
		return session.Place{Blank: b, Text: text}, nil
	}
	return nil, errNoQuestion
}

// choice parses a 1-based number in [1, n] into an index.
func choice(raw string, n int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 || v > n {
		return 0, fmt.Errorf("choose a number from 1 to %d", n)
	}
	return v - 1, nil
}

func renderUpdate(w io.Writer, prev, snap session.Snapshot, shownTurn uint64) {
	switch {
	case snap.Phase != session.InProgress:
		return
	case snap.Turn != shownTurn:
		renderQuestion(w, snap)
	case snap.Error != "":
		fmt.Fprintf(w, "  ! %s\n", snap.Error)
	case answerChanged(prev, snap):
		renderAnswer(w, snap)
	case snap.Remaining != prev.Remaining && snap.Remaining <= 5:
		fmt.Fprintf(w, "  %ds left\n", snap.Remaining)
	}
}

func renderQuestion(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "\nQuestion %d/%d (%ds)\n", snap.Index+1, snap.Total, snap.Remaining)
	switch q := snap.Question.(type) {
	case domain.MultipleChoice:
		hint := "choose one"
		if q.MultiSelect {
			hint = "toggle all that apply"
		}
		fmt.Fprintf(w, "%s (%s)\n", q.Question, hint)
		for i, o := range q.Options {
			fmt.Fprintf(w, "  %d. %s\n", i+1, o)
		}
		fmt.Fprintln(w, "Enter a number; empty line moves on.")
	case domain.FillBlank:
		fmt.Fprintln(w, q.Question)
		fmt.Fprintln(w, fillTemplate(q, make([]string, q.BlankCount()), true))
		opts := make([]string, len(q.Options))
		for i, o := range q.Options {
			opts[i] = fmt.Sprintf("%d. %s", i+1, o)
		}
		fmt.Fprintf(w, "Options: %s\n", strings.Join(opts, "  "))
		fmt.Fprintln(w, "Enter <blank> <option>, c <blank> to clear; empty line moves on.")
	}
}

func renderAnswer(w io.Writer, snap session.Snapshot) {
	switch q := snap.Question.(type) {
	case domain.MultipleChoice:
		if !q.MultiSelect {
			if snap.Selected != nil {
				fmt.Fprintf(w, "  > %s\n", q.Options[*snap.Selected])
			}
			return
		}
		picked := make([]string, 0, len(snap.SelectedIndices))
		for _, i := range snap.SelectedIndices {
			picked = append(picked, q.Options[i])
		}
		fmt.Fprintf(w, "  > %s\n", strings.Join(picked, ", "))
	case domain.FillBlank:
		fmt.Fprintf(w, "  > %s\n", fillTemplate(q, snap.Blanks, false))
	}
}

// fillTemplate renders the sentence with placed values; numbered shows blank numbers.
func fillTemplate(q domain.FillBlank, values []string, numbered bool) string {
	segments := q.Segments()
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(seg)
		if i == len(segments)-1 {
			break
		}
		v := "___"
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		if numbered {
			fmt.Fprintf(&b, "[%d:%s]", i+1, v)
		} else {
			fmt.Fprintf(&b, "[%s]", v)
		}
	}
	return b.String()
}

func answerChanged(prev, snap session.Snapshot) bool {
	if prev.Turn != snap.Turn {
		return true
	}
	if (prev.Selected == nil) != (snap.Selected == nil) ||
		(prev.Selected != nil && *prev.Selected != *snap.Selected) {
		return true
	}
	return !slices.Equal(prev.SelectedIndices, snap.SelectedIndices) || !slices.Equal(prev.Blanks, snap.Blanks)
}
