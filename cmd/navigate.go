package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/pkg/errors"
)

// navigate lets the operator drive the run one transition at a time. It returns once the run
// is completed and the operator accepts the result.
func navigate(ctx context.Context, con *console, controller *session.Controller, st *session.State) (err error) {
	for {
		view := controller.View(st)
		printView(con, view)

		var line string
		line, err = con.readLine(menu(view))
		if err != nil {
			err = errors.Wrap(err, "failed to read choice")
			return err
		}

		switch strings.ToLower(line) {
		case "n", "next":
			done := con.busy(fmt.Sprintf("Running %s...", view.NextTitle))
			_, err = controller.Advance(ctx, st)
			done()
		case "r", "retry":
			done := con.busy(fmt.Sprintf("Regenerating %s...", view.PreviousTitle))
			_, err = controller.Retry(ctx, st)
			done()
		case "<", "left":
			_, err = controller.BrowseLeft(st)
		case ">", "right":
			_, err = controller.BrowseRight(st)
		case "f", "finish":
			if view.Completed {
				return nil
			}
			err = &session.InvalidTransitionError{Op: "finish", Reason: "steps remain"}
		case "q", "quit":
			err = errors.New("run abandoned")
			return err
		default:
			fmt.Fprintf(con.out, "Unknown choice %q\n", line)
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Failed transitions leave the run as it was; report and let the operator choose again.
			fmt.Fprintf(con.out, "✗ %v\n", err)
			err = nil
		}
	}
}

func printView(con *console, view session.StepView) {
	fmt.Fprintf(con.out, "\nStep %d of %d", view.Step, view.TotalSteps)
	if view.PreviousTitle != "" {
		fmt.Fprintf(con.out, ": %s", view.PreviousTitle)
	}
	if view.Alternatives > 1 {
		fmt.Fprintf(con.out, " (alternative %d of %d)", view.AlternativeIndex+1, view.Alternatives)
	}
	fmt.Fprintln(con.out)

	if view.HasOutput && !getVerbose() {
		fmt.Fprintf(con.out, "%s\n", view.Output.String())
	}
}

func menu(view session.StepView) (prompt string) {
	choices := make([]string, 0, 6)
	if view.NextStep != "" {
		choices = append(choices, fmt.Sprintf("[n]ext: %s", view.NextTitle))
	}
	if view.CanRetry {
		choices = append(choices, "[r]etry")
	}
	if view.CanBrowseLeft {
		choices = append(choices, "[<] previous alternative")
	}
	if view.CanBrowseRight {
		choices = append(choices, "[>] next alternative")
	}
	if view.Completed {
		choices = append(choices, "[f]inish")
	}
	choices = append(choices, "[q]uit")

	prompt = strings.Join(choices, "  ") + "\n> "
	return prompt
}
