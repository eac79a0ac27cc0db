package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nikogura/jobdocs/pkg/placeholder"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/nikogura/jobdocs/pkg/store"
	"golang.org/x/term"
)

// console is the operator's terminal: prompts, progress and step echo.
type console struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	mu          sync.Mutex
	spin        *spinner
}

func newConsole() (c *console) {
	c = &console{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	return c
}

// busy shows a spinner for message until the returned func is called. Verbose runs print the
// message instead, since step echo would tear through the spinner line.
func (c *console) busy(message string) (done func()) {
	if getVerbose() {
		fmt.Fprintln(c.out, message)
		done = func() {}
		return done
	}

	s := newSpinner(message)
	c.mu.Lock()
	c.spin = s
	c.mu.Unlock()
	s.start()

	done = func() {
		s.stopSpinner()
		c.mu.Lock()
		c.spin = nil
		c.mu.Unlock()
	}
	return done
}

func (c *console) pause() {
	c.mu.Lock()
	s := c.spin
	c.mu.Unlock()
	if s != nil {
		s.stopSpinner()
	}
}

// askContinue asks whether to keep expanding a template that is still unresolved. Without a
// terminal the answer is no.
func (c *console) askContinue(ctx context.Context, step string, unresolved *placeholder.UnresolvedError) (proceed bool) {
	if !c.interactive {
		return proceed
	}

	c.pause()
	fmt.Fprintf(c.out, "\nStep %q still has placeholders after %d passes:\n", session.StepTitle(step), unresolved.Passes)
	for _, token := range placeholder.Tokens(unresolved.Partial) {
		fmt.Fprintf(c.out, "  <%s>\n", token)
	}

	proceed = c.confirm("Keep expanding?")
	return proceed
}

func (c *console) confirm(question string) (yes bool) {
	fmt.Fprintf(c.out, "%s [y/N]: ", question)
	line, _ := c.in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	yes = answer == "y" || answer == "yes"
	return yes
}

func (c *console) readLine(prompt string) (line string, err error) {
	fmt.Fprint(c.out, prompt)
	line, err = c.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err == io.EOF && line != "" {
		err = nil
	}
	return line, err
}

// echoStep prints a step's expanded input and output in verbose mode.
func (c *console) echoStep(step string, body string, output store.Value) {
	if !getVerbose() {
		return
	}

	title := session.StepTitle(step)
	fmt.Fprintf(c.out, "\n=== %s: input ===\n%s\n", title, body)
	fmt.Fprintf(c.out, "=== %s: output ===\n%s\n", title, output.String())
}

// spinner provides a simple text-based progress indicator.
type spinner struct {
	message string
	stop    chan bool
	done    chan bool
	mu      sync.Mutex
	active  bool
}

func newSpinner(message string) (s *spinner) {
	s = &spinner{
		message: message,
		stop:    make(chan bool),
		done:    make(chan bool),
	}
	return s
}

func (s *spinner) start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go func() {
		chars := []string{"|", "/", "-", "\\"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		fmt.Printf("%s ", s.message)
		for {
			select {
			case <-s.stop:
				fmt.Printf("\r%s\r", strings.Repeat(" ", len(s.message)+2))
				s.done <- true
				return
			case <-ticker.C:
				fmt.Printf("\r%s %s", s.message, chars[i%len(chars)])
				i++
			}
		}
	}()
}

func (s *spinner) stopSpinner() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	s.stop <- true
	<-s.done
}
