// Package repl implements a generic read-eval-print loop: a table of
// triggers mapped to commands, each with a help string, driven over any
// reader/writer pair.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// A ReplCommand receives the full input line and the client's config and
// returns the output to display.
type ReplCommand func(payload string, replConfig *REPLConfig) (output string, err error)

const (
	// Trigger for the help meta-command that prints out all help strings
	TriggerHelpMetacommand = ".help"

	// String that should be prepended to any error before being sent to the output writer
	ErrorPrependStr = "ERROR: "
)

var (
	// ErrOverlappingCommands is returned when combining REPLs that share a trigger.
	ErrOverlappingCommands = errors.New("found overlapping commands")

	// ErrCommandNotFound is returned when input names no known command.
	ErrCommandNotFound = errors.New("command not found")
)

// REPL struct.
type REPL struct {
	commands map[string]ReplCommand
	help     map[string]string
}

// REPL Config struct.
type REPLConfig struct {
	clientId uuid.UUID
}

// GetAddr returns the client id attached to this session.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// Construct an empty REPL.
func NewRepl() *REPL {
	return &REPL{
		commands: make(map[string]ReplCommand),
		help:     make(map[string]string),
	}
}

// CombineRepls merges a slice of REPLs into one. Errors if any two share a
// trigger; with no REPLs given, returns a new empty REPL.
func CombineRepls(repls []*REPL) (*REPL, error) {
	combined := NewRepl()
	for _, r := range repls {
		for trigger, action := range r.commands {
			if _, exists := combined.commands[trigger]; exists {
				return nil, ErrOverlappingCommands
			}
			combined.AddCommand(trigger, action, r.help[trigger])
		}
	}
	return combined, nil
}

// Get commands.
func (r *REPL) GetCommands() map[string]ReplCommand {
	return r.commands
}

// Get help.
func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// AddCommand registers a command and its help string, overwriting any
// previous command on the same trigger.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) {
	if trigger == TriggerHelpMetacommand {
		return
	}
	r.commands[trigger] = action
	r.help[trigger] = help
}

// HelpString returns all commands' help strings as one string.
func (r *REPL) HelpString() string {
	var sb strings.Builder
	for trigger, help := range r.help {
		sb.WriteString(fmt.Sprintf("%s: %s\n", trigger, help))
	}
	return sb.String()
}

// Run writes the welcome string and then reads, dispatches, and answers
// commands until the input is exhausted. Input and output default to stdin
// and stdout when nil.
func (r *REPL) Run(clientId uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	scanner := bufio.NewScanner(input)
	replConfig := &REPLConfig{clientId: clientId}
	fmt.Fprintln(output, "Welcome to the hashdb REPL! Please type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	for scanner.Scan() {
		payload := scanner.Text()
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			io.WriteString(output, prompt)
			continue
		}
		trigger := fields[0]

		if trigger == TriggerHelpMetacommand {
			io.WriteString(output, r.HelpString())
			io.WriteString(output, prompt)
			continue
		}

		if command, exists := r.commands[trigger]; exists {
			result, err := command(payload, replConfig)
			if err != nil {
				fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
			} else {
				if len(result) != 0 && !strings.HasSuffix(result, "\n") {
					result = result + "\n"
				}
				io.WriteString(output, result)
			}
		} else {
			fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, ErrCommandNotFound)
		}
		io.WriteString(output, prompt)
	}
	// Print an additional line if we encountered an EOF character.
	io.WriteString(output, "\n")
}

// RunChan runs the REPL over a channel of input lines, echoing each line
// before dispatching it. Used by drivers that feed commands programmatically.
func (r *REPL) RunChan(c chan string, clientId uuid.UUID, prompt string) {
	writer := os.Stdout
	replConfig := &REPLConfig{clientId: clientId}
	io.WriteString(writer, prompt)
	for payload := range c {
		io.WriteString(writer, payload+"\n")
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			io.WriteString(writer, prompt)
			continue
		}
		trigger := fields[0]
		if trigger == TriggerHelpMetacommand {
			io.WriteString(writer, r.HelpString())
			io.WriteString(writer, prompt)
			continue
		}
		if command, exists := r.commands[trigger]; exists {
			result, err := command(payload, replConfig)
			if err != nil {
				fmt.Fprintf(writer, "%s%s\n", ErrorPrependStr, err)
			} else {
				io.WriteString(writer, fmt.Sprintln(result))
			}
		} else {
			fmt.Fprintf(writer, "%s%s\n", ErrorPrependStr, ErrCommandNotFound)
		}
		io.WriteString(writer, prompt)
	}
	io.WriteString(writer, "\n")
}
