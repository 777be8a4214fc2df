// Package cli parses command-line arguments into session commands.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandStart     Command = "start"
	CommandStatus    Command = "status"
	CommandNext      Command = "next"
	CommandPrev      Command = "prev"
	CommandRecord    Command = "record"
	CommandReset     Command = "reset"
	CommandFinish    Command = "finish"
	CommandExit      Command = "exit"
	CommandTemplates Command = "templates"
	CommandResults   Command = "results"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandStart:     {},
	CommandStatus:    {},
	CommandNext:      {},
	CommandPrev:      {},
	CommandRecord:    {},
	CommandReset:     {},
	CommandFinish:    {},
	CommandExit:      {},
	CommandTemplates: {},
	CommandResults:   {},
	CommandDevices:   {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

// takesArg lists commands that consume one positional argument.
var takesArg = map[Command]bool{
	CommandStart:   true,
	CommandResults: true,
}

type Parsed struct {
	Command   Command
	Arg       string
	EnvPath   string
	Yes       bool
	Anonymous bool
	ShowHelp  bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--yes", "-y":
			parsed.Yes = true
		case "--anonymous":
			parsed.Anonymous = true
		case "--env":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--env requires a path")
			}
			parsed.EnvPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if haveCommand {
				if takesArg[parsed.Command] && parsed.Arg == "" {
					parsed.Arg = arg
					continue
				}
				return Parsed{}, fmt.Errorf("unexpected argument: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			haveCommand = true
		}
	}

	if haveCommand && takesArg[parsed.Command] && parsed.Arg == "" {
		return Parsed{}, fmt.Errorf("%s requires an id", parsed.Command)
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--env PATH] <command> [id]

Commands:
  start ID    Start a practice session from template ID and serve it
  status      Print active session progress
  next        Advance to the next question
  prev        Return to the previous question
  record      Toggle speech capture for the active question
  reset       Discard the active question's answer
  finish      End the session, score it, and save the result
  exit        End the session without scoring or saving
  templates   List built-in templates
  results ID  Show a saved session result
  devices     List available audio input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --env PATH   Env file to load before reading the environment
  --yes, -y    Skip the finish/exit confirmation prompt
  --anonymous  Ignore record-store credentials and keep results local
  -h, --help   Show help
  --version    Show version
`, binaryName)
}
