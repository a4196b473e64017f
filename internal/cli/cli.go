package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandToggle  Command = "toggle"
	CommandQuit    Command = "quit"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:     {},
	CommandToggle:  {},
	CommandQuit:    {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command  Command
	WorkDir  string
	ShowHelp bool
}

// Parse resolves arguments to a command. No arguments means run the
// daemon.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--dir":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--dir requires a path")
			}
			parsed.WorkDir = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:

  %[1]s [command] [flags]

Commands:

  run       Start the control daemon (default)
  toggle    Toggle transcription in the running daemon
  quit      Stop the running daemon
  status    Report whether a daemon is running
  devices   List audio capture devices
  doctor    Check runtime prerequisites
  version   Print version information
  help      Show this help

Flags:

  --dir <path>   Work directory holding build/transcribe, config.json,
                 and app.pid (default: the executable's directory)
  -h, --help     Show this help
  --version      Print version information

The daemon is controlled externally by signals: SIGUSR1 toggles
transcription, SIGINT/SIGTERM quit. The toggle and quit commands send
those signals using the pid record in the work directory.
`, binaryName)
}
