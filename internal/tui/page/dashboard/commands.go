package dashboard

import (
	"strings"
	"time"
)

// Command message types.
type (
	// RemindMsg asks for a reminder due after In.
	RemindMsg struct {
		Title string
		In    time.Duration
	}

	// DoneMsg completes the reminder whose ID starts with Prefix.
	DoneMsg struct {
		Prefix string
	}

	// SyncMsg requests a full sync.
	SyncMsg struct{}

	// ReconnectMsg requests a manual channel reconnect.
	ReconnectMsg struct{}

	// UsageMsg reports a malformed command.
	UsageMsg struct {
		Usage string
	}

	// UnknownCommandMsg indicates an unknown slash command was entered.
	UnknownCommandMsg struct {
		Command string
	}
)

// Command is a slash command.
type Command struct {
	Name        string
	Usage       string
	Description string
	Handler     func(args []string) any
}

// CommandRegistry holds the registered slash commands.
type CommandRegistry struct {
	commands map[string]Command
}

// NewCommandRegistry creates a registry with the dashboard commands.
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{commands: make(map[string]Command)}

	r.Register(Command{
		Name:        "remind",
		Usage:       "/remind <duration> <title>",
		Description: "Create a reminder due after duration",
		Handler:     parseRemind,
	})
	r.Register(Command{
		Name:        "done",
		Usage:       "/done <id>",
		Description: "Complete a reminder",
		Handler: func(args []string) any {
			if len(args) != 1 {
				return UsageMsg{Usage: "/done <id>"}
			}
			return DoneMsg{Prefix: args[0]}
		},
	})
	r.Register(Command{
		Name:        "sync",
		Usage:       "/sync",
		Description: "Sync everything now",
		Handler:     func([]string) any { return SyncMsg{} },
	})
	r.Register(Command{
		Name:        "reconnect",
		Usage:       "/reconnect",
		Description: "Reconnect the realtime channel",
		Handler:     func([]string) any { return ReconnectMsg{} },
	})

	return r
}

func parseRemind(args []string) any {
	usage := UsageMsg{Usage: "/remind <duration> <title>"}
	if len(args) < 2 {
		return usage
	}
	in, err := time.ParseDuration(args[0])
	if err != nil || in <= 0 {
		return usage
	}
	return RemindMsg{In: in, Title: strings.Join(args[1:], " ")}
}

// Register adds a command to the registry.
func (r *CommandRegistry) Register(cmd Command) {
	r.commands[cmd.Name] = cmd
}

// Parse interprets input as a slash command.
// Returns the command message and true if it's a command, nil and false otherwise.
func (r *CommandRegistry) Parse(input string) (any, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, false
	}

	parts := strings.Fields(input[1:])
	if len(parts) == 0 {
		return nil, false
	}

	name := strings.ToLower(parts[0])
	cmd, ok := r.commands[name]
	if !ok {
		return UnknownCommandMsg{Command: name}, true
	}
	return cmd.Handler(parts[1:]), true
}
