package flagparse

import (
	"fmt"

	"github.com/tmerle/syncbak/pkg/util"
)

// Command defines the command to execute.
type Command int

const (
	None Command = iota
	Backup
	Partial
	Config
	Version
)

var commandToString = map[Command]string{
	None:    "none",
	Backup:  "backup",
	Partial: "partial",
	Config:  "config",
	Version: "version",
}

var stringToCommand map[string]Command

func init() {
	stringToCommand = util.InvertMap(commandToString)
}

func (c Command) String() string {
	if str, ok := commandToString[c]; ok {
		return str
	}
	return fmt.Sprintf("unknown_command(%d)", int(c))
}

func ParseCommand(s string) (Command, error) {
	if command, ok := stringToCommand[s]; ok {
		return command, nil
	}
	return None, fmt.Errorf("invalid command: %q. Must be 'backup', 'partial', 'config', or 'version'", s)
}
