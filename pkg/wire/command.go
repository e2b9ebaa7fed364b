package wire

import "github.com/Oreo-Mcflurry/ProbySDK/pkg/model"

// CommandKind tags the active member of the command payload tagged union
// (orig §4.11).
type CommandKind string

const (
	CommandSetLogLevel                CommandKind = "setLogLevel"
	CommandSetCategoryLevel           CommandKind = "setCategoryLevel"
	CommandSetEnabled                 CommandKind = "setEnabled"
	CommandClearLogs                  CommandKind = "clearLogs"
	CommandRequestPerformanceSnapshot CommandKind = "requestPerformanceSnapshot"
)

// Command is the decoded form of a command(cmd) message's payload.
type Command struct {
	Kind     CommandKind   `json:"type"`
	Level    model.LogLevel `json:"level,omitempty"`
	Category string         `json:"category,omitempty"`
	Enabled  bool           `json:"enabled,omitempty"`
}
