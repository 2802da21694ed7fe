package frame

import (
	"errors"
	"fmt"
)

// Command is an editor action window backends bind to keys.
type Command uint8

const (
	// CommandRecompile compiles the edited source on the next frame.
	CommandRecompile Command = iota
	// CommandSelectRandom loads a random catalog entry.
	CommandSelectRandom
	// CommandReset restores the source of the active program into the editor.
	CommandReset
	// CommandSave exports the edited source.
	CommandSave
)

func (c Command) String() string {
	switch c {
	case CommandRecompile:
		return "recompile"
	case CommandSelectRandom:
		return "select random"
	case CommandReset:
		return "reset"
	case CommandSave:
		return "save"
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

var errNoExport = errors.New("no export destination configured")

// Do executes cmd. Errors come from the catalog or from the configured
// [Config.OnReset] and [Config.Export] hooks.
func (d *Driver) Do(cmd Command) error {
	switch cmd {
	case CommandRecompile:
		d.Recompile()
	case CommandSelectRandom:
		_, err := d.SelectRandom(nil)
		return err
	case CommandReset:
		src := d.ResetSource()
		if d.onReset != nil {
			return d.onReset(src)
		}
	case CommandSave:
		if d.export == nil {
			return errNoExport
		}
		return d.export(d.Source())
	default:
		return fmt.Errorf("unknown command %v", cmd)
	}
	return nil
}

