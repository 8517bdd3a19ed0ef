package modem

import (
	"fmt"
)

// RunBatch executes cmds in order, pausing the pacing delay between
// consecutive commands. It stops at the first command whose exchange fails,
// whether by exhausting its attempts or by a transport error, and returns
// that error annotated with the command's position. Commands after it are
// never sent.
//
// Results of successful commands are logged and discarded; callers that need
// them should call Execute per command.
func (e *Engine) RunBatch(t Transport, cmds []CommandSpec) error {
	e.logger.Info("Start executing command set", "commands", len(cmds))

	for i, cmd := range cmds {
		if i > 0 {
			e.sleeper.Sleep(e.pacingDelay)
		}

		if _, err := e.Execute(t, cmd); err != nil {
			e.logger.Error("Command error in command set",
				"index", i,
				"command", cmd.Text,
				"skipped", len(cmds)-i-1,
				"error", err,
			)
			e.logger.Info("Stop executing command set", "completed", i)
			return fmt.Errorf("command set aborted at #%d: %w", i, err)
		}
	}

	e.logger.Info("Stop executing command set", "completed", len(cmds))
	return nil
}
