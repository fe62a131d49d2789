package sync

import "github.com/google/uuid"

// SendCommand issues a device command over the stream and returns the
// generated command id. The id correlates the eventual command_result
// envelope; callers track the outcome via Cache().WatchCommand(id) or by
// polling Cache().Result(id).
//
// Fire-and-forget at the transport level: if the session is not Connected
// the frame is dropped and sent is false, and no result will ever arrive
// for the returned id.
//
// Parameters:
//   - deviceID: Target device identifier
//   - command: Command name understood by the device
//   - params: Optional command parameters (may be nil)
//
// Returns:
//   - string: Client-generated command id (UUID v4)
//   - bool: Whether the frame was written to the stream
func (s *Session) SendCommand(deviceID, command string, params map[string]any) (string, bool) {
	commandID := uuid.NewString()

	sent := s.Send(commandFrame{
		Type:      TypeCommand,
		CommandID: commandID,
		DeviceID:  deviceID,
		Command:   command,
		Params:    params,
		UserID:    s.cfg.UserID,
		Timestamp: timestamp(),
	})
	if sent {
		s.logger.Debug("command sent",
			"command_id", commandID, "device_id", deviceID, "command", command)
	}

	return commandID, sent
}
