package model

// Action is a human-friendly storage operating mode for a snapshot.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// actionEpsilonMW absorbs solver noise around zero.
const actionEpsilonMW = 1e-3

// ActionFromStorage classifies a snapshot from its charge and discharge power.
func ActionFromStorage(chargeMW, dischargeMW float64) Action {
	net := dischargeMW - chargeMW
	switch {
	case net < -actionEpsilonMW:
		return ActionCharging
	case net > actionEpsilonMW:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
