package domain

// ChannelState is the lifecycle of one logical realtime connection.
// Each channel instance owns exactly one of these.
type ChannelState int

const (
	ChannelIdle ChannelState = iota
	ChannelConnecting
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "Idle"
	case ChannelConnecting:
		return "Connecting"
	case ChannelOpen:
		return "Open"
	case ChannelClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
