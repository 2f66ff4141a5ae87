package presence

// Transport delivers outbound events. Implementations must treat a send to an
// unknown or closed session as a no-op.
type Transport interface {
	Send(sessionID string, event Outbound)
	SendToGroup(group string, event Outbound)
	JoinGroup(sessionID, group string)
}
