// Package presence is the in-memory state machine behind the relay: it tracks
// live sessions and their identities, keeps per-identity unread counters,
// manages named groups and routes inbound events to outbound ones.
//
// The package never touches the network. Everything it emits goes through a
// Transport, which addresses sessions by id and knows how to fan an event out
// to a group. All mutation funnels through Router, whose handlers run one at a
// time so that every roster broadcast reflects settled state.
package presence
