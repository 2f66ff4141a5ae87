package presence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Inbound
	}{
		{
			name: "register",
			raw:  `{"event":"register","data":"alice"}`,
			want: Register{Identity: "alice"},
		},
		{
			name: "reset-count",
			raw:  `{"event":"reset-count","data":"alice"}`,
			want: ResetCount{Identity: "alice"},
		},
		{
			name: "new-message",
			raw:  `{"event":"new-message","data":{"to":"s2","from":"alice","content":"hi","date":"d","time":"t"}}`,
			want: DirectMessage{To: "s2", From: "alice", Content: "hi", Date: "d", Time: "t"},
		},
		{
			name: "create-group",
			raw:  `{"event":"create-group","data":{"groupName":"team","members":[{"userID":"s1"},{"userID":"s2"}]}}`,
			want: CreateGroup{GroupName: "team", Members: []Member{{UserID: "s1"}, {UserID: "s2"}}},
		},
		{
			name: "create-group with no members",
			raw:  `{"event":"create-group","data":{"groupName":"team","members":[]}}`,
			want: CreateGroup{GroupName: "team", Members: []Member{}},
		},
		{
			name: "join-group",
			raw:  `{"event":"join-group","data":{"groupName":"team"}}`,
			want: JoinGroup{GroupName: "team"},
		},
		{
			name: "group-message",
			raw:  `{"event":"group-message","data":{"groupName":"team","from":"s1","message":"hello","date":"d","time":"t"}}`,
			want: GroupMessage{GroupName: "team", From: "s1", Message: "hello", Date: "d", Time: "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := DecodeInbound([]byte(tt.raw))
			req.NoError(err)
			req.Equal(tt.want, got)
			req.Equal(tt.want.Kind(), got.Kind())
		})
	}
}

func TestDecodeInbound_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `hello`},
		{name: "missing data", raw: `{"event":"register"}`},
		{name: "empty identity", raw: `{"event":"register","data":""}`},
		{name: "identity not a string", raw: `{"event":"reset-count","data":{"user":"alice"}}`},
		{name: "message without recipient", raw: `{"event":"new-message","data":{"from":"alice","content":"hi"}}`},
		{name: "message without content", raw: `{"event":"new-message","data":{"to":"s2","from":"alice"}}`},
		{name: "group without members", raw: `{"event":"create-group","data":{"groupName":"team"}}`},
		{name: "member without id", raw: `{"event":"create-group","data":{"groupName":"team","members":[{}]}}`},
		{name: "join without group", raw: `{"event":"join-group","data":{}}`},
		{name: "group message without sender", raw: `{"event":"group-message","data":{"groupName":"team","message":"x"}}`},
		{name: "null payload", raw: `{"event":"join-group","data":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.raw))
			require.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestDecodeInbound_Unknown_Event(t *testing.T) {
	req := require.New(t)

	_, err := DecodeInbound([]byte(`{"event":"delete-everything","data":{}}`))

	req.ErrorIs(err, ErrUnknownEvent)
	req.NotErrorIs(err, ErrMalformedPayload)
}

func TestOutbound_Wire_Shape(t *testing.T) {
	req := require.New(t)

	raw, err := json.Marshal(Outbound{
		Event: EventUserJoined,
		Data:  UserJoined{GroupName: "team", UserID: "s1"},
	})

	req.NoError(err)
	req.JSONEq(`{"event":"user-joined","data":{"groupName":"team","userId":"s1"}}`, string(raw))
}

func TestOutbound_Roster_Wire_Shape(t *testing.T) {
	req := require.New(t)

	raw, err := json.Marshal(Outbound{
		Event: EventUsers,
		Data:  []RosterEntry{{UserID: "s1", Username: "alice", Unread: 3}},
	})

	req.NoError(err)
	req.JSONEq(`{"event":"users","data":[{"userID":"s1","username":"alice","unread":3}]}`, string(raw))
}
