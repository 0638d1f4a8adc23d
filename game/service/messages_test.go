package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/hazardrun/game/cards"
	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/service"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
		want    service.Request
		wantErr error
	}{
		{
			name:    "create with requested id",
			event:   service.EventCreateSession,
			payload: `{"playerName":"alice","requestedId":"room","forceCreate":true}`,
			want:    service.CreateSessionRequest{PlayerName: "alice", RequestedID: "room", ForceCreate: true},
		},
		{
			name:    "create without name",
			event:   service.EventCreateSession,
			payload: `{"requestedId":"room"}`,
			wantErr: service.ErrMalformedPayload,
		},
		{
			name:    "check",
			event:   service.EventCheckSession,
			payload: `{"id":"ROOM"}`,
			want:    service.CheckSessionRequest{ID: "ROOM"},
		},
		{
			name:    "join as creator",
			event:   service.EventJoinSession,
			payload: `{"id":"ROOM","playerName":"bob","isCreator":true}`,
			want:    service.JoinSessionRequest{ID: "ROOM", PlayerName: "bob", IsCreator: true},
		},
		{
			name:    "join without id",
			event:   service.EventJoinSession,
			payload: `{"playerName":"bob"}`,
			wantErr: service.ErrMalformedPayload,
		},
		{
			name:    "start with null payload",
			event:   service.EventStartSession,
			payload: `null`,
			wantErr: service.ErrMalformedPayload,
		},
		{
			name:    "play",
			event:   service.EventPlayCard,
			payload: `{"id":"ROOM","playerName":"bob","cardIndex":3,"side":"low"}`,
			want:    service.PlayCardRequest{ID: "ROOM", PlayerName: "bob", CardIndex: 3, Side: "low"},
		},
		{
			name:    "play with string index",
			event:   service.EventPlayCard,
			payload: `{"id":"ROOM","playerName":"bob","cardIndex":"3","side":"A"}`,
			wantErr: service.ErrMalformedPayload,
		},
		{
			name:    "draw",
			event:   service.EventDrawNextHazard,
			payload: `{"id":"ROOM"}`,
			want:    service.DrawNextHazardRequest{ID: "ROOM"},
		},
		{
			name:    "unknown",
			event:   "shuffle",
			payload: `{}`,
			wantErr: service.ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.DecodeRequest(tt.event, json.RawMessage(tt.payload))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.event, got.EventName())
		})
	}
}

func TestEventWireShape(t *testing.T) {
	hazard := cards.NewScoringHazard(cards.ColorB, 4)
	state := service.SessionState{StateView: engine.StateView{
		ID:            "ROOM",
		Phase:         engine.PhaseRoundActive,
		Round:         2,
		Started:       true,
		CurrentHazard: &hazard,
		Scores:        map[string]int{"alice": 7},
		RoundScores:   map[string][engine.TotalRounds]int{"alice": {3, 4, 0}},
	}}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ROOM", decoded["id"])
	assert.Equal(t, "round_active", decoded["phase"])
	assert.Equal(t, true, decoded["started"])
	assert.Equal(t, false, decoded["waitingForNextCard"])
	assert.Equal(t, []interface{}{3.0, 4.0, 0.0}, decoded["roundScores"].(map[string]interface{})["alice"])
	assert.Equal(t, 4.0, decoded["currentHazard"].(map[string]interface{})["value"])

	snap := service.PlayerSnapshot{PlayerSnapshot: engine.PlayerSnapshot{
		Name: "alice", ConnectionID: "c1", IsHost: true,
		Hand: []cards.ToolCard{{Value: 2}},
	}}
	data, err = json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice","connectionId":"c1","isHost":true,"hand":[{"value":2}]}`, string(data))
}
