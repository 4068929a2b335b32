// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LB-00/knx-tunnel/knx/cemi"
)

func TestOutboundGroupEvent(t *testing.T) {
	source := cemi.IndividualAddr(0x1103)
	dest := cemi.GroupAddr(0x0003)

	tests := []struct {
		name     string
		data     []byte
		expected []byte
	}{
		// Values that fit six bits travel inside the APCI octet.
		{"inline", []byte{0x19}, []byte{0x19}},
		{"boundary", []byte{0x40}, []byte{0, 0x40}},
		{"multi byte", []byte{0x19, 0x17}, []byte{0, 0x19, 0x17}},
		{"empty", nil, []byte{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := OutboundGroupEvent(GroupEvent{
				Command:     GroupWrite,
				Destination: dest,
				Data:        tt.data,
			}, source)

			req, ok := msg.(*cemi.LDataReq)
			require.True(t, ok)

			assert.Equal(t, source, req.Source)
			assert.Equal(t, dest, req.Destination)

			app, ok := req.Data.(*cemi.AppData)
			require.True(t, ok)
			assert.Equal(t, cemi.GroupValueWrite, app.Command)
			assert.Equal(t, tt.expected, app.Data)
		})
	}
}

func TestGroupEventRoundTrip(t *testing.T) {
	source := cemi.IndividualAddr(0x1101)

	tests := []struct {
		name string
		ev   GroupEvent
	}{
		{"read", GroupEvent{Command: GroupRead, Destination: 3, Data: []byte{0}}},
		{"inline write", GroupEvent{Command: GroupWrite, Destination: 3, Data: []byte{0x19}}},
		{"response", GroupEvent{Command: GroupResponse, Destination: 515, Data: []byte{0x0d, 0xdc}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ev.Source = source

			msg := OutboundGroupEvent(tt.ev, source)

			// An outbound request reads back like the matching indication.
			ind := &cemi.LDataInd{LData: msg.(*cemi.LDataReq).LData}

			parsed, err := InboundGroupEvent(ind)
			require.NoError(t, err)
			assert.Equal(t, tt.ev, parsed)
		})
	}
}

func TestInboundGroupEventInlineValue(t *testing.T) {
	ind := &cemi.LDataInd{
		LData: cemi.NewLData(
			cemi.IndividualAddr(0x1101),
			cemi.GroupAddr(3),
			&cemi.AppData{Command: cemi.GroupValueWrite, Data: []byte{0x19}},
		),
	}

	ev, err := InboundGroupEvent(ind)
	require.NoError(t, err)

	assert.Equal(t, GroupWrite, ev.Command)
	assert.Equal(t, []byte{0x19}, ev.Data)
}

func TestInboundGroupEventRejectsNonGroup(t *testing.T) {
	ldata := cemi.NewLData(
		cemi.IndividualAddr(0x1101),
		cemi.GroupAddr(3),
		&cemi.AppData{Command: cemi.GroupValueWrite, Data: []byte{1}},
	)

	// Outbound requests are not inbound events.
	_, err := InboundGroupEvent(&cemi.LDataReq{LData: ldata})
	assert.ErrorIs(t, err, ErrNotGroupMessage)

	// Control frames carry no group data.
	control := ldata
	control.Data = &cemi.ControlData{Command: cemi.Connect}

	_, err = InboundGroupEvent(&cemi.LDataInd{LData: control})
	assert.ErrorIs(t, err, ErrNotGroupMessage)

	// Unknown application commands are not group commands.
	unknown := ldata
	unknown.Data = &cemi.AppData{Command: cemi.APCI(3 << 6), Data: []byte{1}}

	_, err = InboundGroupEvent(&cemi.LDataInd{LData: unknown})
	assert.ErrorIs(t, err, ErrNotGroupMessage)
}

func TestParseGroupCommand(t *testing.T) {
	for name, expected := range map[string]GroupCommand{
		"read":     GroupRead,
		"response": GroupResponse,
		"write":    GroupWrite,
	} {
		cmd, err := ParseGroupCommand(name)
		require.NoError(t, err)
		assert.Equal(t, expected, cmd)
	}

	_, err := ParseGroupCommand("toggle")
	assert.Error(t, err)
}
