// Licensed under the MIT license which can be found in the LICENSE file.

package cemi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packMessage(t *testing.T, message Message) []byte {
	t.Helper()

	buffer := make([]byte, Size(message))
	Pack(buffer, message)

	return buffer
}

func TestPackGroupWriteIndication(t *testing.T) {
	msg := &LDataInd{
		LData: NewLData(
			IndividualAddr(0x1101),
			GroupAddr(0x0003),
			&AppData{Command: GroupValueWrite, Data: []byte{0, 0x19, 0x17}},
		),
	}

	expected := []byte{
		0x29, 0x00,
		0xbc, 0xe0,
		0x11, 0x01,
		0x00, 0x03,
		0x03, 0x00, 0x80, 0x19, 0x17,
	}

	assert.Equal(t, expected, packMessage(t, msg))
}

func TestMessageRoundTrips(t *testing.T) {
	units := []struct {
		name string
		unit TransportUnit
	}{
		{
			"inline value",
			&AppData{Command: GroupValueWrite, Data: []byte{0x19}},
		},
		{
			"multi byte payload",
			&AppData{Command: GroupValueWrite, Data: []byte{0, 0x0d, 0xdc}},
		},
		{
			"read request",
			&AppData{Command: GroupValueRead, Data: []byte{0}},
		},
		{
			"response",
			&AppData{Command: GroupValueResponse, Data: []byte{0, 0x41, 0x46, 0x00, 0x00}},
		},
		{
			"numbered",
			&AppData{Numbered: true, SeqNumber: 11, Command: GroupValueWrite, Data: []byte{1}},
		},
		{
			"control",
			&ControlData{Command: Connect},
		},
		{
			"numbered control",
			&ControlData{Numbered: true, SeqNumber: 5, Command: Ack},
		},
	}

	messages := func(unit TransportUnit) []Message {
		ldata := NewLData(IndividualAddr(0x110f), GroupAddr(0x0903), unit)

		return []Message{
			&LDataReq{LData: ldata},
			&LDataInd{LData: ldata},
			&LDataCon{LData: ldata},
		}
	}

	for _, tt := range units {
		t.Run(tt.name, func(t *testing.T) {
			for _, msg := range messages(tt.unit) {
				buffer := packMessage(t, msg)

				var parsed Message

				n, err := Unpack(buffer, &parsed)
				require.NoError(t, err)
				assert.Equal(t, uint(len(buffer)), n)
				assert.Equal(t, msg, parsed)
			}
		})
	}
}

func TestUnpackSkipsAdditionalInfo(t *testing.T) {
	msg := &LDataInd{
		LData: NewLData(
			IndividualAddr(0x1101),
			GroupAddr(0x0003),
			&AppData{Command: GroupValueWrite, Data: []byte{0x19}},
		),
	}

	plain := packMessage(t, msg)

	// Splice a four byte additional-info segment behind the message code.
	info := []byte{0x03, 0x02, 0x10, 0xff}
	frame := append([]byte{plain[0], byte(len(info))}, info...)
	frame = append(frame, plain[2:]...)

	var parsed Message

	n, err := Unpack(frame, &parsed)
	require.NoError(t, err)
	assert.Equal(t, uint(len(frame)), n)
	assert.Equal(t, msg, parsed)
}

func TestUnpackRejectsUnknownMessageCode(t *testing.T) {
	frame := packMessage(t, &LDataInd{
		LData: NewLData(
			IndividualAddr(0x1101),
			GroupAddr(0x0003),
			&AppData{Command: GroupValueWrite, Data: []byte{0x19}},
		),
	})
	frame[0] = 0x10

	var parsed Message

	_, err := Unpack(frame, &parsed)
	assert.ErrorIs(t, err, ErrUnsupportedMessageCode)
}

func TestUnpackRejectsTruncatedFrames(t *testing.T) {
	frame := packMessage(t, &LDataInd{
		LData: NewLData(
			IndividualAddr(0x1101),
			GroupAddr(0x0003),
			&AppData{Command: GroupValueWrite, Data: []byte{0, 0x19, 0x17}},
		),
	})

	for length := 0; length < len(frame); length++ {
		var parsed Message

		_, err := Unpack(frame[:length], &parsed)
		assert.Error(t, err, "length %d", length)
	}
}

func TestAppDataPadsEmptyPayload(t *testing.T) {
	app := &AppData{Command: GroupValueRead}

	assert.EqualValues(t, 3, app.Size())

	buffer := make([]byte, app.Size())
	app.Pack(buffer)

	assert.Equal(t, []byte{0x01, 0x00, 0x00}, buffer)
}

func TestAppDataMasksInlineValue(t *testing.T) {
	// The upper two bits of the first data byte belong to the APCI.
	app := &AppData{Command: GroupValueWrite, Data: []byte{0xff}}

	buffer := make([]byte, app.Size())
	app.Pack(buffer)

	assert.Equal(t, []byte{0x01, 0x00, 0xbf}, buffer)

	var unit TransportUnit

	_, err := unpackTransportUnit(buffer, &unit)
	require.NoError(t, err)

	parsed, ok := unit.(*AppData)
	require.True(t, ok)
	assert.Equal(t, GroupValueWrite, parsed.Command)
	assert.Equal(t, []byte{0x3f}, parsed.Data)
}
