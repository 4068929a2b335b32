// Licensed under the MIT license which can be found in the LICENSE file.

package main

import (
	"log/slog"
	"time"

	"github.com/LB-00/knx-tunnel/knx"
	"github.com/LB-00/knx-tunnel/knx/cemi"
)

// cliHandler forwards tunnel events to channels the commands consume.
// Telegrams sent with Cast must be cemi.Message values.
type cliHandler struct {
	logger *slog.Logger

	connected chan struct{}
	events    chan knx.GroupEvent
	acks      chan struct{}
}

func newCLIHandler(logger *slog.Logger) *cliHandler {
	return &cliHandler{
		logger:    logger,
		connected: make(chan struct{}, 1),
		events:    make(chan knx.GroupEvent, 32),
		acks:      make(chan struct{}, 1),
	}
}

func (h *cliHandler) Init() error {
	return nil
}

func (h *cliHandler) OnConnect() knx.Action {
	select {
	case h.connected <- struct{}{}:
	default:
	}

	return knx.Action{}
}

func (h *cliHandler) OnDisconnect(reason knx.DisconnectReason) knx.Backoff {
	h.logger.Warn("connection lost, reconnecting", "reason", reason.String())

	return knx.Backoff{Retry: true, After: time.Second}
}

func (h *cliHandler) OnTelegram(msg cemi.Message) knx.Action {
	ev, err := knx.InboundGroupEvent(msg)
	if err != nil {
		h.logger.Debug("ignoring non-group telegram")
		return knx.Action{}
	}

	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event queue is full, dropping telegram")
	}

	return knx.Action{}
}

func (h *cliHandler) OnTelegramAck() knx.Action {
	select {
	case h.acks <- struct{}{}:
	default:
	}

	return knx.Action{}
}

func (h *cliHandler) OnCast(msg any) knx.Action {
	if msg, ok := msg.(cemi.Message); ok {
		return knx.ActionSend(msg)
	}

	return knx.Action{}
}
