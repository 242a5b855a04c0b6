// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/cocowh/eludris/core/common"
	"github.com/cocowh/eludris/core/httpx"
	"github.com/cocowh/eludris/core/ws"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
)

const (
	pingCommand = "!ping"
	pongReply   = "Pong"
)

// eventSource is the part of *ws.Events the loops below need.
type eventSource interface {
	Next(ctx context.Context) (ws.Event, error)
}

// nextEvent returns io.EOF when the stream ended or ctx was canceled.
// Malformed frames are logged and skipped.
func nextEvent(ctx context.Context, events eventSource) (ws.Event, error) {
	for {
		ev, err := events.Next(ctx)
		switch {
		case err == nil:
			return ev, nil
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			return nil, io.EOF
		case errors.Is(err, common.ErrMalformedFrame):
			logger.Warnf("skipping event: %v", err)
			continue
		default:
			return nil, err
		}
	}
}

func listen(ctx context.Context, events eventSource, out io.Writer) error {
	enc := json.NewEncoder(out)
	for {
		ev, err := nextEvent(ctx, events)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(map[string]any{"op": ev.Op(), "d": ev}); err != nil {
			return err
		}
	}
}

func pingBot(ctx context.Context, client *httpx.Client, events eventSource) error {
	for {
		ev, err := nextEvent(ctx, events)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		msg, ok := ev.(*ws.MessageEvent)
		if !ok || strings.TrimSpace(msg.Content) != pingCommand {
			continue
		}
		logger.Debugf("%s asked for a pong", msg.Author)
		if _, err := client.Send(ctx, pongReply); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf("failed to send pong: %v", err)
			if errors.IsAPI(err) {
				continue
			}
			return err
		}
	}
}
