package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to join with")
	to := flag.String("to", "", "send privately to this username")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ, id string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, ID: id, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeHello, "", proto.HelloData{Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoin, "", proto.JoinData{Username: *user}); err != nil {
		return err
	}
	msg := proto.SendMessageData{Message: *text, IsPrivate: *to != "", To: *to}
	if err := send(proto.InboundTypeSendMessage, "smoke-1", msg); err != nil {
		return err
	}

	// Wait for the ack and the server-side delivery receipt of our own message.
	var messageID string
	for {
		var outbound struct {
			Type  string          `json:"type"`
			ID    string          `json:"id"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		if len(outbound.Data) > 0 {
			fmt.Printf(" data=%s", outbound.Data)
		}
		fmt.Println()

		switch outbound.Type {
		case proto.OutboundTypeError:
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		case proto.OutboundTypeAck:
			var ack proto.AckData
			if err := json.Unmarshal(outbound.Data, &ack); err != nil {
				return fmt.Errorf("decode ack: %w", err)
			}
			messageID = ack.ID
		case proto.OutboundTypeEvent:
			if outbound.Event != "message_delivered" || messageID == "" {
				continue
			}
			var receipt proto.Receipt
			if err := json.Unmarshal(outbound.Data, &receipt); err == nil && receipt.ID == messageID {
				fmt.Println("smoke test passed")
				return nil
			}
		}
	}
}
