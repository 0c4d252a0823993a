package http

import (
	"encoding/json"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *core.CoreError) {
	cmd := &core.Command{RequestID: inbound.ID}

	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeJoin(inbound.Data, &join); err != nil {
			return nil, invalidPayload()
		}
		cmd.Kind = core.CommandJoin
		cmd.Identity = join.Username
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, invalidPayload()
		}
		cmd.Kind = core.CommandSendMessage
		cmd.Send = core.SendRequest{
			Body:      msg.Message,
			IsPrivate: msg.IsPrivate,
			To:        msg.To,
			File:      fileFromProto(msg.File),
		}
	case proto.InboundTypePrivateMessage:
		var msg proto.PrivateMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, invalidPayload()
		}
		cmd.Kind = core.CommandSendMessage
		cmd.Send = core.SendRequest{Body: msg.Message, IsPrivate: true, To: msg.To}
	case proto.InboundTypeDelivered, proto.InboundTypeRead, proto.InboundTypeDeleteMessage:
		var ref proto.Ref
		if err := json.Unmarshal(inbound.Data, &ref); err != nil || ref.ID == "" {
			return nil, invalidPayload()
		}
		cmd.MessageID = ref.ID
		switch inbound.Type {
		case proto.InboundTypeDelivered:
			cmd.Kind = core.CommandDelivered
		case proto.InboundTypeRead:
			cmd.Kind = core.CommandRead
		default:
			cmd.Kind = core.CommandDeleteMessage
		}
	case proto.InboundTypeTyping:
		typing, err := decodeTyping(inbound.Data)
		if err != nil {
			return nil, invalidPayload()
		}
		cmd.Kind = core.CommandTyping
		cmd.Typing = typing
	default:
		return nil, core.NewError(core.ErrCodeBadRequest, "unknown message type")
	}

	return cmd, nil
}

// decodeJoin accepts {"username": "..."} or a bare string.
func decodeJoin(data json.RawMessage, join *proto.JoinData) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		join.Username = name
		return nil
	}
	return json.Unmarshal(data, join)
}

// decodeTyping accepts {"isTyping": bool} or a bare boolean.
func decodeTyping(data json.RawMessage) (bool, error) {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		return flag, nil
	}
	var typing proto.TypingData
	if err := json.Unmarshal(data, &typing); err != nil {
		return false, err
	}
	return typing.IsTyping, nil
}

func invalidPayload() *core.CoreError {
	return core.NewError(core.ErrCodeBadRequest, "invalid payload")
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventAck:
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			ID:   event.RequestID,
			Data: proto.AckData{Status: event.Status, ID: event.MessageID},
		}
	case core.EventError:
		out := proto.Outbound{Type: proto.OutboundTypeError, ID: event.RequestID}
		if event.Error == nil {
			out.Error = &proto.Error{Code: "unknown", Msg: "unknown error"}
		} else {
			out.Error = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		}
		return out
	}

	out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}
	switch event.Kind {
	case core.EventUserList:
		users := make([]proto.OnlineUser, 0, len(event.Presence))
		for _, p := range event.Presence {
			users = append(users, proto.OnlineUser{Username: p.Identity, SocketID: p.ConnectionID})
		}
		out.Data = users
	case core.EventUserJoined, core.EventUserLeft:
		if event.User != nil {
			out.Data = proto.UserNotice{Username: event.User.Identity, ID: event.User.ConnectionID}
		}
	case core.EventTypingUsers:
		typing := event.Typing
		if typing == nil {
			typing = []string{}
		}
		out.Data = typing
	case core.EventReceiveMessage, core.EventPrivateMessage:
		if event.Message != nil {
			out.Data = messageToProto(event.Message)
		}
	case core.EventMessageDelivered, core.EventMessageRead:
		if event.Receipt != nil {
			out.Data = proto.Receipt{ID: event.Receipt.MessageID, By: event.Receipt.By}
		}
	case core.EventMessageDeleted:
		out.Data = proto.Ref{ID: event.MessageID}
	case core.EventUserDeleted:
		out.Data = proto.Ref{ID: event.ParticipantID}
	}
	return out
}

func messageToProto(msg *store.Message) proto.Message {
	out := proto.Message{
		ID:          msg.ID,
		Sender:      msg.Sender,
		SenderID:    msg.SenderConnID,
		Message:     msg.Body,
		IsPrivate:   msg.IsPrivate,
		DeliveredTo: msg.DeliveredTo,
		ReadBy:      msg.ReadBy,
		Timestamp:   msg.CreatedAt,
	}
	if msg.To != "" {
		to := msg.To
		out.To = &to
	}
	if msg.File != nil {
		out.File = &proto.File{
			Filename: msg.File.Name,
			URL:      msg.File.URL,
			Mimetype: msg.File.MimeType,
			Size:     msg.File.Size,
		}
	}
	if out.DeliveredTo == nil {
		out.DeliveredTo = []string{}
	}
	if out.ReadBy == nil {
		out.ReadBy = []string{}
	}
	return out
}

func fileFromProto(f *proto.File) *store.FileRef {
	if f == nil {
		return nil
	}
	return &store.FileRef{
		Name:     f.Filename,
		URL:      f.URL,
		MimeType: f.Mimetype,
		Size:     f.Size,
	}
}
