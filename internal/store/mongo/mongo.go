// Package mongo implements store.Store on MongoDB. Receipt sets are kept as
// arrays on the message document and updated with $addToSet.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

const (
	messagesCollection     = "messages"
	participantsCollection = "users"
)

type messageDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Sender       string             `bson:"sender"`
	SenderConnID string             `bson:"senderId"`
	Body         string             `bson:"message"`
	IsPrivate    bool               `bson:"isPrivate"`
	To           *string            `bson:"to"`
	File         *store.FileRef     `bson:"file,omitempty"`
	DeliveredTo  []string           `bson:"deliveredTo"`
	ReadBy       []string           `bson:"readBy"`
	Timestamp    time.Time          `bson:"timestamp"`
}

type participantDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	SocketID  *string            `bson:"socketId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// MongoStore implements store.Store for MongoDB.
type MongoStore struct {
	client       *mongo.Client
	messages     *mongo.Collection
	participants *mongo.Collection
}

// New connects to uri, verifies the connection and ensures indexes.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		messages:     db.Collection(messagesCollection),
		participants: db.Collection(participantsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.participants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "socketId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create participant indexes: %w", err)
	}
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create message index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// InsertMessage persists a message with empty receipt sets.
func (s *MongoStore) InsertMessage(ctx context.Context, msg store.NewMessage) (*store.Message, error) {
	doc := messageDoc{
		Sender:       msg.Sender,
		SenderConnID: msg.SenderConnID,
		Body:         msg.Body,
		IsPrivate:    msg.IsPrivate,
		File:         msg.File,
		DeliveredTo:  []string{},
		ReadBy:       []string{},
		// Mongo stores milliseconds; truncate so the returned value matches a later read.
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	if msg.To != "" {
		to := msg.To
		doc.To = &to
	}

	res, err := s.messages.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = oid

	return doc.toStore(), nil
}

// GetMessage retrieves a message by id.
func (s *MongoStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}

	var doc messageDoc
	if err := s.messages.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return doc.toStore(), nil
}

// UpdateMessageSets adds connection ids to the receipt arrays with $addToSet.
func (s *MongoStore) UpdateMessageSets(ctx context.Context, id string, update store.SetUpdate) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	add := bson.M{}
	if update.Delivered != "" {
		add["deliveredTo"] = update.Delivered
	}
	if update.Read != "" {
		add["readBy"] = update.Read
	}
	if len(add) == 0 {
		n, err := s.messages.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return false, fmt.Errorf("count message: %w", err)
		}
		return n > 0, nil
	}

	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$addToSet": add})
	if err != nil {
		return false, fmt.Errorf("update message sets: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteMessage removes a message by id.
func (s *MongoStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := s.messages.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteAllMessages removes every message.
func (s *MongoStore) DeleteAllMessages(ctx context.Context) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// ListMessages returns up to limit messages ordered by timestamp.
func (s *MongoStore) ListMessages(ctx context.Context, limit int, ascending bool) ([]*store.Message, error) {
	dir := 1
	if !ascending {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: dir}, {Key: "_id", Value: dir}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.messages.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(docs))
	for i := range docs {
		messages = append(messages, docs[i].toStore())
	}
	return messages, nil
}

// UpsertParticipant creates the participant on first join and sets its socket id.
func (s *MongoStore) UpsertParticipant(ctx context.Context, username, connID string) (*store.Participant, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set":         bson.M{"socketId": connID},
		"$setOnInsert": bson.M{"createdAt": time.Now().UTC().Truncate(time.Millisecond)},
	}

	var doc participantDoc
	err := s.participants.FindOneAndUpdate(ctx, bson.M{"username": username}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("upsert participant: %w", err)
	}
	return doc.toStore(), nil
}

// ClearConnection unsets the socket id of participants bound to connID.
func (s *MongoStore) ClearConnection(ctx context.Context, connID string) error {
	_, err := s.participants.UpdateMany(ctx, bson.M{"socketId": connID}, bson.M{"$unset": bson.M{"socketId": ""}})
	if err != nil {
		return fmt.Errorf("clear connection: %w", err)
	}
	return nil
}

// ListParticipants returns all participants ordered by creation time.
func (s *MongoStore) ListParticipants(ctx context.Context) ([]*store.Participant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.participants.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}
	var docs []participantDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}

	participants := make([]*store.Participant, 0, len(docs))
	for i := range docs {
		participants = append(participants, docs[i].toStore())
	}
	return participants, nil
}

// DeleteParticipant removes a participant by id.
func (s *MongoStore) DeleteParticipant(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := s.participants.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete participant: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteAllParticipants removes every participant.
func (s *MongoStore) DeleteAllParticipants(ctx context.Context) error {
	if _, err := s.participants.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}

func (d *messageDoc) toStore() *store.Message {
	msg := &store.Message{
		ID:           d.ID.Hex(),
		Sender:       d.Sender,
		SenderConnID: d.SenderConnID,
		Body:         d.Body,
		IsPrivate:    d.IsPrivate,
		File:         d.File,
		DeliveredTo:  d.DeliveredTo,
		ReadBy:       d.ReadBy,
		CreatedAt:    d.Timestamp,
	}
	if d.To != nil {
		msg.To = *d.To
	}
	if msg.DeliveredTo == nil {
		msg.DeliveredTo = []string{}
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}
	return msg
}

func (d *participantDoc) toStore() *store.Participant {
	p := &store.Participant{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		CreatedAt: d.CreatedAt,
	}
	if d.SocketID != nil {
		p.ConnectionID = *d.SocketID
	}
	return p
}
