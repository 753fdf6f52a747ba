// Package mongo is the MongoDB store driver. Collection and field names
// match the chat/server documents the relay has always written, so an
// existing database can be pointed at directly.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dkeye/chatrelay/internal/domain"
)

type chatDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ServerName   string             `bson:"server_name"`
	Nickname     string             `bson:"chat_nickname"`
	Contents     string             `bson:"chat_contents"`
	Date         time.Time          `bson:"chat_date"`
	FileName     string             `bson:"file_name,omitempty"`
	FileUUID     string             `bson:"file_uuid,omitempty"`
	FileURL      string             `bson:"file_url,omitempty"`
	FileShortURL string             `bson:"file_short_url,omitempty"`
	FileKind     string             `bson:"file_kind,omitempty"`
	FileStatus   string             `bson:"file_status,omitempty"`
}

type serverDoc struct {
	ServerName string `bson:"server_name"`
	Persons    int    `bson:"server_pers"`
}

type Store struct {
	client  *mongo.Client
	chats   *mongo.Collection
	servers *mongo.Collection
	now     func() time.Time
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:  client,
		chats:   db.Collection("chats"),
		servers: db.Collection("servers"),
		now:     time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("module", "store.mongo").Str("database", database).Msg("connected")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "server_name", Value: 1}, {Key: "chat_date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chats index: %w", err)
	}
	_, err = s.servers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "server_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create servers index: %w", err)
	}
	return nil
}

func toDoc(m domain.Message) chatDoc {
	d := chatDoc{
		ServerName: string(m.Room),
		Nickname:   m.Nickname,
		Contents:   m.Text,
		Date:       m.Timestamp,
	}
	if a := m.Attachment; a != nil {
		d.FileName = a.OriginalName
		d.FileUUID = a.ID
		d.FileURL = a.RemoteURL
		d.FileShortURL = a.ShortURL
		d.FileKind = string(a.Kind)
		d.FileStatus = string(a.Status)
	}
	return d
}

func fromDoc(d chatDoc) domain.Message {
	m := domain.Message{
		ID:        d.ID.Hex(),
		Room:      domain.RoomName(d.ServerName),
		Nickname:  d.Nickname,
		Text:      d.Contents,
		Timestamp: d.Date.Local(),
	}
	if d.FileUUID != "" {
		m.Attachment = &domain.Attachment{
			ID:           d.FileUUID,
			OriginalName: d.FileName,
			RemoteURL:    d.FileURL,
			ShortURL:     d.FileShortURL,
			Kind:         domain.AttachmentKind(d.FileKind),
			Status:       domain.AttachmentStatus(d.FileStatus),
		}
	}
	return m
}

func (s *Store) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	res, err := s.chats.InsertOne(ctx, toDoc(msg))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append: %w", domain.ErrStoreUnavailable, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}
	return msg, nil
}

func (s *Store) QueryToday(ctx context.Context, room domain.RoomName) ([]domain.Message, error) {
	filter := bson.M{
		"server_name": string(room),
		"chat_date":   bson.M{"$gte": domain.StartOfDay(s.now())},
	}
	// ObjectIDs grow with insertion, which settles equal timestamps.
	opts := options.Find().SetSort(bson.D{{Key: "chat_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStoreUnavailable, err)
	}
	var docs []chatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrStoreUnavailable, err)
	}
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	cur, err := s.servers.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "server_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms: %w", domain.ErrStoreUnavailable, err)
	}
	var docs []serverDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: list rooms: %w", domain.ErrStoreUnavailable, err)
	}
	out := make([]domain.Room, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Room{Name: domain.RoomName(d.ServerName), Occupancy: d.Persons})
	}
	return out, nil
}

func (s *Store) IncrementOccupancy(ctx context.Context, room domain.RoomName, delta int) error {
	_, err := s.servers.UpdateOne(ctx, bson.M{"server_name": string(room)}, bson.M{"$inc": bson.M{"server_pers": delta}})
	if err != nil {
		return fmt.Errorf("%w: increment occupancy: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) SetOccupancy(ctx context.Context, room domain.RoomName, n int) error {
	_, err := s.servers.UpdateOne(ctx, bson.M{"server_name": string(room)}, bson.M{"$set": bson.M{"server_pers": n}})
	if err != nil {
		return fmt.Errorf("%w: set occupancy: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) SeedRooms(ctx context.Context, names []domain.RoomName) (int, error) {
	created := 0
	for _, name := range names {
		res, err := s.servers.UpdateOne(ctx,
			bson.M{"server_name": string(name)},
			bson.M{"$setOnInsert": serverDoc{ServerName: string(name)}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return created, fmt.Errorf("%w: seed %s: %w", domain.ErrStoreUnavailable, name, err)
		}
		created += int(res.UpsertedCount)
	}
	return created, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
