// Package mongo implements the document store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/internal/domain"
)

// Collection names.
const (
	colTours         = "tours"
	colBookings      = "tour_participants"
	colUsers         = "users"
	colNotifications = "notifications"
)

// Store reads and writes the event collections in one Mongo database.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	now     func() time.Time
}

// Connect dials uri, pings the server and ensures the unique indexes.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := &Store{client: client, db: client.Database(database), timeout: timeout, now: time.Now}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.DB.Info("mongo connected", "event", "db.connect", "backend", "mongo", "database", database)
	return s, nil
}

var indexes = map[string][]mongo.IndexModel{
	colTours: {
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	colBookings: {
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tour", Value: 1}}},
	},
	colUsers: {
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	colNotifications: {
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "hour", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	domain.CollectionParticipants: {
		{Keys: bson.D{{Key: domain.RosterKeyField(domain.CollectionParticipants), Value: 1}}},
	},
	domain.CollectionTransfers: {
		{Keys: bson.D{{Key: domain.RosterKeyField(domain.CollectionTransfers), Value: 1}}},
	},
}

// EnsureIndexes creates the indexes every collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for name, models := range indexes {
		ctx, cancel := s.withTimeout(ctx)
		_, err := s.db.Collection(name).Indexes().CreateMany(ctx, models)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure indexes for %s: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ListTours returns all tours ordered by name.
func (s *Store) ListTours(ctx context.Context) ([]domain.Tour, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.db.Collection(colTours).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	var tours []domain.Tour
	if err := cur.All(ctx, &tours); err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return tours, nil
}

// GetTour returns the named tour.
func (s *Store) GetTour(ctx context.Context, name string) (domain.Tour, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var t domain.Tour
	err := s.db.Collection(colTours).FindOne(ctx, bson.M{"name": name}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Tour{}, fmt.Errorf("tour %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Tour{}, fmt.Errorf("get tour %q: %w", name, err)
	}
	return t, nil
}

// DecrementFreePlaces takes one seat with a filtered single-document update.
func (s *Store) DecrementFreePlaces(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.Collection(colTours).UpdateOne(ctx,
		bson.M{"name": name, "free_places": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"free_places": -1}})
	if err != nil {
		return false, fmt.Errorf("decrement %q: %w", name, err)
	}
	return res.ModifiedCount == 1, nil
}

// IncrementFreePlaces returns one seat to the tour.
func (s *Store) IncrementFreePlaces(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.Collection(colTours).UpdateOne(ctx,
		bson.M{"name": name}, bson.M{"$inc": bson.M{"free_places": 1}})
	if err != nil {
		return fmt.Errorf("increment %q: %w", name, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("tour %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// FindBooking returns the booking of userID.
func (s *Store) FindBooking(ctx context.Context, userID int64) (domain.Participant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var p domain.Participant
	err := s.db.Collection(colBookings).FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Participant{}, fmt.Errorf("booking of %d: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("find booking of %d: %w", userID, err)
	}
	return p, nil
}

// InsertBooking stores p. The unique index on user_id rejects a second booking.
func (s *Store) InsertBooking(ctx context.Context, p domain.Participant) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if _, err := s.db.Collection(colBookings).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("booking of %d: %w", p.UserID, domain.ErrAlreadyBooked)
		}
		return fmt.Errorf("insert booking of %d: %w", p.UserID, err)
	}
	return nil
}

// UpdatePassport sets the passport of an existing booking.
func (s *Store) UpdatePassport(ctx context.Context, userID int64, passport string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.Collection(colBookings).UpdateOne(ctx,
		bson.M{"user_id": userID}, bson.M{"$set": bson.M{"user_passport": passport}})
	if err != nil {
		return fmt.Errorf("update passport of %d: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("booking of %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// BookingsByTour returns the bookings of tour ordered by user id.
func (s *Store) BookingsByTour(ctx context.Context, tour string) ([]domain.Participant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.db.Collection(colBookings).Find(ctx, bson.M{"tour": tour},
		options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("bookings of %q: %w", tour, err)
	}
	var out []domain.Participant
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("bookings of %q: %w", tour, err)
	}
	return out, nil
}

// ExportBookings returns every booking document as a flat record without _id.
func (s *Store) ExportBookings(ctx context.Context) ([]domain.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.db.Collection(colBookings).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("export bookings: %w", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("export bookings: %w", err)
	}
	out := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, toRecord(d))
	}
	return out, nil
}

// FindRoster returns documents of collection whose key field starts with prefix.
func (s *Store) FindRoster(ctx context.Context, collection, prefix string) ([]domain.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{domain.RosterKeyField(collection): primitive.Regex{Pattern: prefixPattern(prefix)}}
	cur, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find roster %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find roster %s: %w", collection, err)
	}
	out := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, toRecord(d))
	}
	return out, nil
}

// UpsertUser records userID on first contact.
func (s *Store) UpsertUser(ctx context.Context, userID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.Collection(colUsers).UpdateOne(ctx,
		bson.M{"id": userID},
		bson.M{"$setOnInsert": bson.M{"id": userID, "created_at": s.now()}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("upsert user %d: %w", userID, err)
	}
	return nil
}

// UserIDs returns every known user id in ascending order.
func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.db.Collection(colUsers).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}).SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// FindNotification returns the announcement scheduled for date and hour.
func (s *Store) FindNotification(ctx context.Context, date string, hour int) (domain.Notification, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var n domain.Notification
	err := s.db.Collection(colNotifications).FindOne(ctx, bson.M{"date": date, "hour": hour}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Notification{}, fmt.Errorf("notification %s %d: %w", date, hour, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Notification{}, fmt.Errorf("find notification %s %d: %w", date, hour, err)
	}
	return n, nil
}

// PutTours inserts tours that do not exist yet; existing seat counts are kept.
func (s *Store) PutTours(ctx context.Context, tours []domain.Tour) error {
	for _, t := range tours {
		if err := s.insertMissing(ctx, colTours, bson.M{"name": t.Name}, t); err != nil {
			return fmt.Errorf("put tour %q: %w", t.Name, err)
		}
	}
	return nil
}

// PutRoster fills collection when it is empty.
func (s *Store) PutRoster(ctx context.Context, collection string, records []domain.Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	col := s.db.Collection(collection)
	n, err := col.CountDocuments(ctx, bson.M{}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count roster %s: %w", collection, err)
	}
	if n > 0 || len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		doc := bson.M{}
		for k, v := range rec {
			doc[k] = v
		}
		docs = append(docs, doc)
	}
	if _, err := col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("put roster %s: %w", collection, err)
	}
	return nil
}

// PutNotifications inserts notifications whose date and hour are free.
func (s *Store) PutNotifications(ctx context.Context, items []domain.Notification) error {
	for _, n := range items {
		if err := s.insertMissing(ctx, colNotifications, bson.M{"date": n.Date, "hour": n.Hour}, n); err != nil {
			return fmt.Errorf("put notification %s %d: %w", n.Date, n.Hour, err)
		}
	}
	return nil
}

func (s *Store) insertMissing(ctx context.Context, collection string, filter bson.M, doc interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.Collection(collection).UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

// prefixPattern anchors prefix and escapes regex metacharacters.
func prefixPattern(prefix string) string {
	return "^" + regexp.QuoteMeta(prefix)
}

func toRecord(doc bson.M) domain.Record {
	rec := make(domain.Record, len(doc))
	for k, v := range doc {
		if k == "_id" || v == nil {
			continue
		}
		switch x := v.(type) {
		case string:
			rec[k] = x
		case primitive.DateTime:
			rec[k] = x.Time().UTC().Format(time.RFC3339)
		default:
			rec[k] = fmt.Sprint(x)
		}
	}
	return rec
}
