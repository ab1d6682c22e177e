// Package mongostore keeps licenses in a MongoDB collection. Documents use the
// field names of the legacy Node service so an existing "licenses" collection can
// be served as is.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/cheetahbyte/licensor/internal/license"
)

const (
	CollectionName  = "licenses"
	defaultDatabase = "licensor"

	defaultServerSelectionTimeout = 5 * time.Second
)

var ErrEmptyURI = errors.New("mongo uri cannot be empty")

type Config struct {
	URI      string
	Database string
	Logger   *slog.Logger
}

type document struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Key           string             `bson:"key"`
	MaxAccounts   int                `bson:"maxAccounts"`
	BoundAccounts []int64            `bson:"boundAccounts"`
	Expiry        *time.Time         `bson:"expiry"`
	Status        string             `bson:"status"`
	CreatedAt     time.Time          `bson:"createdAt,omitempty"`
}

func (d document) toLicense() license.License {
	l := license.License{
		Key:           d.Key,
		MaxAccounts:   d.MaxAccounts,
		BoundAccounts: d.BoundAccounts,
		Status:        license.Status(d.Status),
		CreatedAt:     d.CreatedAt,
	}
	if l.BoundAccounts == nil {
		l.BoundAccounts = []int64{}
	}
	if d.Expiry != nil {
		e := d.Expiry.UTC()
		l.Expiry = &e
	}
	return l
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Open connects, pings, and makes sure the unique index on key exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, ErrEmptyURI
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	database := cfg.Database
	if database == "" {
		database = databaseFromURI(cfg.URI)
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(defaultServerSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if derr := client.Disconnect(ctx); derr != nil {
			logger.Warn("failed to disconnect after ping failure", "err", derr)
		}
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{
		client: client,
		coll:   client.Database(database).Collection(CollectionName),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongo store connected", "database", database, "collection", CollectionName)
	return s, nil
}

func databaseFromURI(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo create index on key: %w", err)
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, key string) (license.License, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return license.License{}, license.ErrNotFound
	}
	if err != nil {
		return license.License{}, fmt.Errorf("mongo find license: %w", err)
	}
	return doc.toLicense(), nil
}

func (s *Store) Insert(ctx context.Context, n license.NewLicense) (license.License, error) {
	if err := n.Validate(); err != nil {
		return license.License{}, err
	}

	l := n.Build(s.now())
	doc := document{
		Key:           l.Key,
		MaxAccounts:   l.MaxAccounts,
		BoundAccounts: l.BoundAccounts,
		Expiry:        l.Expiry,
		Status:        string(l.Status),
		CreatedAt:     l.CreatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return license.License{}, fmt.Errorf("insert %q: %w", n.Key, license.ErrDuplicateKey)
		}
		return license.License{}, fmt.Errorf("mongo insert license: %w", err)
	}
	return l, nil
}

// AppendAccount pushes account in one conditional update: the filter only matches
// while the account is absent and the array is shorter than maxAccounts, so the
// server serializes competing binds on the same document.
func (s *Store) AppendAccount(ctx context.Context, key string, account int64) (license.License, error) {
	filter := bson.M{
		"key":           key,
		"boundAccounts": bson.M{"$ne": account},
		"$expr": bson.M{
			"$lt": bson.A{
				bson.M{"$size": bson.M{"$ifNull": bson.A{"$boundAccounts", bson.A{}}}},
				"$maxAccounts",
			},
		},
	}
	update := bson.M{"$push": bson.M{"boundAccounts": account}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc document
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toLicense(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return license.License{}, fmt.Errorf("mongo append account: %w", err)
	}

	// No match: the license is missing, already holds the account, or is full.
	current, err := s.Lookup(ctx, key)
	if err != nil {
		return license.License{}, err
	}
	if current.HasAccount(account) {
		return current, nil
	}
	return license.License{}, license.ErrAccountLimitExceeded
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}

// Collection exposes the backing collection for maintenance tasks and tests.
func (s *Store) Collection() *mongo.Collection { return s.coll }
