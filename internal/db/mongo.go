package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	m "coinfolio/internal/model"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStorage struct {
	client *mongo.Client
	users  *mongo.Collection
	coins  *mongo.Collection
	lg     zerolog.Logger
}

func NewMongoStorage(ctx context.Context, mc *MongoConfig) (*MongoStorage, error) {

	opts := options.Client().ApplyURI(mc.uri)
	if mc.timeout > 0 {
		opts.SetTimeout(mc.timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	database := client.Database(mc.name)
	stg := &MongoStorage{
		client: client,
		users:  database.Collection("users"),
		coins:  database.Collection("coins"),
		lg:     zerolog.New(os.Stdout).With().Str("Module", "MongoStorage").Timestamp().Logger(),
	}

	if err := stg.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return stg, nil
}

// EnsureIndexes creates the unique and lookup indexes. Only one active
// holding per symbol may exist for a user; inactive duplicates are allowed.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {

	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.coins.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "symbol", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}).
				SetName("userId_symbol_active"),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("coins indexes: %w", err)
	}

	s.lg.Info().Msg("Indexes ensured")
	return nil
}

func (s *MongoStorage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return m.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(m.ErrConflict, err)
	default:
		return err
	}
}

/***************************************************************** users ****************************************************************/

func (s *MongoStorage) findUser(ctx context.Context, filter bson.M) (*m.User, error) {
	var u m.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mongoErr(err)
	}
	return &u, nil
}

func (s *MongoStorage) UserByID(ctx context.Context, id m.ID) (*m.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStorage) UserByEmail(ctx context.Context, email string) (*m.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStorage) UserByEmailOrUsername(ctx context.Context, email, username string) (*m.User, error) {
	return s.findUser(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

func (s *MongoStorage) UserTaken(ctx context.Context, except m.ID, email, username string) (bool, error) {
	or := bson.A{}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if len(or) == 0 {
		return false, nil
	}

	n, err := s.users.CountDocuments(ctx, bson.M{"_id": bson.M{"$ne": except}, "$or": or})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStorage) Users(ctx context.Context, page m.Page) ([]m.User, int64, error) {

	total, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page.Limit > 0 {
		opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.Limit))
	}

	cur, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}

	users := []m.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}

	s.lg.Info().Msgf("Retrieved %d users of %d", len(users), total)
	return users, total, nil
}

func (s *MongoStorage) InsertUser(ctx context.Context, u *m.User) error {
	if u.ID.IsZero() {
		u.ID = m.NewID()
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return mongoErr(err)
	}

	s.lg.Info().Str("id", u.ID.String()).Msg("Inserted user")
	return nil
}

func (s *MongoStorage) UpdateUser(ctx context.Context, id m.ID, fields m.Fields) (*m.User, error) {
	var u m.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &u, nil
}

func (s *MongoStorage) DeleteUser(ctx context.Context, id m.ID) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return m.ErrNotFound
	}

	s.lg.Info().Str("id", id.String()).Msg("Deleted user")
	return nil
}

/***************************************************************** coins ****************************************************************/

func (s *MongoStorage) CoinByID(ctx context.Context, id, userID m.ID) (*m.Coin, error) {
	var c m.Coin
	if err := s.coins.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&c); err != nil {
		return nil, mongoErr(err)
	}
	return &c, nil
}

func (s *MongoStorage) ActiveCoinBySymbol(ctx context.Context, userID m.ID, symbol string) (*m.Coin, error) {
	var c m.Coin
	err := s.coins.FindOne(ctx, bson.M{"userId": userID, "symbol": symbol, "isActive": true}).Decode(&c)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &c, nil
}

func (s *MongoStorage) Coins(ctx context.Context, userID m.ID, filter m.CoinFilter) ([]m.Coin, error) {

	query := bson.M{"userId": userID}
	if filter.Active != nil {
		query["isActive"] = *filter.Active
	}
	if filter.Symbol != "" {
		query["symbol"] = filter.Symbol
	}

	dir := 1
	if filter.Desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortField(filter.Sort), Value: dir}})

	cur, err := s.coins.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	coins := []m.Coin{}
	if err := cur.All(ctx, &coins); err != nil {
		return nil, err
	}

	s.lg.Debug().Msgf("Retrieved %d coins for user %s", len(coins), userID)
	return coins, nil
}

func (s *MongoStorage) InsertCoin(ctx context.Context, c *m.Coin) error {
	if c.ID.IsZero() {
		c.ID = m.NewID()
	}
	if _, err := s.coins.InsertOne(ctx, c); err != nil {
		return mongoErr(err)
	}

	s.lg.Info().Str("id", c.ID.String()).Str("symbol", c.Symbol).Msg("Inserted coin")
	return nil
}

func (s *MongoStorage) UpdateCoin(ctx context.Context, id, userID m.ID, fields m.Fields) (*m.Coin, error) {
	var c m.Coin
	err := s.coins.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &c, nil
}

func (s *MongoStorage) DeleteCoin(ctx context.Context, id, userID m.ID) error {
	res, err := s.coins.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return m.ErrNotFound
	}
	return nil
}

func (s *MongoStorage) DeleteCoinsByOwner(ctx context.Context, userID m.ID) (int64, error) {
	res, err := s.coins.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, err
	}

	s.lg.Info().Int64("deleted", res.DeletedCount).Str("userId", userID.String()).Msg("Deleted coins of user")
	return res.DeletedCount, nil
}
