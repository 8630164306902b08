package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pavelanni/skillmeter/internal/model"
)

const (
	usersCollection    = "users"
	sessionsCollection = "sessions"
	defaultMongoDB     = "skillmeter"
)

// MongoStore keeps users and sessions in a MongoDB database.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
	opts     settings
}

var _ Store = (*MongoStore)(nil)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type sessionDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"user_id"`
	Skill      string             `bson:"skill_name"`
	Questions  []model.Question   `bson:"questions"`
	Answers    []string           `bson:"user_answers"`
	Evaluation model.Evaluation   `bson:"evaluation"`
	Score      float64            `bson:"score"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// NewMongo connects to uri, verifies the connection and ensures indexes.
func NewMongo(ctx context.Context, uri, dbName string, opts ...Option) (*MongoStore, error) {
	o := defaultSettings()
	for _, opt := range opts {
		opt(&o)
	}
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if dbName == "" {
		dbName = defaultMongoDB
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:   client,
		users:    db.Collection(usersCollection),
		sessions: db.Collection(sessionsCollection),
		opts:     o,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	slog.Info("connected to mongodb", "db", dbName)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// CreateUser inserts a new user with a bcrypt password hash.
func (s *MongoStore) CreateUser(ctx context.Context, email, password string) (model.UserID, error) {
	hash, err := hashPassword(password, s.opts.hashCost)
	if err != nil {
		return "", err
	}
	res, err := s.users.InsertOne(ctx, userDoc{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.opts.now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return "", model.ErrAlreadyExists
	}
	if err != nil {
		slog.Error("failed to create user", "email", email, "error", err)
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id %T", res.InsertedID)
	}
	slog.Info("created user", "id", oid.Hex(), "email", email)
	return model.UserID(oid.Hex()), nil
}

// VerifyUser returns the user's ID when the credentials match.
func (s *MongoStore) VerifyUser(ctx context.Context, email, password string) (model.UserID, error) {
	u, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", model.ErrAuthFailure
	}
	if err := checkPassword(u.PasswordHash, password); err != nil {
		return "", err
	}
	return u.ID, nil
}

// FindUserByEmail returns a user by email.
func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// GetUser returns a user by ID.
func (s *MongoStore) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := doc.toUser()
	return &u, nil
}

// SaveSession records a finished quiz attempt.
func (s *MongoStore) SaveSession(ctx context.Context, in model.NewSession) (model.SessionID, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	if _, err := objectID(in.UserID); err != nil {
		return "", err
	}
	res, err := s.sessions.InsertOne(ctx, newSessionDoc(in, s.opts.now().UTC()))
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id %T", res.InsertedID)
	}
	return model.SessionID(oid.Hex()), nil
}

// GetUserSessions returns the user's sessions, newest first.
func (s *MongoStore) GetUserSessions(ctx context.Context, id model.UserID) ([]model.QuizSession, error) {
	if _, err := objectID(id); err != nil {
		return nil, err
	}
	cur, err := s.sessions.Find(ctx, bson.M{"user_id": id.String()}, options.Find().SetSort(sessionOrder))
	if err != nil {
		return nil, err
	}
	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	sessions := make([]model.QuizSession, 0, len(docs))
	for _, d := range docs {
		sessions = append(sessions, d.toSession())
	}
	return sessions, nil
}

// GetLatestSession returns the user's newest session, or nil.
func (s *MongoStore) GetLatestSession(ctx context.Context, id model.UserID) (*model.QuizSession, error) {
	if _, err := objectID(id); err != nil {
		return nil, err
	}
	var doc sessionDoc
	err := s.sessions.FindOne(ctx, bson.M{"user_id": id.String()}, options.FindOne().SetSort(sessionOrder)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	qs := doc.toSession()
	return &qs, nil
}

// ObjectIDs grow with insertion time, so _id breaks created_at ties.
var sessionOrder = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func objectID(id model.UserID) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id.String())
	if err != nil {
		return primitive.NilObjectID, &model.ValidationError{Field: "user_id", Reason: model.ReasonMalformed}
	}
	return oid, nil
}

func newSessionDoc(in model.NewSession, now time.Time) sessionDoc {
	return sessionDoc{
		UserID:     in.UserID.String(),
		Skill:      in.Skill,
		Questions:  in.Questions,
		Answers:    in.Answers,
		Evaluation: in.Evaluation,
		Score:      in.Score,
		CreatedAt:  now,
	}
}

func (d userDoc) toUser() model.User {
	return model.User{
		ID:           model.UserID(d.ID.Hex()),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func (d sessionDoc) toSession() model.QuizSession {
	return model.QuizSession{
		ID:         model.SessionID(d.ID.Hex()),
		UserID:     model.UserID(d.UserID),
		Skill:      d.Skill,
		Questions:  d.Questions,
		Answers:    d.Answers,
		Evaluation: d.Evaluation,
		Score:      d.Score,
		CreatedAt:  d.CreatedAt,
	}
}
