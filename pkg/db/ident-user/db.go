package identuser

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ident-framework/ident-backend/pkg/db"
)

// collection names
const (
	COLLECTION_NAME_USERS      = "users"
	COLLECTION_NAME_SESSIONS   = "sessions"
	COLLECTION_NAME_CHALLENGES = "challenges"
)

type IdentUserDBService struct {
	DBClient     *mongo.Client
	timeout      int
	DBNamePrefix string
}

func NewIdentUserDBService(configs db.DBConfig) (*IdentUserDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)
	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()
	if err != nil {
		return nil, err
	}

	dbService := &IdentUserDBService{
		DBClient:     dbClient,
		timeout:      configs.Timeout,
		DBNamePrefix: configs.DBNamePrefix,
	}
	return dbService, nil
}

func (dbService *IdentUserDBService) getDBName() string {
	return dbService.DBNamePrefix + "identity"
}

func (dbService *IdentUserDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *IdentUserDBService) collectionUsers() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_USERS)
}

func (dbService *IdentUserDBService) collectionSessions() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_SESSIONS)
}

func (dbService *IdentUserDBService) collectionChallenges() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_CHALLENGES)
}

func (dbService *IdentUserDBService) CreateDefaultIndexes() {
	if err := dbService.CreateIndexForUsers(); err != nil {
		slog.Error("failed to create indexes for users", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForSessions(); err != nil {
		slog.Error("failed to create indexes for sessions", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForChallenges(); err != nil {
		slog.Error("failed to create indexes for challenges", slog.String("error", err.Error()))
	}
}
