package identuser

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

const (
	SESSION_TTL = 60 * 60 * 24 // seconds
)

func (dbService *IdentUserDBService) CreateIndexForSessions() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSessions().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "sessionID", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "refreshToken", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "userID", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
			{
				Keys: bson.D{
					{Key: "createdAt", Value: 1},
				},
				Options: options.Index().SetExpireAfterSeconds(SESSION_TTL),
			},
		},
	)
	return err
}

func (dbService *IdentUserDBService) CreateSession(session types.Session) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSessions().InsertOne(ctx, session)
	return db.TranslateError(err, map[string]string{
		"sessionID":    "sessionID",
		"refreshToken": "refreshToken",
	})
}

func (dbService *IdentUserDBService) GetSessionBySessionID(sessionID string) (types.Session, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var session types.Session
	err := dbService.collectionSessions().FindOne(ctx, bson.M{"sessionID": sessionID}).Decode(&session)
	return session, db.TranslateError(err, nil)
}

// PopSessionByRefreshToken atomically removes and returns the session that
// owns the refresh token; rotation must never leave the old pair usable.
func (dbService *IdentUserDBService) PopSessionByRefreshToken(refreshToken string) (types.Session, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var session types.Session
	err := dbService.collectionSessions().FindOneAndDelete(ctx, bson.M{"refreshToken": refreshToken}).Decode(&session)
	return session, db.TranslateError(err, nil)
}

// DeleteSession removes one session scoped to its owning user.
func (dbService *IdentUserDBService) DeleteSession(userID string, sessionID string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionSessions().DeleteOne(ctx, bson.M{"userID": userID, "sessionID": sessionID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (dbService *IdentUserDBService) DeleteSessionsForUser(userID string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionSessions().DeleteMany(ctx, bson.M{"userID": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (dbService *IdentUserDBService) ListSessionsForUser(userID string) ([]types.Session, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := dbService.collectionSessions().Find(ctx, bson.M{"userID": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []types.Session{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
