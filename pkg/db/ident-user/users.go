package identuser

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

var userIndexFields = map[string]string{
	"account.email":    "email",
	"account.userName": "userName",
}

func (dbService *IdentUserDBService) CreateIndexForUsers() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionUsers().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "account.email", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "account.userName", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "timestamps.createdAt", Value: 1},
				},
			},
		},
	)
	return err
}

func (dbService *IdentUserDBService) CreateUser(user types.User) (string, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionUsers().InsertOne(ctx, user)
	if err != nil {
		return "", db.TranslateError(err, userIndexFields)
	}
	id := res.InsertedID.(primitive.ObjectID)
	return id.Hex(), nil
}

func (dbService *IdentUserDBService) GetUserByID(userID string) (types.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return types.User{}, db.ErrNotFound
	}

	var user types.User
	err = dbService.collectionUsers().FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	return user, db.TranslateError(err, nil)
}

func (dbService *IdentUserDBService) GetUserByEmail(email string) (types.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var user types.User
	err := dbService.collectionUsers().FindOne(ctx, bson.M{"account.email": email}).Decode(&user)
	return user, db.TranslateError(err, nil)
}

// UpdateUser applies a $set document; every state transition is a single
// atomic update, not a read-modify-write.
func (dbService *IdentUserDBService) UpdateUser(userID string, set map[string]interface{}) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return db.ErrNotFound
	}

	set["timestamps.updatedAt"] = time.Now().Unix()
	res, err := dbService.collectionUsers().UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return db.TranslateError(err, userIndexFields)
	}
	if res.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (dbService *IdentUserDBService) CountRecentlyCreatedUsers(window time.Duration) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"timestamps.createdAt": bson.M{"$gt": time.Now().Add(-window).Unix()}}
	return dbService.collectionUsers().CountDocuments(ctx, filter)
}

// DeleteUnverifiedUsers removes accounts that never verified their email and
// were created before the given timestamp.
func (dbService *IdentUserDBService) DeleteUnverifiedUsers(createdBefore int64) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"status.isVerified":    false,
		"timestamps.createdAt": bson.M{"$lt": createdBefore},
	}
	res, err := dbService.collectionUsers().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// PurgeDeletedUsers removes soft-deleted accounts whose retention period is
// over, together with any document-level trace of them.
func (dbService *IdentUserDBService) PurgeDeletedUsers(deletedBefore int64) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"status.isDeleted": true,
		"status.deletedAt": bson.M{"$lt": deletedBefore},
	}
	res, err := dbService.collectionUsers().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
