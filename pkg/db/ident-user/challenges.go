package identuser

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

func (dbService *IdentUserDBService) CreateIndexForChallenges() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionChallenges().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "userID", Value: 1},
					{Key: "type", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "expiresAt", Value: 1},
				},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
	)
	return err
}

// CreateChallenge inserts the single challenge document for (user, type);
// a second concurrent insert fails on the unique index.
func (dbService *IdentUserDBService) CreateChallenge(challenge types.Challenge) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionChallenges().InsertOne(ctx, challenge)
	return db.TranslateError(err, map[string]string{"userID": "challenge"})
}

func (dbService *IdentUserDBService) GetChallenge(userID string, t types.ChallengeType) (types.Challenge, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var challenge types.Challenge
	err := dbService.collectionChallenges().FindOne(ctx, bson.M{"userID": userID, "type": t}).Decode(&challenge)
	return challenge, db.TranslateError(err, nil)
}

func (dbService *IdentUserDBService) DeleteChallenge(userID string, t types.ChallengeType) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionChallenges().DeleteOne(ctx, bson.M{"userID": userID, "type": t})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

// IncrementChallengeAttempts bumps the wrong-attempt counter atomically and
// returns the new value.
func (dbService *IdentUserDBService) IncrementChallengeAttempts(userID string, t types.ChallengeType) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var challenge types.Challenge
	err := dbService.collectionChallenges().FindOneAndUpdate(
		ctx,
		bson.M{"userID": userID, "type": t},
		bson.M{"$inc": bson.M{"failedAttempts": 1}},
		opts,
	).Decode(&challenge)
	if err != nil {
		return 0, db.TranslateError(err, nil)
	}
	return challenge.FailedAttempts, nil
}

// ResetChallengeAttempts clears the counter, e.g. after a successful
// authenticator verification against long-lived material.
func (dbService *IdentUserDBService) ResetChallengeAttempts(userID string, t types.ChallengeType) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionChallenges().UpdateOne(
		ctx,
		bson.M{"userID": userID, "type": t},
		bson.M{"$set": bson.M{"failedAttempts": 0}},
	)
	return err
}

// ConfirmChallenge promotes pending material to active: clears the temp
// flag, the attempt counter and the expiry in one update.
func (dbService *IdentUserDBService) ConfirmChallenge(userID string, t types.ChallengeType) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionChallenges().UpdateOne(
		ctx,
		bson.M{"userID": userID, "type": t},
		bson.M{
			"$set":   bson.M{"isTemp": false, "failedAttempts": 0},
			"$unset": bson.M{"expiresAt": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (dbService *IdentUserDBService) DeleteChallengesForUser(userID string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionChallenges().DeleteMany(ctx, bson.M{"userID": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpiredChallenges sweeps challenges the TTL index has not evicted
// yet. The TTL monitor runs on its own schedule, this keeps reporting exact.
func (dbService *IdentUserDBService) DeleteExpiredChallenges() (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"expiresAt": bson.M{"$lt": time.Now()}}
	res, err := dbService.collectionChallenges().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UseBackupCode consumes one unused code in a single update; returns false
// when no unused code matches the hash.
func (dbService *IdentUserDBService) UseBackupCode(userID string, codeHash string) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionChallenges().UpdateOne(
		ctx,
		bson.M{
			"userID": userID,
			"type":   types.ChallengeTypeBackup,
			"codes": bson.M{"$elemMatch": bson.M{
				"codeHash": codeHash,
				"usedAt":   bson.M{"$in": bson.A{nil, int64(0)}},
			}},
		},
		bson.M{"$set": bson.M{"codes.$.usedAt": time.Now().Unix()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
