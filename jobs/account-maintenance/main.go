package main

import (
	"log/slog"
	"time"
)

func main() {
	slog.Info("Starting account maintenance job")
	start := time.Now()

	if conf.RunTasks.CleanUpUnverifiedUsers {
		cleanUpUnverifiedUsers()
	}

	if conf.RunTasks.PurgeDeletedUsers {
		purgeDeletedUsers()
	}

	if conf.RunTasks.CleanUpExpiredChallenges {
		cleanUpExpiredChallenges()
	}

	slog.Info("Account maintenance job completed", slog.Duration("duration", time.Since(start)))
}

func cleanUpUnverifiedUsers() {
	slog.Debug("Start cleaning up unverified users")

	createdBefore := time.Now().Add(-conf.UserManagementConfig.DeleteUnverifiedUsersAfter).Unix()
	count, err := identUserDBService.DeleteUnverifiedUsers(createdBefore)
	if err != nil {
		slog.Error("Error cleaning up unverified users", slog.String("error", err.Error()))
		return
	}

	slog.Info("Clean up unverified users finished", slog.Int("count", int(count)))
}

func purgeDeletedUsers() {
	slog.Debug("Start purging soft-deleted users")

	deletedBefore := time.Now().Add(-conf.UserManagementConfig.PurgeDeletedUsersAfter).Unix()
	count, err := identUserDBService.PurgeDeletedUsers(deletedBefore)
	if err != nil {
		slog.Error("Error purging soft-deleted users", slog.String("error", err.Error()))
		return
	}

	slog.Info("Purge soft-deleted users finished", slog.Int("count", int(count)))
}

func cleanUpExpiredChallenges() {
	slog.Debug("Start cleaning up expired challenges")

	count, err := identUserDBService.DeleteExpiredChallenges()
	if err != nil {
		slog.Error("Error cleaning up expired challenges", slog.String("error", err.Error()))
		return
	}

	slog.Info("Clean up expired challenges finished", slog.Int("count", int(count)))
}
