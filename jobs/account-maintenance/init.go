package main

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/utils"

	identuserDB "github.com/ident-framework/ident-backend/pkg/db/ident-user"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_IDENT_USER_DB_USERNAME = "IDENT_USER_DB_USERNAME"
	ENV_IDENT_USER_DB_PASSWORD = "IDENT_USER_DB_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		IdentUserDB db.DBConfigYaml `json:"ident_user_db" yaml:"ident_user_db"`
	} `json:"db_configs" yaml:"db_configs"`

	// user management configs
	UserManagementConfig struct {
		DeleteUnverifiedUsersAfter time.Duration `json:"delete_unverified_users_after" yaml:"delete_unverified_users_after"`
		PurgeDeletedUsersAfter     time.Duration `json:"purge_deleted_users_after" yaml:"purge_deleted_users_after"`
	} `json:"user_management_config" yaml:"user_management_config"`

	RunTasks struct {
		CleanUpUnverifiedUsers   bool `json:"clean_up_unverified_users" yaml:"clean_up_unverified_users"`
		PurgeDeletedUsers        bool `json:"purge_deleted_users" yaml:"purge_deleted_users"`
		CleanUpExpiredChallenges bool `json:"clean_up_expired_challenges" yaml:"clean_up_expired_challenges"`
	} `json:"run_tasks" yaml:"run_tasks"`
}

var conf config

var identUserDBService *identuserDB.IdentUserDBService

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
		conf.Logging.IncludeBuildInfo,
	)

	// Override secrets from environment variables
	secretsOverride()

	// check config values:
	if conf.RunTasks.CleanUpUnverifiedUsers && conf.UserManagementConfig.DeleteUnverifiedUsersAfter == 0 {
		slog.Error("DeleteUnverifiedUsersAfter is not set")
		panic("DeleteUnverifiedUsersAfter is not set")
	}

	if conf.RunTasks.PurgeDeletedUsers && conf.UserManagementConfig.PurgeDeletedUsersAfter == 0 {
		slog.Error("PurgeDeletedUsersAfter is not set")
		panic("PurgeDeletedUsersAfter is not set")
	}

	// init db
	initDBs()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_IDENT_USER_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.IdentUserDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_IDENT_USER_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.IdentUserDB.Password = dbPassword
	}
}

func initDBs() {
	var err error
	identUserDBService, err = identuserDB.NewIdentUserDBService(db.DBConfigFromYamlObj(conf.DBConfigs.IdentUserDB))
	if err != nil {
		slog.Error("Error connecting to Ident User DB", slog.String("error", err.Error()))
		panic(err)
	}
}
