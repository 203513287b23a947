package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
	"github.com/ident-framework/ident-backend/pkg/db"
	emailsending "github.com/ident-framework/ident-backend/pkg/messaging/email-sending"
	"github.com/ident-framework/ident-backend/pkg/messaging/sms"
	messagingTypes "github.com/ident-framework/ident-backend/pkg/messaging/types"
	smtpclient "github.com/ident-framework/ident-backend/pkg/smtp-client"
	"github.com/ident-framework/ident-backend/pkg/tokens"
	usermanagement "github.com/ident-framework/ident-backend/pkg/user-management"
	"github.com/ident-framework/ident-backend/pkg/user-management/pwhash"
	"github.com/ident-framework/ident-backend/pkg/utils"

	identuserDB "github.com/ident-framework/ident-backend/pkg/db/ident-user"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_IDENT_USER_DB_USERNAME = "IDENT_USER_DB_USERNAME"
	ENV_IDENT_USER_DB_PASSWORD = "IDENT_USER_DB_PASSWORD"

	ENV_SMTP_SERVER_USERNAME = "SMTP_SERVER_USERNAME"
	ENV_SMTP_SERVER_PASSWORD = "SMTP_SERVER_PASSWORD"
	ENV_SMS_GATEWAY_API_KEY  = "SMS_GATEWAY_API_KEY"

	ENV_ACCESS_TOKEN_SIGN_KEY       = "ACCESS_TOKEN_SIGN_KEY"
	ENV_REFRESH_TOKEN_SIGN_KEY      = "REFRESH_TOKEN_SIGN_KEY"
	ENV_VERIFICATION_TOKEN_SIGN_KEY = "VERIFICATION_TOKEN_SIGN_KEY"
	ENV_RESET_TOKEN_SIGN_KEY        = "RESET_TOKEN_SIGN_KEY"
	ENV_ACTIVATION_TOKEN_SIGN_KEY   = "ACTIVATION_TOKEN_SIGN_KEY"

	ENV_TOTP_ENCRYPTION_KEY = "TOTP_ENCRYPTION_KEY"
)

type TokenKindConfig struct {
	SignKey   string        `json:"sign_key" yaml:"sign_key"`
	ExpiresIn time.Duration `json:"expires_in" yaml:"expires_in"`
}

type AuthApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	// user management configs
	UserManagementConfig struct {
		PWHashing struct {
			Argon2Memory      uint32 `json:"argon2_memory" yaml:"argon2_memory"`
			Argon2Iterations  uint32 `json:"argon2_iterations" yaml:"argon2_iterations"`
			Argon2Parallelism uint8  `json:"argon2_parallelism" yaml:"argon2_parallelism"`
		} `json:"pw_hashing" yaml:"pw_hashing"`

		TokenConfigs struct {
			Origin       string          `json:"origin" yaml:"origin"`
			Access       TokenKindConfig `json:"access" yaml:"access"`
			Refresh      TokenKindConfig `json:"refresh" yaml:"refresh"`
			Verification TokenKindConfig `json:"verification" yaml:"verification"`
			Reset        TokenKindConfig `json:"reset" yaml:"reset"`
			Activation   TokenKindConfig `json:"activation" yaml:"activation"`
		} `json:"token_configs" yaml:"token_configs"`

		TOTPConfigs struct {
			Issuer        string `json:"issuer" yaml:"issuer"`
			EncryptionKey string `json:"encryption_key" yaml:"encryption_key"`
		} `json:"totp_configs" yaml:"totp_configs"`

		ChallengeTTL time.Duration `json:"challenge_ttl" yaml:"challenge_ttl"`
		SessionTTL   time.Duration `json:"session_ttl" yaml:"session_ttl"`

		SignupRateWindow    time.Duration `json:"signup_rate_window" yaml:"signup_rate_window"`
		MaxSignupsPerWindow int64         `json:"max_signups_per_window" yaml:"max_signups_per_window"`
	} `json:"user_management_config" yaml:"user_management_config"`

	// DB configs
	DBConfigs struct {
		IdentUserDB db.DBConfigYaml `json:"ident_user_db" yaml:"ident_user_db"`
	} `json:"db_configs" yaml:"db_configs"`

	MessagingConfigs struct {
		GlobalEmailTemplateConstants map[string]string `json:"global_email_template_constants" yaml:"global_email_template_constants"`

		SmtpServerConfigPath string                           `json:"smtp_server_config_path" yaml:"smtp_server_config_path"`
		TemplateCatalogPath  string                           `json:"template_catalog_path" yaml:"template_catalog_path"`
		SMSConfig            *messagingTypes.SMSGatewayConfig `json:"sms_config" yaml:"sms_config"`
	} `json:"messaging_configs" yaml:"messaging_configs"`
}

var (
	identUserDBService *identuserDB.IdentUserDBService
	userService        *usermanagement.Service
)

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

	// Init DBs
	initDBs()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// init argon2
	pwhash.InitArgonParams(
		conf.UserManagementConfig.PWHashing.Argon2Memory,
		conf.UserManagementConfig.PWHashing.Argon2Iterations,
		conf.UserManagementConfig.PWHashing.Argon2Parallelism,
	)

	// init message sending
	initMessageSending()

	// init user management
	initUserManagement()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_IDENT_USER_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.IdentUserDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_IDENT_USER_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.IdentUserDB.Password = dbPassword
	}

	if smsGatewayAPIKey := os.Getenv(ENV_SMS_GATEWAY_API_KEY); smsGatewayAPIKey != "" {
		if conf.MessagingConfigs.SMSConfig == nil {
			conf.MessagingConfigs.SMSConfig = &messagingTypes.SMSGatewayConfig{}
		}
		conf.MessagingConfigs.SMSConfig.APIKey = smsGatewayAPIKey
	}

	if signKey := os.Getenv(ENV_ACCESS_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.Access.SignKey = signKey
	}

	if signKey := os.Getenv(ENV_REFRESH_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.Refresh.SignKey = signKey
	}

	if signKey := os.Getenv(ENV_VERIFICATION_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.Verification.SignKey = signKey
	}

	if signKey := os.Getenv(ENV_RESET_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.Reset.SignKey = signKey
	}

	if signKey := os.Getenv(ENV_ACTIVATION_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.Activation.SignKey = signKey
	}

	if encryptionKey := os.Getenv(ENV_TOTP_ENCRYPTION_KEY); encryptionKey != "" {
		conf.UserManagementConfig.TOTPConfigs.EncryptionKey = encryptionKey
	}
}

func initDBs() {
	var err error
	identUserDBService, err = identuserDB.NewIdentUserDBService(db.DBConfigFromYamlObj(conf.DBConfigs.IdentUserDB))
	if err != nil {
		panic(err)
	}
	identUserDBService.CreateDefaultIndexes()
}

func initMessageSending() {
	var smtpServerList smtpclient.SmtpServerList
	if err := smtpServerList.ReadFromFile(conf.MessagingConfigs.SmtpServerConfigPath); err != nil {
		panic(err)
	}
	if username := os.Getenv(ENV_SMTP_SERVER_USERNAME); username != "" {
		for i := range smtpServerList.Servers {
			smtpServerList.Servers[i].SetUsername(username)
		}
	}
	if password := os.Getenv(ENV_SMTP_SERVER_PASSWORD); password != "" {
		for i := range smtpServerList.Servers {
			smtpServerList.Servers[i].SetPassword(password)
		}
	}

	smtpClients, err := smtpclient.NewSmtpClients(smtpServerList)
	if err != nil {
		panic(err)
	}

	var templateCatalog messagingTypes.TemplateCatalog
	if err := templateCatalog.ReadFromFile(conf.MessagingConfigs.TemplateCatalogPath); err != nil {
		panic(err)
	}

	if err := emailsending.Init(
		smtpClients,
		templateCatalog,
		conf.MessagingConfigs.GlobalEmailTemplateConstants,
	); err != nil {
		panic(err)
	}

	if err := sms.Init(
		conf.MessagingConfigs.SMSConfig,
		templateCatalog,
	); err != nil {
		panic(err)
	}
}

func initUserManagement() {
	tc := conf.UserManagementConfig.TokenConfigs
	tokenService := tokens.NewService(tc.Origin, map[tokens.Kind]tokens.KindConfig{
		tokens.KindAccess:       {SignKey: tc.Access.SignKey, ExpiresIn: tc.Access.ExpiresIn},
		tokens.KindRefresh:      {SignKey: tc.Refresh.SignKey, ExpiresIn: tc.Refresh.ExpiresIn},
		tokens.KindVerification: {SignKey: tc.Verification.SignKey, ExpiresIn: tc.Verification.ExpiresIn},
		tokens.KindReset:        {SignKey: tc.Reset.SignKey, ExpiresIn: tc.Reset.ExpiresIn},
		tokens.KindActivation:   {SignKey: tc.Activation.SignKey, ExpiresIn: tc.Activation.ExpiresIn},
	})

	userService = usermanagement.NewService(
		identUserDBService,
		tokenService,
		emailsending.SendEmailAsync,
		sms.SendSMS,
		usermanagement.Config{
			TOTPIssuer:          conf.UserManagementConfig.TOTPConfigs.Issuer,
			TOTPEncryptionKey:   conf.UserManagementConfig.TOTPConfigs.EncryptionKey,
			ChallengeTTL:        conf.UserManagementConfig.ChallengeTTL,
			SessionTTL:          conf.UserManagementConfig.SessionTTL,
			SignupRateWindow:    conf.UserManagementConfig.SignupRateWindow,
			MaxSignupsPerWindow: conf.UserManagementConfig.MaxSignupsPerWindow,
		},
	)
}
