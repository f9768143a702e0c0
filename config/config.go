package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	ConfigPath = "config"

	DBDriver = "database.driver"
	DBURL    = "database.dsn"

	AlgorandEnabled    = "algorand.enabled"
	ApiAddress         = "algorand.api_address"
	ApiKey             = "algorand.api_key"
	MinFee             = "algorand.min_fee"
	ConfirmationRounds = "algorand.confirmation_rounds"

	VaultAddress   = "vault.address"
	VaultToken     = "vault.token"
	VaultUnSealKey = "vault.unseal_key"
	UserPath       = "vault.user_path"
	AutoProvision  = "vault.auto_provision"

	Port               = "server.port"
	Secret             = "server.secret"
	SessionTTL         = "server.session_ttl"
	OperationTimeout   = "server.operation_timeout"
	OperationRetention = "server.operation_retention"
	CORSOrigins        = "server.cors_origins"

	RedisAddress  = "redis.address"
	RedisPassword = "redis.password"
	RedisDB       = "redis.db"

	RabbitURL      = "rabbitmq.url"
	RabbitExchange = "rabbitmq.exchange"

	EntryCodeRequired = "gate.entry_code_required"
	EntryCodePeriod   = "gate.entry_code_period"

	DevStartingBalance = "settlement.dev_starting_balance"

	LogLevel = "log.level"
	LogJSON  = "log.json"
)

func init() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(ConfigPath, "./config.yaml")
	viper.SetDefault(DBDriver, "memory")
	viper.SetDefault(Port, "9000")
	viper.SetDefault(SessionTTL, "24h")
	viper.SetDefault(OperationTimeout, "30s")
	viper.SetDefault(OperationRetention, "1h")
	viper.SetDefault(CORSOrigins, []string{"*"})
	viper.SetDefault(MinFee, 1000)
	viper.SetDefault(ConfirmationRounds, 10)
	viper.SetDefault(UserPath, "wallets")
	viper.SetDefault(RabbitExchange, "tickets")
	viper.SetDefault(EntryCodePeriod, 30)
	viper.SetDefault(DevStartingBalance, "100")
	viper.SetDefault(LogLevel, "info")
}
