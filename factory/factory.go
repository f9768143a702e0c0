package factory

import (
	"context"
	"database/sql"
	"sync"

	"sft-ticketing-backend/algorand"
	"sft-ticketing-backend/config"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/operation"
	"sft-ticketing-backend/rabbitmq"
	"sft-ticketing-backend/settlement"
	"sft-ticketing-backend/store"
	"sft-ticketing-backend/vault"
	"sft-ticketing-backend/wallet"

	"github.com/go-redis/redis"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/viper"
)

const memoryDriver = "memory"

// Factory builds the shared clients once and hands them out. Optional
// backends fall back to in-process implementations when not configured.
type Factory interface {
	DB(ctx context.Context) *sql.DB
	Redis(ctx context.Context) *redis.Client
	Store(ctx context.Context) store.Store
	Payer(ctx context.Context) settlement.Payer
	Publisher(ctx context.Context) rabbitmq.Publisher
	Tracker(ctx context.Context) operation.Tracker
	Sessions(ctx context.Context) *wallet.Manager
	Close()
}

type factory struct {
	dbOnce, redisOnce, storeOnce, payerOnce, publisherOnce, trackerOnce, sessionsOnce sync.Once

	db        *sql.DB
	redis     *redis.Client
	store     store.Store
	payer     settlement.Payer
	publisher rabbitmq.Publisher
	amqp      *rabbitmq.AMQP
	tracker   operation.Tracker
	sessions  *wallet.Manager
}

func NewFactory() Factory {
	return &factory{}
}

// DB returns nil when the in-memory store is configured.
func (f *factory) DB(ctx context.Context) *sql.DB {
	f.dbOnce.Do(func() {
		driver := viper.GetString(config.DBDriver)
		if driver == memoryDriver {
			return
		}

		sqlDB, err := sql.Open(driver, viper.GetString(config.DBURL))
		if err != nil {
			logger.Fatalf(ctx, "Error creating connection pool: %+v", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			logger.Fatalf(ctx, "Could not establish connection to the DB: %+v", err)
		}
		if driver == store.DriverSQLite {
			sqlDB.SetMaxOpenConns(1)
		}
		f.db = sqlDB
	})
	return f.db
}

// Redis returns nil when no redis address is configured.
func (f *factory) Redis(ctx context.Context) *redis.Client {
	f.redisOnce.Do(func() {
		addr := viper.GetString(config.RedisAddress)
		if addr == "" {
			return
		}

		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString(config.RedisPassword),
			DB:       viper.GetInt(config.RedisDB),
		})
		if err := client.Ping().Err(); err != nil {
			logger.Fatalf(ctx, "Could not establish connection to redis: %+v", err)
		}
		f.redis = client
	})
	return f.redis
}

func (f *factory) Store(ctx context.Context) store.Store {
	f.storeOnce.Do(func() {
		db := f.DB(ctx)
		if db == nil {
			logger.Infof(ctx, "store: using the in-memory store")
			f.store = store.NewMemory()
			return
		}

		s, err := store.NewSQL(ctx, db, viper.GetString(config.DBDriver))
		if err != nil {
			logger.Fatalf(ctx, "store: %+v", err)
		}
		f.store = s
	})
	return f.store
}

func (f *factory) Payer(ctx context.Context) settlement.Payer {
	f.payerOnce.Do(func() {
		if !viper.GetBool(config.AlgorandEnabled) {
			balance, err := model.ParseAmount(viper.GetString(config.DevStartingBalance))
			if err != nil {
				logger.Fatalf(ctx, "payer: invalid %s: %+v", config.DevStartingBalance, err)
			}
			logger.Warnf(ctx, "payer: algorand disabled, settling payments in memory")
			f.payer = settlement.NewLedger(balance)
			return
		}

		keys, err := vault.New(
			viper.GetString(config.VaultToken),
			viper.GetString(config.VaultUnSealKey),
			viper.GetString(config.VaultAddress),
			viper.GetString(config.UserPath),
			viper.GetBool(config.AutoProvision),
		)
		if err != nil {
			logger.Fatalf(ctx, "payer: Error creating vault client: %+v", err)
		}

		payer, err := algorand.New(
			viper.GetString(config.ApiAddress),
			viper.GetString(config.ApiKey),
			keys,
			viper.GetUint64(config.MinFee),
			viper.GetUint64(config.ConfirmationRounds),
		)
		if err != nil {
			logger.Fatalf(ctx, "payer: %+v", err)
		}
		f.payer = payer
	})
	return f.payer
}

func (f *factory) Publisher(ctx context.Context) rabbitmq.Publisher {
	f.publisherOnce.Do(func() {
		url := viper.GetString(config.RabbitURL)
		if url == "" {
			f.publisher = rabbitmq.Nop{}
			return
		}

		p, err := rabbitmq.NewPublisher(url, viper.GetString(config.RabbitExchange))
		if err != nil {
			logger.Fatalf(ctx, "publisher: %+v", err)
		}
		f.amqp = p
		f.publisher = p
	})
	return f.publisher
}

func (f *factory) Tracker(ctx context.Context) operation.Tracker {
	f.trackerOnce.Do(func() {
		retention := viper.GetDuration(config.OperationRetention)
		if client := f.Redis(ctx); client != nil {
			f.tracker = operation.NewRedis(client, retention)
			return
		}
		f.tracker = operation.NewMemory(retention)
	})
	return f.tracker
}

func (f *factory) Sessions(ctx context.Context) *wallet.Manager {
	f.sessionsOnce.Do(func() {
		secret := viper.GetString(config.Secret)
		if secret == "" {
			logger.Fatalf(ctx, "sessions: %s must be set", config.Secret)
		}

		var revocations wallet.Revocations
		if client := f.Redis(ctx); client != nil {
			revocations = wallet.NewRedisRevocations(client)
		}
		f.sessions = wallet.NewManager(secret, viper.GetDuration(config.SessionTTL), revocations)
	})
	return f.sessions
}

func (f *factory) Close() {
	if f.amqp != nil {
		f.amqp.Close()
	}
	if f.store != nil {
		f.store.Close()
	} else if f.db != nil {
		f.db.Close()
	}
	if f.redis != nil {
		f.redis.Close()
	}
}
