package main

import (
	"context"
	"errors"
	"fmt"
	l "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sft-ticketing-backend/config"
	c "sft-ticketing-backend/context"
	"sft-ticketing-backend/factory"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/router"

	"github.com/codegangsta/negroni"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	version string
)

const defaultCorrelationID = "00000000.00000000"

var ctx context.Context

func init() {
	ctx = c.SetContextWithValue(context.Background(), c.ContextKeyCorrelationID, defaultCorrelationID)
}

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	pflag.String(config.ConfigPath, viper.GetString(config.ConfigPath), "Path to config file")
	pflag.String(config.Port, viper.GetString(config.Port), "Port to listen on")
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		l.Fatalf("error binding flags: %v", err)
	}

	viper.SetConfigFile(viper.GetString(config.ConfigPath))
	if err := viper.ReadInConfig(); err != nil {
		l.Fatalf("error reading config: %v", err)
	}
	logger.Configure(viper.GetString(config.LogLevel), viper.GetBool(config.LogJSON))

	f := factory.NewFactory()
	defer f.Close()
	muxRouter := router.Router(ctx, f)

	n := negroni.New()
	n.Use(cors.New(cors.Options{
		AllowedOrigins:   viper.GetStringSlice(config.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Correlation-Id"},
		ExposedHeaders:   []string{"Correlation-Id", "Operation-Id"},
		AllowCredentials: true,
	}))
	n.UseHandler(muxRouter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", viper.GetString(config.Port)),
		Handler:           n,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof(ctx, "listening on %s (version %s)", srv.Addr, version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf(ctx, "server stopped: %+v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "shutdown: %+v", err)
	}
	logger.Infof(ctx, "server stopped")
}
