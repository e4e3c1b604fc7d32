package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/gateway"
	"github.com/otpgate/otpgate/internal/handlers"
	"github.com/otpgate/otpgate/internal/middleware"
	"github.com/otpgate/otpgate/internal/repository"
	"github.com/otpgate/otpgate/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	userDirectory := repository.NewDynamoUserDirectory(dynamoClient, cfg.DynamoDB.TableName, logger)

	otpStore, err := initOTPStore(cfg, dynamoClient, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize OTP store")
	}

	smsGateway := gateway.NewSMSGateway(&cfg.SMS, logger)
	mailGateway := gateway.NewMailGateway(&cfg.SMTP, logger)

	otpService := service.NewOTPService(otpStore, userDirectory, smsGateway, mailGateway, &cfg.OTP, logger)

	var tokenService *service.TokenService
	if cfg.Token.SecretKey != "" {
		tokenService, err = service.NewTokenService(&cfg.Token, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize token service")
		}
	} else {
		logger.Info("TOKEN_SECRET_KEY not set, verification tokens disabled")
	}

	otpHandlers := handlers.NewOTPHandlers(otpService, tokenService, logger)
	router := setupRouter(otpHandlers, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func initOTPStore(cfg *config.Config, dynamoClient *dynamodb.Client, logger *logrus.Logger) (service.OTPStore, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.Info("Redis OTP store initialized")
		return repository.NewRedisOTPStore(client, logger), nil

	case config.StoreBackendDynamoDB:
		logger.Info("DynamoDB OTP store initialized")
		return repository.NewDynamoOTPStore(dynamoClient, cfg.DynamoDB.TableName, logger), nil

	default:
		return nil, fmt.Errorf("unknown OTP store backend %q", cfg.Store.Backend)
	}
}

func setupRouter(otpHandlers *handlers.OTPHandlers, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	otp := api.PathPrefix("/otp").Subrouter()
	otp.HandleFunc("/send-sms-otp", otpHandlers.SendSMSOTP).Methods("POST", "OPTIONS")
	otp.HandleFunc("/send-mail-otp", otpHandlers.SendMailOTP).Methods("POST", "OPTIONS")
	otp.HandleFunc("/verify-otp", otpHandlers.VerifyOTP).Methods("POST", "OPTIONS")

	return router
}
