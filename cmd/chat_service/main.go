package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"job_board_chat_service/internal/chat/app"
	"job_board_chat_service/internal/chat/repository"
	"job_board_chat_service/internal/chat/router"
	"job_board_chat_service/pkg/config"
	"job_board_chat_service/pkg/database"
	"job_board_chat_service/pkg/logger"
	testtool "job_board_chat_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	// 2. 建立 Mongo 連線 (存conversation/message)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 3. 建立 Redis 連線 (Pub/Sub + 未讀cache)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 4. 建立 PostgreSQL 連線 (job-board的user profile)
	pgDSN := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database)
	pgDB, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgDSN,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.Error(err))
	}

	// 5. 建立 MinIO 連線 (附件)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.AccessKey,
		Password:      cfg.MinIO.SecretKey,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicURL:     cfg.MinIO.PublicURL,
		RetryCount:    3,
		RetryInterval: 2,
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	// 6. 初始化 Repository
	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	userRepo := repository.NewGormUserRepository(pgDB)
	bus := repository.NewRedisChannelBus(redisClient)
	defer bus.Close()
	unreadCache := repository.NewRedisUnreadCache(redisClient)
	attachments := repository.NewMinIOAttachmentStore(minioClient)

	// pair_key唯一索引一定要在服務起來前就位
	if err := convRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("ensure mongo indexes failed", zap.Error(err))
	}
	if err := userRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("migrate users table failed", zap.Error(err))
	}

	// 7. 初始化 UseCases
	unreadUC := app.NewUnreadUseCase(convRepo, msgRepo, unreadCache)
	convUC := app.NewConversationUseCase(convRepo, userRepo, bus)
	msgUC := app.NewMessageUseCase(convRepo, msgRepo, userRepo, bus, unreadUC)

	// 8. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r,
		app.NewChatHTTPHandler(convUC, msgUC, unreadUC, attachments),
		app.NewChatWebsocketHandler(convUC, msgUC, unreadUC, bus),
	)

	testtool.StartPprof()

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
