package wire

import (
	"DevTinder/internal/api"
	"DevTinder/internal/api/config"
	"DevTinder/internal/api/handler"
	"DevTinder/internal/job"
	"DevTinder/internal/pkg/cron"
	"DevTinder/internal/pkg/kafka"
	mongopkg "DevTinder/internal/pkg/mongo"
	"DevTinder/internal/repository"
	"DevTinder/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router        *gin.Engine
	DB            *gorm.DB
	KafkaManager  *kafka.ConsumerManager
	CronMgr       *cron.Manager
	ChatService   service.ChatService
	SwipeProducer *kafka.SwipeProducer
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	matchRepo := repository.NewMatchRepo(db)
	convRepo := repository.NewConversationRepo(db)
	metricRepo := repository.NewSwipeMetricRepo(db)
	messageRepo := mongopkg.NewMessageRepo(mongoDB)

	swipeProducer, err := kafka.NewSwipeProducer(cfg)
	if err != nil {
		return nil, err
	}

	userService := service.NewUserService(userRepo)
	matchService := service.NewMatchService(matchRepo, userRepo, convRepo, swipeProducer)
	chatService := service.NewChatService(convRepo, matchRepo, userRepo, messageRepo)
	metricService := service.NewSwipeMetricService(metricRepo)

	handlers := &api.HandlersGroup{
		UserHandler:    handler.NewUserHandler(userService),
		MatchHandler:   handler.NewMatchHandler(matchService),
		ChatHandler:    handler.NewChatHandler(chatService),
		WSHandler:      handler.NewWsHandler(chatService),
		MediaHandler:   handler.NewMediaHandler(),
		MetricsHandler: handler.NewMetricsHandler(metricService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, metricRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(
		job.NewMatchCleanupJob(matchRepo),
		job.NewSwipeMetricRollupJob(metricRepo),
	)

	return &ApplicationContainer{
		Router:        router,
		DB:            db,
		KafkaManager:  kafkaMgr,
		CronMgr:       cronMgr,
		ChatService:   chatService,
		SwipeProducer: swipeProducer,
	}, nil
}
