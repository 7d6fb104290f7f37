package api

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rifahub/raffle-api/docs"
	v1 "github.com/rifahub/raffle-api/internal/api/handler/v1"
	"github.com/rifahub/raffle-api/internal/api/middleware"
	"github.com/rifahub/raffle-api/internal/config"
	"github.com/rifahub/raffle-api/internal/domain"
	"github.com/rifahub/raffle-api/internal/notifier"
	"github.com/rifahub/raffle-api/internal/repository"
	"github.com/rifahub/raffle-api/internal/repository/dao"
	"github.com/rifahub/raffle-api/internal/service"
)

const (
	defaultReservationTTL = 48 * time.Hour
	selectionIdleTTL      = 30 * time.Minute
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	raffleSvc := s.initRaffleService(db)
	ticketHandler := v1.NewTicketHandler(raffleSvc)
	adminHandler := v1.NewAdminHandler(conf.API, service.NewAuthService(conf.API.AdminPasswordHash), raffleSvc)
	s.MountHandlers(ticketHandler, adminHandler)

	return s
}

func (s *Server) initRaffleService(db *gorm.DB) *service.RaffleService {
	snapshotDAO := dao.NewSnapshotDAO(db)
	repo := repository.NewTicketRepository(snapshotDAO)
	selections := service.NewSelectionTracker(selectionIdleTTL)

	ttl := defaultReservationTTL
	if s.Config.Raffle.ReservationTTLHours > 0 {
		ttl = time.Duration(s.Config.Raffle.ReservationTTLHours) * time.Hour
	}

	svc := service.NewRaffleService(repo, selections, s.buildNotifier(), raffleInfo(s.Config.Raffle), ttl)

	s.Config.WatchRaffle(func(updated config.RaffleConfig) {
		svc.SetRaffle(raffleInfo(&updated))
	})

	return svc
}

func (s *Server) buildNotifier() notifier.Notifier {
	conf := s.Config.Notifier
	switch conf.Sink {
	case "whatsapp":
		return notifier.NewWhatsAppNotifier(conf.WhatsAppNumber)
	case "telegram":
		tn, err := notifier.NewTelegramNotifier(conf.TelegramToken, conf.TelegramChatID)
		if err != nil {
			zap.L().Warn("telegram notifier unavailable, falling back to log sink", zap.Error(err))
			return notifier.NewLogNotifier()
		}

		return tn
	default:
		return notifier.NewLogNotifier()
	}
}

func raffleInfo(conf *config.RaffleConfig) domain.RaffleInfo {
	return domain.RaffleInfo{
		Title:  conf.Title,
		Prize:  conf.Prize,
		Price:  conf.Price,
		Rules:  conf.Rules,
		PixKey: conf.PixKey,
	}
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(ticketHandler *v1.TicketHandler, adminHandler *v1.AdminHandler) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.GET("/raffle", ticketHandler.HandleGetRaffle)
		public.GET("/tickets", ticketHandler.HandleListTickets)
		public.POST("/selection/toggle", ticketHandler.HandleToggleSelection)
		public.POST("/selection/clear", ticketHandler.HandleClearSelection)
		public.POST("/checkout", ticketHandler.HandleCheckout)
		public.POST("/admin/login", adminHandler.HandleLogin)
	}

	admin := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		admin.POST("/admin/logout", adminHandler.HandleLogout)
		admin.POST("/admin/confirm-payment", adminHandler.HandleConfirmPayment)
		admin.POST("/admin/release", adminHandler.HandleRelease)
		admin.POST("/admin/unavailable", adminHandler.HandleMarkUnavailable)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Raffle Ticket API"
	docs.SwaggerInfo.Description = "Numbered raffle tickets: selection, reservation and admin payment confirmation."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
