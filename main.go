package main

import (
	"fmt"
	"strconv"

	"coastal-alert-service/config"
	"coastal-alert-service/database"
	"coastal-alert-service/handlers"
	"coastal-alert-service/middleware"
	"coastal-alert-service/notify"
	"coastal-alert-service/sms"
	"coastal-alert-service/utils"
	"coastal-alert-service/version"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const (
	EndPointHealth        = "/health"
	EndPointReports       = "/reports"
	EndPointReport        = "/reports/:id"
	EndPointReportStatus  = "/reports/:id/status"
	EndPointReportReply   = "/reports/:id/response"
	EndPointReportVerify  = "/reports/:id/verify"
	EndPointReportSMS     = "/reports/:id/sms"
	EndPointStatistics    = "/reports/statistics"
	EndPointNearby        = "/reports/nearby/:lat/:lng"
	EndPointNearbyGeoJSON = "/reports/nearby/:lat/:lng/geojson"
	EndPointSMSStatus     = "/sms/status"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Info("Starting the coastal alert service...")

	// Connect to database
	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize services
	reportsService := database.NewReportsService(db)

	twilioCfg := sms.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
	}
	sender := sms.NewSender(twilioCfg)
	dispatcher := sms.NewDispatcher(sender)

	var source sms.RecipientSource
	if cfg.RecipientSource == "subscribers" {
		source = sms.NewSubscriberSource(db)
	} else {
		source = sms.NewSimulatedSource()
	}

	notifier := notify.NewAuthorityNotifier(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.AuthorityEmail)

	// Initialize handlers
	reportsHandler := handlers.NewReportsHandler(reportsService, source, dispatcher,
		notifier, sms.Status(sender, twilioCfg), cfg.UploadDir)

	// Setup router
	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, version.Get("coastal-alert-service"))
	})

	// Register health endpoint (outside API group)
	router.GET(EndPointHealth, reportsHandler.HealthCheck)

	// Create API v3 router group
	apiV3 := router.Group("/api/v3")
	{
		apiV3.POST(EndPointReports, reportsHandler.CreateReport)
		apiV3.GET(EndPointReports, reportsHandler.GetReports)
		apiV3.GET(EndPointStatistics, reportsHandler.GetStatistics)
		apiV3.GET(EndPointNearby, reportsHandler.GetNearby)
		apiV3.GET(EndPointNearbyGeoJSON, reportsHandler.GetNearbyGeoJSON)
		apiV3.GET(EndPointReport, reportsHandler.GetReport)
		apiV3.POST(EndPointReportSMS, reportsHandler.SendSMS)
		apiV3.PUT(EndPointReportStatus, middleware.AuthMiddleware(cfg), reportsHandler.UpdateStatus)
		apiV3.POST(EndPointReportReply, middleware.AuthMiddleware(cfg), reportsHandler.AddResponse)
		apiV3.POST(EndPointReportVerify, middleware.AuthMiddleware(cfg), reportsHandler.VerifyReport)
		apiV3.GET(EndPointSMSStatus, reportsHandler.SMSStatus)
	}

	// Get server port from config
	serverPort, err := strconv.Atoi(cfg.Port)
	if err != nil {
		log.Fatalf("Invalid PORT configuration: %v", err)
	}

	// Start server
	log.Infof("Coastal alert service starting on port %d", serverPort)
	if err := router.Run(fmt.Sprintf(":%d", serverPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
