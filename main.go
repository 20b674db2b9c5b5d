package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotwise/config"
	"slotwise/cron"
	"slotwise/database"
	bookingRepo "slotwise/database/repository/booking"
	calendarRepo "slotwise/database/repository/calendar"
	resourceRepo "slotwise/database/repository/resource"
	"slotwise/services/booking"
	"slotwise/services/calendar"
	"slotwise/services/tasks"
	"slotwise/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// repositories.
	calRepo := calendarRepo.NewMongoCalendarRepo()
	resRepo := resourceRepo.NewMongoResourceRepo()
	bkRepo := bookingRepo.NewMongoBookingRepo()

	// services.
	calendarService := &calendar.Service{
		Repo:     calRepo,
		Cache:    utils.GetCacheClient(),
		CacheTTL: time.Duration(config.AppConfig.WorkIntervalCacheTTL) * time.Second,
	}
	engine := &booking.Engine{
		Calendars:     calendarService,
		Directory:     resRepo,
		Repo:          bkRepo,
		LookaheadDays: config.AppConfig.SlotLookaheadDays,
	}
	taskClient := tasks.NewClient()
	defer taskClient.Close()
	bookingService := &booking.Service{
		Engine:    engine,
		Repo:      bkRepo,
		Directory: resRepo,
		Tasks:     taskClient,
	}

	// Reference-data writes re-validate dependent bookings in-transaction.
	calRepo.Recheck = bookingService.RecheckCalendar
	resRepo.Recheck = bookingService.RecheckCombination
	resRepo.RecheckResource = bookingService.RecheckResource

	cron.InitExpiryWorker(bookingService)

	logger.Info("slotwise scheduling engine is up")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}
