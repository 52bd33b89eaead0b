package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/helpers"
	"github.com/gatherly/gatherly/internal/hub"
	"github.com/gatherly/gatherly/internal/middleware"
	"github.com/gatherly/gatherly/internal/models"
	"github.com/gatherly/gatherly/internal/query"
)

type EventRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Date        string  `json:"date" binding:"required"`
	Location    string  `json:"location" binding:"required"`
	Category    string  `json:"category" binding:"required,oneof=conference workshop meetup social competition"`
	// Either an external URI or one of our own stored upload paths.
	// Absent on update means "keep the current image".
	Image *string `json:"image"`
}

func CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	date, err := helpers.ParseDate(req.Date)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date format.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var organizer models.User
	if err := gormDB.Where("id = ?", userID).First(&organizer).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	event := models.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Category:    req.Category,
		OrganizerID: organizer.ID,
		Attendees:   []models.User{},
	}
	if req.Image != nil {
		event.Image = *req.Image
	}

	if err := gormDB.Create(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	if h := middleware.GetHub(c); h != nil {
		h.Broadcast(hub.NewEvent, event)
	}

	c.JSON(http.StatusCreated, gin.H{
		"event": event,
		"ok":    true,
	})
}

func UpdateEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event id.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	date, err := helpers.ParseDate(req.Date)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date format.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	// Only the organizer may update. The organizer reference itself is
	// immutable after creation.
	var event models.Event
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, userID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to update.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Date = date
	event.Location = req.Location
	event.Category = req.Category
	if req.Image != nil {
		event.Image = *req.Image
	}

	if err := gormDB.Save(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update event.")
		return
	}

	if h := middleware.GetHub(c); h != nil {
		h.Broadcast(hub.NewEvent, event)
	}

	c.JSON(http.StatusCreated, gin.H{
		"event": event,
		"ok":    true,
	})
}

func DeleteEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event id.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, userID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to delete.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	// Select("Attendees") also clears the join rows.
	if err := gormDB.Select("Attendees").Delete(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete event.")
		return
	}

	if h := middleware.GetHub(c); h != nil {
		h.Broadcast(hub.NewEvent, gin.H{"id": event.ID, "deleted": true})
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event deleted successfully.",
		"ok":      true,
	})
}

func ListEvents(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	params := query.Params{Status: c.Query("status")}

	if s := c.Query("startDate"); s != "" {
		t, err := helpers.ParseDate(s)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid startDate.")
			return
		}
		params.StartDate = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := helpers.ParseDate(s)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid endDate.")
			return
		}
		params.EndDate = &t
	}

	events := []models.Event{}
	if err := params.Apply(gormDB, time.Now()).Find(&events).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"ok":     true,
	})
}

func GetEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event id.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	err = gormDB.
		Preload("Organizer", query.OrganizerFields).
		Preload("Attendees").
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event": event,
		"ok":    true,
	})
}

func AttendEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event id.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ?", eventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	// Attend is idempotent: joining an event you already attend is a
	// no-op and produces no broadcast.
	var count int64
	err = gormDB.Table("event_attendees").
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error checking attendance.")
		return
	}

	joined := false
	if count == 0 {
		var user models.User
		if err := gormDB.Where("id = ?", userID).First(&user).Error; err != nil {
			helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
			return
		}
		if err := gormDB.Model(&event).Association("Attendees").Append(&user); err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to join event.")
			return
		}
		joined = true
	}

	err = gormDB.
		Preload("Organizer", query.OrganizerFields).
		Preload("Attendees").
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	if joined {
		if h := middleware.GetHub(c); h != nil {
			h.Broadcast(hub.EventUpdated, event)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"event": event,
		"ok":    true,
	})
}

func ListUserEvents(c *gin.Context) {
	organizerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user id.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Where("id = ?", organizerID).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	events := []models.Event{}
	err = gormDB.
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC, id DESC").
		Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"ok":     true,
	})
}

func UploadEventImage(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event id.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, userID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to update.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing image file.")
		return
	}

	imagePath, err := helpers.UploadFile(c, imageFile, "event_images")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	// Only locally uploaded images are removed; external URIs stay.
	if strings.HasPrefix(event.Image, "uploads") {
		if err := helpers.DeleteFile(event.Image); err != nil {
			log.Printf("Error deleting old image: %v", err)
		}
	}
	event.Image = imagePath

	if err := gormDB.Save(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update event.")
		return
	}

	if h := middleware.GetHub(c); h != nil {
		h.Broadcast(hub.NewEvent, event)
	}

	c.JSON(http.StatusOK, gin.H{
		"event": event,
		"ok":    true,
	})
}
