package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/models"
	"hershield/internal/repositories/interfaces"
	"hershield/internal/repositories/mongodb"
	"hershield/internal/utils"
)

type ContactHandler struct {
	contactRepo interfaces.ContactRepository
}

func NewContactHandler(contactRepo interfaces.ContactRepository) *ContactHandler {
	return &ContactHandler{
		contactRepo: contactRepo,
	}
}

type createContactRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// CreateContact registers a trusted contact
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var request createContactRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	phone := utils.NormalizePhone(request.PhoneNumber)
	if !utils.IsValidPhone(phone) {
		utils.BadRequestResponse(c, "Invalid phone number")
		return
	}

	if existing, err := h.contactRepo.GetByPhone(c.Request.Context(), phone); err == nil && existing != nil {
		utils.ConflictResponse(c, "Contact with this phone number already exists")
		return
	}

	now := time.Now()
	contact := &models.TrustedContact{
		DisplayName: request.DisplayName,
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.contactRepo.Create(c.Request.Context(), contact); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_CREATE_FAILED", "Failed to create contact: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Contact created", contact)
}

// ListContacts returns all trusted contacts
func (h *ContactHandler) ListContacts(c *gin.Context) {
	contacts, err := h.contactRepo.List(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_LIST_FAILED", "Failed to list contacts: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Trusted contacts", contacts)
}

// GetContact returns one trusted contact
func (h *ContactHandler) GetContact(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid contact ID")
		return
	}

	contact, err := h.contactRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			utils.NotFoundResponse(c, "Contact")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_GET_FAILED", "Failed to get contact: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Contact", contact)
}

// DeleteContact removes a trusted contact
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid contact ID")
		return
	}

	if err := h.contactRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			utils.NotFoundResponse(c, "Contact")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_DELETE_FAILED", "Failed to delete contact: "+err.Error())
		return
	}

	utils.NoContentResponse(c)
}
