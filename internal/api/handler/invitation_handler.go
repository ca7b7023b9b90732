package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careapi/care-backend/internal/core/service"
)

// Invitations are valid for one day from issuance.
const invitationLifetime = 24 * time.Hour

// InvitationHandler builds and validates signed one-time invitation
// URLs. Like the hashlink, the invitation is stateless: everything
// needed for validation travels in the URL itself.
type InvitationHandler struct {
	baseURL string
}

func NewInvitationHandler(baseURL string) *InvitationHandler {
	return &InvitationHandler{baseURL: baseURL}
}

type buildInvitationRequest struct {
	Email     string `query:"email" validate:"required,email"`
	PatientID string `query:"patient_id" validate:"required"`
}

type invitationURLResponse struct {
	RedeemURL string `json:"redeem_url"`
}

// BuildRedeemURL issues a signed invitation URL for a patient.
// Admin-gated at the router.
//
// @Summary      Build a signed invitation URL
// @Tags         invitations
// @Produce      json
// @Param        email       query  string  true  "Invitee email"
// @Param        patient_id  query  string  true  "Patient id"
// @Success      200  {object}  invitationURLResponse
// @Failure      400  {object}  map[string]string
// @Router       /invitations/url [get]
func (h *InvitationHandler) BuildRedeemURL(c echo.Context) error {
	var req buildInvitationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid parameters"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	redeemURL, err := service.GenerateSignedRedeemURL(h.baseURL, req.Email, req.PatientID, invitationLifetime, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invitationURLResponse{RedeemURL: redeemURL})
}

// Redeem validates a signed invitation URL's parameters. An invalid or
// expired invitation answers 401 with no detail.
//
// @Summary      Redeem a signed invitation URL
// @Tags         invitations
// @Produce      json
// @Param        email      query  string  true  "Invitee email"
// @Param        nbf        query  int     true  "Not-before, epoch seconds"
// @Param        exp        query  int     true  "Expiry, epoch seconds"
// @Param        sig        query  string  true  "Signature"
// @Param        patientId  query  string  true  "Patient id"
// @Success      200  {object}  map[string]bool
// @Failure      401  "Unauthorized"
// @Router       /invitations/redeem [get]
func (h *InvitationHandler) Redeem(c echo.Context) error {
	notBefore, err := strconv.ParseInt(c.QueryParam("nbf"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusUnauthorized)
	}
	expires, err := strconv.ParseInt(c.QueryParam("exp"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusUnauthorized)
	}

	valid := service.ValidateSignedRedeemURL(
		c.QueryParam("email"),
		notBefore,
		expires,
		c.QueryParam("sig"),
		c.QueryParam("patientId"),
		time.Now(),
	)
	if !valid {
		return c.NoContent(http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}
