package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

type dispatchService interface {
	Process(ctx context.Context, ev *domain.TransitionEvent) (*domain.DispatchOutcome, error)
}

type recipientService interface {
	ResolveGuardians(ctx context.Context, familyID string) (*domain.Family, []string, error)
}

type tokenService interface {
	CollectTokens(ctx context.Context, userIDs []string) ([]domain.UserToken, error)
}

// DispatchHandler exposes the operational HTTP surface: a manual trigger
// that feeds a synthesized transition event through the pipeline, and a
// read-only view of who a family's events would be delivered to.
type DispatchHandler struct {
	dispatchSvc  dispatchService
	recipientSvc recipientService
	tokenSvc     tokenService
}

func NewDispatchHandler(dispatchSvc dispatchService, recipientSvc recipientService, tokenSvc tokenService) *DispatchHandler {
	return &DispatchHandler{
		dispatchSvc:  dispatchSvc,
		recipientSvc: recipientSvc,
		tokenSvc:     tokenSvc,
	}
}

func (h *DispatchHandler) Register(r *gin.RouterGroup) {
	r.POST("/dispatch/test", h.TestDispatch)
	r.GET("/families/:family_id/recipients", h.GetRecipients)
}

type testDispatchRequest struct {
	SubjectID  string  `json:"subject_id"`
	FamilyID   string  `json:"family_id"`
	RegionID   string  `json:"region_id"`
	RegionName string  `json:"region_name"`
	Transition string  `json:"transition"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address"`
}

type testDispatchResponse struct {
	EventID string                  `json:"event_id"`
	Outcome *domain.DispatchOutcome `json:"outcome"`
}

func (h *DispatchHandler) TestDispatch(c *gin.Context) {
	var req testDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SubjectID == "" || req.FamilyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_id and family_id are required"})
		return
	}
	if req.Transition != string(domain.TransitionEnter) && req.Transition != string(domain.TransitionExit) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transition must be enter or exit"})
		return
	}

	ev := &domain.TransitionEvent{
		EventID:    uuid.NewString(),
		SubjectID:  req.SubjectID,
		FamilyID:   req.FamilyID,
		RegionID:   req.RegionID,
		RegionName: req.RegionName,
		Transition: domain.TransitionType(req.Transition),
		OccurredAt: time.Now(),
	}
	if req.Address != "" || req.Latitude != 0 || req.Longitude != 0 {
		ev.Location = &domain.GeoLocation{
			Lat:     req.Latitude,
			Lon:     req.Longitude,
			Address: req.Address,
		}
	}

	outcome, err := h.dispatchSvc.Process(c.Request.Context(), ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch failed"})
		return
	}

	c.JSON(http.StatusOK, testDispatchResponse{EventID: ev.EventID, Outcome: outcome})
}

type recipientEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Tokens      int    `json:"tokens"`
}

type recipientsResponse struct {
	FamilyID  string           `json:"family_id"`
	Guardians []recipientEntry `json:"guardians"`
}

func (h *DispatchHandler) GetRecipients(c *gin.Context) {
	familyID := c.Param("family_id")

	family, guardianIDs, err := h.recipientSvc.ResolveGuardians(c.Request.Context(), familyID)
	if err != nil {
		if errors.Is(err, domain.ErrFamilyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "family not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recipients"})
		return
	}

	pairs, err := h.tokenSvc.CollectTokens(c.Request.Context(), guardianIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tokens"})
		return
	}

	counts := make(map[string]int, len(guardianIDs))
	for _, p := range pairs {
		counts[p.UserID]++
	}

	resp := recipientsResponse{FamilyID: familyID, Guardians: []recipientEntry{}}
	for _, id := range guardianIDs {
		resp.Guardians = append(resp.Guardians, recipientEntry{
			UserID:      id,
			DisplayName: family.MemberName(id),
			Tokens:      counts[id],
		})
	}
	c.JSON(http.StatusOK, resp)
}
