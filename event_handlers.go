package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

func listEventsHandler(c *gin.Context) {
	page, pageSize := pagination(c)
	f := cashbook.EventFilter{
		AggregateType: strings.ToUpper(strings.TrimSpace(c.Query("aggregateType"))),
		Offset:        (page - 1) * pageSize,
		Limit:         pageSize,
	}
	if v := strings.TrimSpace(c.Query("aggregateId")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid aggregateId"})
			return
		}
		f.AggregateID = &id
	}
	items, total, err := cashbook.ListEvents(c.Request.Context(), db, currentTenant(c).RtID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []models.EventRecord{}
	}
	c.JSON(http.StatusOK, pageResult{Items: items, Total: total})
}
