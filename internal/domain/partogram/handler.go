package partogram

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iMprov00/PartogramDARV2/internal/domain/patient"
	"github.com/iMprov00/PartogramDARV2/internal/platform/auth"
	"github.com/iMprov00/PartogramDARV2/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("doctor", "midwife"))
	g.GET("/timers", h.TimerStates)
	g.GET("/patients/:id/timer", h.TimerState)
	g.GET("/patients/:id/entries", h.ListEntries)
	g.POST("/patients/:id/entries", h.RecordEntry)
	g.DELETE("/patients/:id/entries/:entryId", h.DeleteEntry)
	g.POST("/patients/:id/complete", h.CompleteLabor)
	g.GET("/patients/:id/partogram/export", h.Export)
}

func patientIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

func mapError(err error) error {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	case errors.Is(err, ErrLaborCompleted):
		return echo.NewHTTPError(http.StatusConflict, "labor already completed")
	case errors.Is(err, ErrLaborNotStarted):
		return echo.NewHTTPError(http.StatusConflict, "labor has not started")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) RecordEntry(c echo.Context) error {
	id, err := patientIDParam(c)
	if err != nil {
		return err
	}
	var e Entry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.svc.RecordEntry(c.Request().Context(), id, &e)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"entry": e,
		"timer": state,
	})
}

func (h *Handler) ListEntries(c echo.Context) error {
	id, err := patientIDParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.ListEntries(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := patientIDParam(c)
	if err != nil {
		return err
	}
	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), id, entryID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CompleteLabor(c echo.Context) error {
	id, err := patientIDParam(c)
	if err != nil {
		return err
	}
	p, err := h.svc.CompleteLabor(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":           p.ID,
		"status":       p.Status,
		"status_color": p.Status.Color(),
		"labor_end":    p.LaborEnd,
	})
}

func (h *Handler) TimerState(c echo.Context) error {
	id, err := patientIDParam(c)
	if err != nil {
		return err
	}
	state, err := h.svc.TimerState(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) TimerStates(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := patient.SearchFilter{
		Name:   c.QueryParam("name"),
		Status: patient.Status(c.QueryParam("status")),
	}
	if d := c.QueryParam("admission_date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid admission_date, expected YYYY-MM-DD")
		}
		filter.AdmissionDate = &date
	}

	states, total, err := h.svc.TimerStates(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(states, total, pg.Limit, pg.Offset))
}

func (h *Handler) Export(c echo.Context) error {
	id, err := patientIDParam(c)
	if err != nil {
		return err
	}
	data, name, err := h.svc.ExportXLSX(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
