package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quartermaster-app/quartermaster/internal/dto"
	"github.com/quartermaster-app/quartermaster/internal/entity"
	"github.com/quartermaster-app/quartermaster/internal/presentation/http/response"
	service "github.com/quartermaster-app/quartermaster/internal/service/order"
	"github.com/quartermaster-app/quartermaster/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/quartermaster-app/quartermaster/transport/http/order")

// Handler exposes order lifecycle endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.PUT("/:id", h.amend)
	g.DELETE("/:id", h.cancel)
	g.POST("/:id/status", h.advance)
	g.GET("", h.list)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.OrderFields
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	fields, err := toFields(payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("order.name", fields.Name),
	))
	defer span.End()

	order, err := h.svc.Create(ctx, fields)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) amend(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.OrderFields
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	fields, err := toFields(payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.amend", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Amend(ctx, id, fields); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	force, _ := strconv.ParseBool(c.QueryParam("force"))

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Bool("order.force", force),
	))
	defer span.End()

	if err := h.svc.Cancel(ctx, id, force); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) advance(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.AdvanceOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	status, err := entity.ParseStatus(payload.Status)
	if err != nil {
		return b.WithError(errorbank.BadRequest(err.Error())).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.advance", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status.String()),
	))
	defer span.End()

	if err := h.svc.Advance(ctx, id, status, payload.RefNumber); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, events, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	payload := dto.OrderListResponse{
		Orders:   make([]dto.OrderResponse, 0, len(orders)),
		Statuses: make([]dto.StatusEventResponse, 0, len(events)),
	}
	for i := range orders {
		payload.Orders = append(payload.Orders, toDTO(&orders[i]))
	}
	for _, event := range events {
		payload.Statuses = append(payload.Statuses, dto.StatusEventResponse{
			OrderID:    event.OrderID,
			InstanceID: event.InstanceID,
			Date:       event.Date,
			Status:     event.Status.String(),
		})
	}

	return b.WithData(payload).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func toFields(payload dto.OrderFields) (service.Fields, error) {
	team, err := entity.ParseTeam(payload.Team)
	if err != nil {
		return service.Fields{}, errorbank.BadRequest(err.Error())
	}
	return service.Fields{
		Name:     payload.Name,
		Count:    payload.Count,
		UnitCost: payload.UnitCost,
		StoreIn:  payload.StoreIn,
		Team:     team,
		Reason:   payload.Reason,
		Vendor:   payload.Vendor,
		Link:     payload.Link,
	}, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:        order.ID,
		Name:      order.Name,
		Count:     order.Count,
		UnitCost:  order.UnitCost,
		StoreIn:   order.StoreIn,
		Team:      order.Team.String(),
		Reason:    order.Reason,
		Vendor:    order.Vendor,
		Link:      order.Link,
		RefNumber: order.RefNumber,
	}
}
