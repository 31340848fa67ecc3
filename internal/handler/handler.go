package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/errs"
	"github.com/lendhub/lending-service/internal/model"
	mw "github.com/lendhub/lending-service/pkg/middleware"
	"github.com/lendhub/lending-service/pkg/validate"
)

type Handler struct {
	lendingSvc LendingService
	sweepSvc   SweepService
	fineSvc    FineService
	catalogSvc CatalogService
	memberSvc  MemberService
	log        *zap.Logger
}

func New(
	lendingSvc LendingService,
	sweepSvc SweepService,
	fineSvc FineService,
	catalogSvc CatalogService,
	memberSvc MemberService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		lendingSvc: lendingSvc,
		sweepSvc:   sweepSvc,
		fineSvc:    fineSvc,
		catalogSvc: catalogSvc,
		memberSvc:  memberSvc,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		mw.NewRateLimiter(apiRPS),
	)

	api.POST("/lending", h.Borrow)
	api.GET("/lending", h.ListLending)
	api.GET("/lending/overdue", h.OverdueLending)
	api.POST("/lending/sweep", h.Sweep)
	api.GET("/lending/:recordUid", h.GetLending)
	api.POST("/lending/:recordUid/return", h.Return)

	api.GET("/fines", h.ListFines)
	api.GET("/fines/:fineUid", h.GetFine)
	api.POST("/fines/:fineUid/pay", h.PayFine)

	api.POST("/items", h.CreateItem)
	api.GET("/items", h.ListItems)
	api.GET("/items/:itemUid", h.GetItem)
	api.PUT("/items/:itemUid", h.UpdateItem)
	api.DELETE("/items/:itemUid", h.DeleteItem)

	api.POST("/members", h.CreateMember)
	api.GET("/members", h.ListMembers)
	api.GET("/members/:memberUid", h.GetMember)
	api.PUT("/members/:memberUid", h.UpdateMember)
	api.DELETE("/members/:memberUid", h.DeleteMember)
	api.GET("/members/:memberUid/lending", h.MemberLending)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps the business error kinds onto status codes; unknown errors
// stay internal.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrMemberSuspended),
		errors.Is(err, errs.ErrUnpaidFine),
		errors.Is(err, errs.ErrBorrowLimit):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrOutOfStock),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrAlreadyPaid),
		errors.Is(err, errs.ErrMembershipNumber):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Borrow(c echo.Context) error {
	var req model.BorrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	rec, err := h.lendingSvc.Borrow(c.Request().Context(), req.MemberUid, req.ItemUid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Return(c echo.Context) error {
	recordUid := c.Param("recordUid")
	if recordUid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recordUid is empty")
	}
	rec, fineAmount, err := h.lendingSvc.Return(c.Request().Context(), recordUid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.ReturnResponse{
		Record:     rec,
		FineAmount: fineAmount,
	})
}

func (h *Handler) GetLending(c echo.Context) error {
	rec, err := h.lendingSvc.GetLendingRecord(c.Request().Context(), c.Param("recordUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListLending(c echo.Context) error {
	f := model.LendingFilter{
		MemberUid: c.QueryParam("memberUid"),
		Status:    model.LendingStatus(c.QueryParam("status")),
	}
	recs, err := h.lendingSvc.ListLendingRecords(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

// OverdueLending ages outstanding records first, then serves the current
// overdue set, so the report never shows stale statuses.
func (h *Handler) OverdueLending(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.sweepSvc.Sweep(ctx, time.Time{}); err != nil {
		return httpError(err)
	}
	recs, err := h.lendingSvc.ListLendingRecords(ctx, model.LendingFilter{Status: model.LendingOverdue})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) Sweep(c echo.Context) error {
	var req model.SweepRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	asOf := time.Time{}
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	processed, err := h.sweepSvc.Sweep(c.Request().Context(), asOf)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.SweepResponse{ProcessedRecordUids: processed})
}

func (h *Handler) ListFines(c echo.Context) error {
	fines, err := h.fineSvc.ListFines(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fines)
}

func (h *Handler) GetFine(c echo.Context) error {
	fine, err := h.fineSvc.GetFine(c.Request().Context(), c.Param("fineUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fine)
}

func (h *Handler) PayFine(c echo.Context) error {
	fineUid := c.Param("fineUid")
	if fineUid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fineUid is empty")
	}
	fine, err := h.fineSvc.PayFine(c.Request().Context(), fineUid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fine)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var req model.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	item, merged, err := h.catalogSvc.CreateItem(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	if merged {
		return c.JSON(http.StatusOK, item)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	item, err := h.catalogSvc.GetItem(c.Request().Context(), c.Param("itemUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListItems(c echo.Context) error {
	onlyAvailable := c.QueryParam("available") == "true"
	items, err := h.catalogSvc.ListItems(c.Request().Context(), onlyAvailable)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	var req model.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	item, err := h.catalogSvc.UpdateItem(c.Request().Context(), c.Param("itemUid"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	if err := h.catalogSvc.DeleteItem(c.Request().Context(), c.Param("itemUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateMember(c echo.Context) error {
	var req model.CreateMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	member, err := h.memberSvc.CreateMember(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *Handler) GetMember(c echo.Context) error {
	member, err := h.memberSvc.GetMember(c.Request().Context(), c.Param("memberUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, member)
}

func (h *Handler) ListMembers(c echo.Context) error {
	members, err := h.memberSvc.ListMembers(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) UpdateMember(c echo.Context) error {
	var req model.UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	member, err := h.memberSvc.UpdateMember(c.Request().Context(), c.Param("memberUid"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, member)
}

func (h *Handler) DeleteMember(c echo.Context) error {
	if err := h.memberSvc.DeleteMember(c.Request().Context(), c.Param("memberUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MemberLending(c echo.Context) error {
	recs, err := h.memberSvc.ActiveBorrows(c.Request().Context(), c.Param("memberUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}
