package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/invoice"
	"tax-portal/internal/services"
	"tax-portal/pkg/api"
	"tax-portal/pkg/config"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/utils"
)

type ServiceRequestController struct {
	service   services.ServiceRequestServiceInterface
	generator *invoice.Generator
	billing   config.BillingConfig
	logger    *zap.Logger
}

func NewServiceRequestController(
	service services.ServiceRequestServiceInterface,
	generator *invoice.Generator,
	billing config.BillingConfig,
	logger *zap.Logger,
) *ServiceRequestController {
	return &ServiceRequestController{
		service:   service,
		generator: generator,
		billing:   billing,
		logger:    logger,
	}
}

func (c *ServiceRequestController) errorResponse(ctx echo.Context, err error) error {
	return utils.ErrorResponse(ctx, err, c.logger)
}

func (c *ServiceRequestController) toDTOs(list []entities.ServiceRequest) []dto.ServiceRequestDTO {
	out := make([]dto.ServiceRequestDTO, 0, len(list))
	for i := range list {
		out = append(out, dto.ServiceRequestToDTO(&list[i], c.billing.PaymentGrace))
	}
	return out
}

// Submit takes multipart form: "data" with the JSON payload and an optional "file".
func (c *ServiceRequestController) Submit(ctx echo.Context) error {
	dataString := ctx.FormValue("data")
	if dataString == "" {
		return c.errorResponse(ctx, apperrors.NewBadRequestError("field 'data' with the JSON payload is missing"))
	}
	var payload dto.CreateServiceRequestDTO
	if err := json.Unmarshal([]byte(dataString), &payload); err != nil {
		return c.errorResponse(ctx, apperrors.NewBadRequestError("field 'data' is not valid JSON"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return c.errorResponse(ctx, err)
	}

	file, err := ctx.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return c.errorResponse(ctx, apperrors.NewBadRequestError("cannot read 'file'"))
	}

	req, err := c.service.Submit(ctx.Request().Context(), ctx.Param("category"), payload, file)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Request submitted", dto.ServiceRequestToDTO(req, c.billing.PaymentGrace))
}

func (c *ServiceRequestController) ListMine(ctx echo.Context) error {
	list, err := c.service.ListMine(ctx.Request().Context())
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Requests fetched", c.toDTOs(list))
}

func (c *ServiceRequestController) List(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	list, err := c.service.List(ctx.Request().Context(), ctx.Param("category"), filter)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Requests fetched", c.toDTOs(list))
}

func (c *ServiceRequestController) Find(ctx echo.Context) error {
	req, err := c.service.Find(ctx.Request().Context(), ctx.Param("category"), ctx.Param("id"))
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Request fetched", dto.ServiceRequestToDTO(req, c.billing.PaymentGrace))
}

func (c *ServiceRequestController) UpdateStatus(ctx echo.Context) error {
	var payload dto.UpdateStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		return c.errorResponse(ctx, apperrors.NewBadRequestError("invalid status payload"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return c.errorResponse(ctx, err)
	}

	req, err := c.service.UpdateStatus(ctx.Request().Context(), ctx.Param("category"), ctx.Param("id"), payload)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Status updated", dto.ServiceRequestToDTO(req, c.billing.PaymentGrace))
}

func (c *ServiceRequestController) Delete(ctx echo.Context) error {
	if err := c.service.Delete(ctx.Request().Context(), ctx.Param("category"), ctx.Param("id")); err != nil {
		return c.errorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Request deleted", http.StatusOK)
}

func (c *ServiceRequestController) BillPDF(ctx echo.Context) error {
	req, err := c.service.Find(ctx.Request().Context(), ctx.Param("category"), ctx.Param("id"))
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return c.respondWithBill(ctx, req)
}

func (c *ServiceRequestController) MyBillPDF(ctx echo.Context) error {
	req, err := c.service.FindOwned(ctx.Request().Context(), ctx.Param("category"), ctx.Param("id"))
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return c.respondWithBill(ctx, req)
}

func (c *ServiceRequestController) respondWithBill(ctx echo.Context, req *entities.ServiceRequest) error {
	if req.Bill == nil {
		return c.errorResponse(ctx, fmt.Errorf("request %s has no bill: %w", req.ID, apperrors.ErrNotFound))
	}
	pdf, err := c.generator.Generate(*req)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+c.generator.FileName(*req))
	return ctx.Blob(http.StatusOK, "application/pdf", pdf)
}

var exportHeaders = []string{
	"ID", "Service", "Client", "Email", "Phone", "Status", "Admin notes", "Bill amount", "Bill description", "Submitted", "Updated",
}

func exportRow(r entities.ServiceRequest) []interface{} {
	var amount, description interface{}
	if r.Bill != nil {
		amount, _ = r.Bill.Amount.Float64()
		description = r.Bill.Description
	}
	return []interface{}{
		r.ID,
		entities.ServiceName(entities.PriceKey{Category: r.Category, ServiceType: r.ServiceType}),
		r.Submitter.Name, r.Submitter.Email, r.Submitter.Phone,
		r.Status.Label(), r.AdminNotes.String, amount, description,
		r.CreatedAt.Format(constants.DateTimeLayout), r.UpdatedAt.Format(constants.DateTimeLayout),
	}
}

// Export writes the category's requests as an xlsx sheet, honouring the same filters as List.
func (c *ServiceRequestController) Export(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	filter.WithPagination = false
	category := strings.ToLower(ctx.Param("category"))

	list, err := c.service.List(ctx.Request().Context(), category, filter)
	if err != nil {
		return c.errorResponse(ctx, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Requests"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return c.errorResponse(ctx, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return c.errorResponse(ctx, err)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A1", "K1", style)
	amountStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	for i, item := range list {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := exportRow(item)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return c.errorResponse(ctx, err)
		}
	}
	if len(list) > 0 {
		_ = f.SetCellStyle(sheet, "H2", fmt.Sprintf("H%d", len(list)+1), amountStyle)
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "D", 28)
	_ = f.SetColWidth(sheet, "G", "I", 30)
	_ = f.SetColWidth(sheet, "J", "K", 18)

	fileName := fmt.Sprintf("requests_%s_%s.xlsx", category, time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
