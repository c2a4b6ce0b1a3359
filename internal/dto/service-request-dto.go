package dto

import (
	"time"

	"tax-portal/internal/entities"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

// CreateServiceRequestDTO is the JSON "data" part of the multipart submission.
type CreateServiceRequestDTO struct {
	ServiceType    string                 `json:"serviceType" validate:"required,max=64"`
	Name           string                 `json:"name" validate:"required,max=150"`
	Email          string                 `json:"email" validate:"required,custom_email"`
	Phone          string                 `json:"phone" validate:"required,in_phone"`
	GSTIN          null.String            `json:"gstin" validate:"omitempty,gstin"`
	PAN            null.String            `json:"pan" validate:"omitempty,pan"`
	CategoryFields map[string]interface{} `json:"categoryFields"`
}

type UpdateStatusDTO struct {
	Status          string              `json:"status" validate:"required"`
	AdminNotes      null.String         `json:"adminNotes" validate:"omitempty,max=2000"`
	BillAmount      decimal.NullDecimal `json:"billAmount"`
	BillDescription null.String         `json:"billDescription" validate:"omitempty,max=500"`
}

type BillDTO struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	DueAt       time.Time       `json:"dueAt"`
}

type SubmitterDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ServiceRequestDTO struct {
	ID             string                 `json:"id"`
	Category       string                 `json:"category"`
	ServiceType    string                 `json:"serviceType"`
	ServiceName    string                 `json:"serviceName"`
	Submitter      SubmitterDTO           `json:"submitter"`
	CategoryFields map[string]interface{} `json:"categoryFields"`
	DocumentPath   *string                `json:"documentPath"`
	Status         string                 `json:"status"`
	AdminNotes     *string                `json:"adminNotes"`
	Bill           *BillDTO               `json:"bill"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func ServiceRequestToDTO(r *entities.ServiceRequest, grace time.Duration) ServiceRequestDTO {
	out := ServiceRequestDTO{
		ID:          r.ID,
		Category:    string(r.Category),
		ServiceType: r.ServiceType,
		ServiceName: entities.ServiceName(entities.PriceKey{Category: r.Category, ServiceType: r.ServiceType}),
		Submitter: SubmitterDTO{
			Name:  r.Submitter.Name,
			Email: r.Submitter.Email,
			Phone: r.Submitter.Phone,
		},
		CategoryFields: r.CategoryFields,
		DocumentPath:   r.DocumentPath.Ptr(),
		Status:         string(r.Status),
		AdminNotes:     r.AdminNotes.Ptr(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if out.CategoryFields == nil {
		out.CategoryFields = map[string]interface{}{}
	}
	if r.Bill != nil {
		out.Bill = &BillDTO{
			Amount:      r.Bill.Amount,
			Description: r.Bill.Description,
			CreatedAt:   r.Bill.CreatedAt,
			DueAt:       r.Bill.DueAt(grace),
		}
	}
	return out
}

type CategoryStatsDTO struct {
	Category string         `json:"category"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

type StatsDTO struct {
	Requests      []CategoryStatsDTO `json:"requests"`
	PricingTotal  int                `json:"pricingTotal"`
	PricingActive int                `json:"pricingActive"`
}

// StatusUpdateDTO is the live payload pushed to the submitter after a transition.
type StatusUpdateDTO struct {
	From        string            `json:"from"`
	StatusLabel string            `json:"statusLabel"`
	Request     ServiceRequestDTO `json:"request"`
}
