package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type Submitter struct {
	Name  string `json:"name" db:"submitter_name"`
	Email string `json:"email" db:"submitter_email"`
	Phone string `json:"phone" db:"submitter_phone"`
}

// ServiceRequest is one submission in one category. Bill is set iff Status == StatusCompleted.
type ServiceRequest struct {
	ID             string                 `json:"id" db:"id"`
	Category       Category               `json:"category" db:"category"`
	ServiceType    string                 `json:"serviceType" db:"service_type"`
	UserID         null.Uint64            `json:"userId" db:"user_id"`
	Submitter      Submitter              `json:"submitter"`
	CategoryFields map[string]interface{} `json:"categoryFields" db:"category_fields"`
	DocumentPath   null.String            `json:"documentPath" db:"document_path"`
	Status         RequestStatus          `json:"status" db:"status"`
	AdminNotes     null.String            `json:"adminNotes" db:"admin_notes"`
	Bill           *Bill                  `json:"bill"`
	CreatedAt      time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time              `json:"updatedAt" db:"updated_at"`
}

type Bill struct {
	Amount      decimal.Decimal `json:"amount" db:"bill_amount"`
	Description string          `json:"description" db:"bill_description"`
	CreatedAt   time.Time       `json:"createdAt" db:"bill_created_at"`
}

// DueAt is the payment deadline communicated to the submitter.
func (b Bill) DueAt(grace time.Duration) time.Time {
	return b.CreatedAt.Add(grace)
}

func (r *ServiceRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}
