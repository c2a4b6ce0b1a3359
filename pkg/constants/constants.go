// pkg/constants/constants.go
package constants

//============== UPLOAD CONTEXTS ==============

// UploadContext is the storage prefix for a kind of uploaded artifact.
type UploadContext string

const (
	UploadContextRequestDocument UploadContext = "requests"
	UploadContextBill            UploadContext = "bills"
)

func (uc UploadContext) String() string {
	return string(uc)
}

//============== ROLES ==============

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

//============== CACHE KEYS ==============

const (
	// pricing:<category>:<serviceType> -> price as decimal string
	CacheKeyPrice = "pricing:%s:%s"
)

//============== EVENTS ==============

const (
	EventPricingUpdated          = "pricing.updated"
	EventServiceRequestCompleted = "service_request.completed"
	EventServiceRequestStatus    = "service_request.status_changed"
)

//============== LIVE UPDATES ==============

const (
	LiveMessageStatusChanged = "request.status_changed"
)

//============== TIME ==============

const DateTimeLayout = "2006-01-02 15:04:05"

//============== SERVICE CATEGORIES ==============

// ServiceCategories are the url codes of the request families.
var ServiceCategories = []string{"gst", "itr", "tax", "business", "trademark"}

//============== AUTH ==============

const (
	CacheKeyLoginAttempts = "login_attempts:%s"
	MaxLoginAttempts      = 5
)
