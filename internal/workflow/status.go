package workflow

// Status represents a lifecycle state of an internal purchase request
type Status string

const (
	StatusNew               Status = "NEW"
	StatusUnderReview       Status = "UNDER_REVIEW"
	StatusWaitingDirector   Status = "WAITING_DIRECTOR"
	StatusApproved          Status = "APPROVED"
	StatusRejected          Status = "REJECTED"
	StatusWaitingAccountant Status = "WAITING_ACCOUNTANT"
	StatusFunded            Status = "FUNDED"
	StatusPurchased         Status = "PURCHASED"
	StatusDelivered         Status = "DELIVERED"
)

var validStatuses = map[Status]bool{
	StatusNew:               true,
	StatusUnderReview:       true,
	StatusWaitingDirector:   true,
	StatusApproved:          true,
	StatusRejected:          true,
	StatusWaitingAccountant: true,
	StatusFunded:            true,
	StatusPurchased:         true,
	StatusDelivered:         true,
}

var terminalStatuses = map[Status]bool{
	StatusRejected:  true,
	StatusDelivered: true,
}

// Display labels shown to users as the request's current step.
// APPROVED has a label but is never persisted: the director's approval
// advances the request straight to WAITING_ACCOUNTANT.
var statusLabels = map[Status]string{
	StatusNew:               "Создана",
	StatusUnderReview:       "На рассмотрении",
	StatusWaitingDirector:   "У директора",
	StatusApproved:          "Одобрена",
	StatusRejected:          "Отклонена",
	StatusWaitingAccountant: "У бухгалтера",
	StatusFunded:            "Деньги выданы",
	StatusPurchased:         "Куплено",
	StatusDelivered:         "Доставлена",
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined lifecycle states
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transitions are allowed from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// Label returns the human-readable step label for the status.
// It is derived on every read and never stored.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}
