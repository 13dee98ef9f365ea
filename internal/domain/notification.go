package domain

type NotificationTopic string

const (
	TopicServiceRequestCreated NotificationTopic = "service_request.created"
	TopicQuoteSubmitted        NotificationTopic = "quote.submitted"
	TopicQuoteAccepted         NotificationTopic = "quote.accepted"
	TopicQuoteRejected         NotificationTopic = "quote.rejected"
	TopicDisputeOpened         NotificationTopic = "dispute.opened"
	TopicDisputeEscalated      NotificationTopic = "dispute.escalated"
	TopicDisputeResolved       NotificationTopic = "dispute.resolved"
)

// Notification is handed to the delivery collaborator after a mutation commits.
type Notification struct {
	OrganizationID string            `json:"organization_id"`
	Topic          NotificationTopic `json:"topic"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Attributes     map[string]string `json:"attributes"`
}
