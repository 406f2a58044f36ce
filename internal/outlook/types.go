package outlook

import "fmt"

// GraphError represents an error from a Graph API operation
type GraphError struct {
	Op     string
	Status int
	Err    error
}

func (e *GraphError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("outlook: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("outlook: %s: %v", e.Op, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// Message is the subset of a Graph message resource the assistant reads.
type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversationId"`
	InternetMessageID string    `json:"internetMessageId"`
	Subject           string    `json:"subject"`
	BodyPreview       string    `json:"bodyPreview"`
	ReceivedAt        string    `json:"receivedDateTime"`
	From              Recipient `json:"from"`
}

// Recipient wraps Graph's nested address layout.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailAddress is a name/address pair.
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// idTranslation is one result row from the ID conversion endpoint.
type idTranslation struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}
