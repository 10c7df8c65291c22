package graph

// Wire shapes for the subset of the mail API this client consumes. Raw
// payloads are parsed into these at the boundary and never passed around as
// untyped maps.

// EmailAddress is a name/address pair as nested in Graph recipients.
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Recipient wraps an email address.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// ItemBody is a message body with its content type ("text" or "html").
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Message is a mail message as returned by the messages endpoints.
type Message struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	From             *Recipient  `json:"from"`
	ToRecipients     []Recipient `json:"toRecipients"`
	CcRecipients     []Recipient `json:"ccRecipients"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	BodyPreview      string      `json:"bodyPreview"`
	Body             *ItemBody   `json:"body"`
	HasAttachments   bool        `json:"hasAttachments"`
	ConversationID   string      `json:"conversationId"`
	Importance       string      `json:"importance"`
}

// MessagePage is one page of a message listing with the pagination cursor.
type MessagePage struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

// Attachment is attachment metadata from the attachments endpoint.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	ODataType   string `json:"@odata.type"`
}

// AttachmentList is the attachments listing envelope.
type AttachmentList struct {
	Value []Attachment `json:"value"`
}
